package flows

import (
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/studbot/bot/validate"
	"github.com/m3rciful/studbot/core/logger"
	"github.com/m3rciful/studbot/core/telegram/flow"
	"github.com/m3rciful/studbot/core/telegram/helpers"
	"github.com/m3rciful/studbot/core/telegram/state"
)

// chatAPI is the slice of the bot API the kick timer needs once it fires
// outside of any update context.
type chatAPI interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
	Ban(chat *tele.Chat, member *tele.ChatMember, revokeMessages ...bool) error
}

// IsChatMember classifies a membership status: member, creator and
// administrator always count, restricted counts only while is_member is
// still true.
func IsChatMember(m *tele.ChatMember) bool {
	if m == nil {
		return false
	}
	switch m.Role {
	case tele.Creator, tele.Administrator, tele.Member:
		return true
	case tele.Restricted:
		return m.Member
	}
	return false
}

// membershipFlow reacts to chat member updates. Joining starts the
// registration grace timer; leaving gets a goodbye. The flow is one-shot
// and never keeps a conversation.
func membershipFlow(deps Deps) *flow.Flow {
	return &flow.Flow{
		Name: "membership",
		Entry: []flow.Rule{{
			Trigger: flow.Trigger{Kind: flow.TriggerMember},
			Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
				return flow.Stay(), handleMemberUpdate(c, deps)
			},
		}},
	}
}

func handleMemberUpdate(c tele.Context, deps Deps) error {
	upd := c.ChatMember()
	if upd == nil || upd.NewChatMember == nil || upd.NewChatMember.User == nil {
		return nil
	}
	was := IsChatMember(upd.OldChatMember)
	now := IsChatMember(upd.NewChatMember)
	if was == now {
		return nil
	}

	user := upd.NewChatMember.User
	display := displayName(user)

	if !now {
		return helpers.SendText(c, fmt.Sprintf("%s покидает чат. Удачи!", display))
	}

	if err := helpers.SendText(c, fmt.Sprintf("Добро пожаловать, %s!", display)); err != nil {
		return err
	}

	registered, err := deps.Roster.IsRegistered(reqCtx(c), user.Username)
	if err != nil {
		return err
	}
	if registered {
		return nil
	}

	minutes := int(deps.KickAfter.Minutes())
	warn := fmt.Sprintf(
		"%s, пожалуйста, пройдите регистрацию через /reg в течение %d %s, иначе мне придётся вас исключить.",
		display, minutes, validate.MinutesRu(minutes))
	if err := helpers.SendText(c, warn); err != nil {
		return err
	}

	if deps.Sched != nil && upd.Chat != nil {
		name := fmt.Sprintf("kick/%d/%d", upd.Chat.ID, user.ID)
		check := kickCheck(deps, c.Bot(), upd.Chat, user)
		if err := deps.Sched.Once(name, deps.KickAfter, check); err != nil {
			logger.LogEvent(reqCtx(c), logger.FLOW, slog.LevelError, "membership.schedule_failed",
				slog.String("username", user.Username),
				slog.String("err", err.Error()),
			)
		}
	}
	return nil
}

// kickCheck builds the grace-timer job. It re-reads the roster instead of
// trusting a cached flag, so registering in time cancels the kick
// implicitly; a user registered by then gets the congratulation branch.
func kickCheck(deps Deps, api chatAPI, chat *tele.Chat, user *tele.User) func() {
	uname := user.Username
	display := displayName(user)
	return func() {
		ctx := logger.Background()
		registered, err := deps.Roster.IsRegistered(ctx, uname)
		if err != nil {
			logger.LogEvent(ctx, logger.FLOW, slog.LevelError, "membership.kick_check_failed",
				slog.String("username", uname),
				slog.String("err", err.Error()),
			)
			return
		}
		if api == nil {
			return
		}
		if registered {
			if _, err := api.Send(chat, fmt.Sprintf("%s, спасибо за регистрацию!", display)); err != nil {
				logMemberSendFailure(uname, err)
			}
			return
		}
		if _, err := api.Send(chat, fmt.Sprintf("%s, вы не зарегистрировались вовремя.", display)); err != nil {
			logMemberSendFailure(uname, err)
		}
		if err := api.Ban(chat, &tele.ChatMember{User: user}); err != nil {
			logger.LogEvent(ctx, logger.FLOW, slog.LevelError, "membership.ban_failed",
				slog.String("username", uname),
				slog.String("err", err.Error()),
			)
		}
	}
}

func displayName(user *tele.User) string {
	if user.FirstName != "" {
		return user.FirstName
	}
	return user.Username
}

func logMemberSendFailure(uname string, err error) {
	logger.LogEvent(logger.Background(), logger.FLOW, slog.LevelWarn, "membership.send_failed",
		slog.String("username", uname),
		slog.String("err", err.Error()),
	)
}
