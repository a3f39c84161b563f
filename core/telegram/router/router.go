package router

import (
	"time"

	tg "github.com/m3rciful/studbot/core/telegram"
	"github.com/m3rciful/studbot/core/telegram/flow"
	"github.com/m3rciful/studbot/core/telegram/middleware"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Options configures fallback behaviour and admin gating for the routes.
type Options struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc

	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// Routes binds every update kind to the flow dispatcher. Commands get their
// own endpoints; text, documents, callbacks, and chat member updates are
// classified here and handed over as events.
func Routes(reg *flow.Registry, d *flow.Dispatcher, opts Options) []tg.Route {
	if reg == nil || d == nil {
		return nil
	}

	adminOpts := middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	}

	routes := make([]tg.Route, 0, len(reg.Commands())+4)
	for name, meta := range reg.Commands() {
		cmd := name
		h := func(c tele.Context) error {
			start := time.Now()
			return handleWithSummary(c, normalizeHandlerName(cmd), start, "", "", func() error {
				return d.Dispatch(c, flow.CommandEvent(c, cmd))
			})
		}
		h = middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
		if meta.AdminOnly {
			h = middleware.AdminOnlyMiddleware(adminOpts)(h)
		}
		routes = append(routes, tg.Route{Endpoint: cmd, Handler: h})
	}

	routes = append(routes,
		tg.Route{Endpoint: tele.OnCallback, Handler: wrap(callbackHandler(reg, d))},
		tg.Route{Endpoint: tele.OnText, Handler: wrap(textHandler(reg, d, opts))},
		tg.Route{Endpoint: tele.OnDocument, Handler: wrap(documentHandler(d, opts))},
		tg.Route{Endpoint: tele.OnChatMember, Handler: wrap(memberHandler(d))},
	)
	return routes
}

func wrap(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}

func callbackHandler(reg *flow.Registry, d *flow.Dispatcher) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		ev := flow.CallbackEvent(cb)
		name := "callback." + normalizeHandlerName(ev.Value)
		extras := []slog.Attr{slog.String("cb_key", ev.Value)}

		_ = c.Respond()

		var handled bool
		err := handleWithSummary(c, name, start, "", "", func() error {
			var derr error
			handled, derr = d.DispatchHandled(c, ev)
			return derr
		}, extras...)
		if err != nil {
			return err
		}
		if !handled {
			if fallback := reg.CallbackNotFound(); fallback != nil {
				return fallback(c)
			}
		}
		return nil
	}
}

func textHandler(reg *flow.Registry, d *flow.Dispatcher, opts Options) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()

		// Command aliases and commands typed with a bot mention arrive as
		// plain text; resolve them to their canonical command first.
		if key, _, ok := reg.LookupCommand(c.Text()); ok {
			return handleWithSummary(c, normalizeHandlerName(key), start, "", "", func() error {
				return d.Dispatch(c, flow.CommandEvent(c, key))
			})
		}

		var handled bool
		err := handleWithSummary(c, "flow.text", start, "", "", func() error {
			var derr error
			handled, derr = d.DispatchHandled(c, flow.TextEvent(c))
			return derr
		})
		if err != nil {
			return err
		}
		// Mid-conversation text that matched no rule stays a silent no-op;
		// the fallback is only for users with no active flow.
		if !handled && opts.UnknownText != nil && !d.InProgress(flow.KeyFrom(c)) {
			return opts.UnknownText(c)
		}
		return nil
	}
}

func documentHandler(d *flow.Dispatcher, opts Options) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		var handled bool
		err := handleWithSummary(c, "flow.document", start, "", "", func() error {
			var derr error
			handled, derr = d.DispatchHandled(c, flow.DocumentEvent(c))
			return derr
		})
		if err != nil {
			return err
		}
		if !handled && opts.UnknownDocument != nil && !d.InProgress(flow.KeyFrom(c)) {
			return opts.UnknownDocument(c)
		}
		return nil
	}
}

func memberHandler(d *flow.Dispatcher) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		return handleWithSummary(c, "flow.member", start, "", "", func() error {
			return d.Dispatch(c, flow.MemberEvent())
		})
	}
}
