// Package bot assembles the course administration bot: it picks the
// configured storage backend, builds the domain services, registers the
// conversation flows, and hands the result to the telegram runtime.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/studbot/bot/deadlines"
	"github.com/m3rciful/studbot/bot/flows"
	"github.com/m3rciful/studbot/bot/roster"
	"github.com/m3rciful/studbot/bot/storage/rowstore"
	"github.com/m3rciful/studbot/bot/storage/sheets"
	"github.com/m3rciful/studbot/bot/storage/sqlstore"
	"github.com/m3rciful/studbot/bot/subjects"
	"github.com/m3rciful/studbot/bot/works"
	"github.com/m3rciful/studbot/core/bootstrap"
	"github.com/m3rciful/studbot/core/cmd"
	coreconfig "github.com/m3rciful/studbot/core/config"
	coredatabase "github.com/m3rciful/studbot/core/database"
	"github.com/m3rciful/studbot/core/sched"
	coretelegram "github.com/m3rciful/studbot/core/telegram"
	"github.com/m3rciful/studbot/core/telegram/flow"
	"github.com/m3rciful/studbot/core/telegram/helpers"
	"github.com/m3rciful/studbot/core/telegram/router"
	"github.com/m3rciful/studbot/core/telegram/state"
	"github.com/m3rciful/studbot/core/telegram/ui"
)

const (
	msgAdminOnly       = "Эта команда доступна только преподавателю."
	msgUnknownText     = "Я вас не понял. Список команд есть в меню и в /start."
	msgUnknownDocument = "Сейчас я не жду от вас файлов. Отчёт по лабораторной можно сдать через /labs."
	msgStaleButton     = "Эта кнопка уже неактуальна."
)

// App carries everything built during bootstrap that the runtime needs.
type App struct {
	cfg *coreconfig.Config

	store     rowstore.Store
	creator   rowstore.Creator
	scheduler *sched.Scheduler
	db        *sqlx.DB
}

var _ ui.FallbackProvider = (*App)(nil)

// Load reads the YAML configuration and wraps it for the cmd runner.
func Load(path string) (cmd.ConfigCarrier, error) {
	cfg, err := coreconfig.Load(path)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg}, nil
}

// CoreConfig implements cmd.ConfigCarrier.
func (a *App) CoreConfig() *coreconfig.Config { return a.cfg }

// Bootstrap initializes logging and the storage backend selected by
// storage.backend. For postgres it also connects, migrates, and makes sure
// the course sheets exist before the bot starts serving updates.
func Bootstrap(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	app, ok := carrier.(*App)
	if !ok {
		return nil, fmt.Errorf("bot: unexpected config carrier %T", carrier)
	}
	cfg := app.cfg

	var dbCfg *coredatabase.Config
	if cfg.Storage.Backend == coreconfig.StoragePostgres {
		dbCfg = &coredatabase.Config{
			Host:           cfg.Storage.Database.Host,
			Port:           cfg.Storage.Database.Port,
			User:           cfg.Storage.Database.User,
			Password:       cfg.Storage.Database.Password,
			Name:           cfg.Storage.Database.Name,
			SSLMode:        cfg.Storage.Database.SSLMode,
			MaxConnections: cfg.Storage.Database.MaxConnections,
		}
	}

	res, err := bootstrap.Run(bootstrap.Options{Config: cfg, Database: dbCfg})
	if err != nil {
		return nil, err
	}

	switch cfg.Storage.Backend {
	case coreconfig.StorageMemory:
		mem := rowstore.NewMemoryWithSheets(roster.Sheet, works.Sheet, deadlines.Sheet)
		app.store, app.creator = mem, mem

	case coreconfig.StorageSheets:
		client, err := sheets.New(sheets.Config{
			Spreadsheets: map[string]string{
				roster.Sheet:    cfg.Storage.Sheets.RosterID,
				works.Sheet:     cfg.Storage.Sheets.WorksID,
				deadlines.Sheet: cfg.Storage.Sheets.DeadlinesID,
			},
			TokenFile: cfg.Storage.Sheets.TokenFile,
		}, coretelegram.BuildHTTPClient())
		if err != nil {
			return nil, fmt.Errorf("bot: sheets client: %w", err)
		}
		app.store, app.creator = client, client

	case coreconfig.StoragePostgres:
		st := sqlstore.New(res.DB)
		seed := bootstrap.SeederFunc(func(ctx context.Context) error {
			return st.EnsureSheets(ctx, roster.Sheet, works.Sheet, deadlines.Sheet)
		})
		if err := bootstrap.RunSeeders(context.Background(), seed); err != nil {
			_ = res.DB.Close()
			return nil, fmt.Errorf("bot: storage seed failed: %w", err)
		}
		app.db = res.DB
		app.store, app.creator = st, st

	default:
		return nil, fmt.Errorf("bot: unknown storage backend %q", cfg.Storage.Backend)
	}

	return app, nil
}

// TelegramRunOptions implements cmd.TelegramApp: it builds the services,
// flows, routes, and middleware chain for the runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	a.scheduler = sched.New()

	reg := flow.NewRegistry()
	deps := flows.Deps{
		Roster:    roster.New(a.store),
		Works:     works.New(a.store),
		Deadlines: deadlines.New(a.store),
		Subjects:  subjects.New(a.store),
		Creator:   a.creator,
		Sched:     a.scheduler,
		KickAfter: time.Duration(a.cfg.Course.KickAfterMinutes) * time.Minute,
	}
	if err := flows.Register(reg, deps); err != nil {
		return coretelegram.RunOptions{}, err
	}
	reg.SetCallbackNotFound(a.UnknownCallback())

	dispatcher := flow.NewDispatcher(reg, state.NewStore())

	routes := router.Routes(reg, dispatcher, router.Options{
		AdminID: a.cfg.Telegram.AdminID,
		OnAdminReject: func(c tele.Context) error {
			return helpers.SendText(c, msgAdminOnly)
		},
		UnknownText:     a.UnknownText(),
		UnknownDocument: a.UnknownDocument(),
	})

	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, nil),
		Routes:      routes,
		OnStop: func(_ context.Context, _ coretelegram.Runtime) error {
			if a.scheduler != nil {
				a.scheduler.Stop()
			}
			if a.db != nil {
				return a.db.Close()
			}
			return nil
		},
	}, nil
}

// UnknownText implements ui.FallbackProvider for text that matches no flow.
func (a *App) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return helpers.SendText(c, msgUnknownText)
	}
}

// UnknownDocument implements ui.FallbackProvider for unexpected uploads.
func (a *App) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return helpers.SendText(c, msgUnknownDocument)
	}
}

// UnknownCallback implements ui.FallbackProvider for stale inline buttons.
func (a *App) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return helpers.SendText(c, msgStaleButton)
	}
}
