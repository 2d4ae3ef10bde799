package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"soundlink/internal/adapter/httpapi"
	"soundlink/internal/adapter/notify"
	"soundlink/internal/adapter/scheduler"
	"soundlink/internal/config"
	"soundlink/internal/metrics"
	"soundlink/internal/platform/httpclient"
	"soundlink/internal/platform/logger"
	"soundlink/internal/platform/pg"
	"soundlink/internal/platform/sqlite"
	"soundlink/internal/reconnect"
	"soundlink/internal/storage"
)

// App wires application components.
type App struct {
	cfg config.Config
	log *slog.Logger
}

// New creates a new App instance and loads configuration.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          "soundlinkd",
	})
	return &App{cfg: cfg, log: log}, nil
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	a.log.Info("starting", slog.String("env", a.cfg.Env))
	defer logger.Close(a.log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	journal, err := a.openJournal(ctx)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// The store and its sinks are wired in two steps because the metrics
	// gauge and the alerter both read back from the store.
	var store *reconnect.Store
	m := metrics.New(reg, func() int { return store.ClientCount() })

	sinks := []reconnect.Sink{m, a.loggingSink()}

	var journalSink *storage.Sink
	if journal != nil {
		journalSink = storage.NewSink(journal, a.log, 256)
		defer journalSink.Close()
		sinks = append(sinks, journalSink)
	}

	var alerter *notify.Alerter
	if a.cfg.Alert.TelegramToken != "" {
		sender, err := notify.NewTelegramSender(
			a.cfg.Alert.TelegramToken,
			a.cfg.Alert.ChatID,
			httpclient.New(httpclient.WithLogger(a.log)),
		)
		if err != nil {
			return err
		}
		alerter = notify.NewAlerter(notify.AlerterConfig{
			Sender:   sender,
			Log:      a.log,
			Cooldown: a.cfg.Alert.Cooldown,
		})
		sinks = append(sinks, alerter)
	}

	store = reconnect.NewStore(reconnect.StoreConfig{
		Sink:         reconnect.MultiSink(sinks...),
		Retention:    a.cfg.Engine.Retention,
		PatternLimit: a.cfg.Engine.PatternLimit,
	})
	if alerter != nil {
		alerter.Bind(store)
	}

	sched := scheduler.New(ctx, a.log)
	_, err = sched.AddJob(a.cfg.Engine.SweepSpec, func(ctx context.Context) error {
		removed := store.Cleanup()
		if removed > 0 {
			a.log.Info("retention sweep", slog.Int("removed", removed))
		}
		if journal != nil {
			pruned, err := journal.Prune(ctx, time.Now().Add(-a.cfg.Engine.Retention))
			if err != nil {
				return err
			}
			if pruned > 0 {
				a.log.Info("journal prune", slog.Int64("pruned", pruned))
			}
		}
		return nil
	}, scheduler.JobOptions{Name: "retention-sweep", Timeout: time.Minute, SkipIfRunning: true})
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	router := httpapi.NewRouter(httpapi.Config{
		Store:       store,
		Log:         a.log,
		BaseDelayMs: a.cfg.Engine.BaseDelayMs,
		Gatherer:    reg,
	})

	srv := &http.Server{Addr: a.cfg.HTTP.Addr, Handler: router}
	go func() {
		a.log.Info("listening", slog.String("addr", a.cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("server", slog.Any("err", err))
			stop()
		}
	}()

	<-ctx.Done()
	a.log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if journal != nil {
		return journal.Close()
	}
	return nil
}

// openJournal builds the attempt journal for the configured driver. A nil
// journal with nil error means journaling is disabled.
func (a *App) openJournal(ctx context.Context) (storage.Journal, error) {
	switch a.cfg.Journal.Driver {
	case "sqlite":
		// Open first so the data directory and file exist before migrate
		// touches them.
		db, err := sqlite.Open(ctx, a.cfg.Journal.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := sqlite.ApplyMigrations(a.cfg.Journal.SQLitePath, "file://"+a.cfg.Journal.MigrationsDir+"/sqlite"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite migrations: %w", err)
		}
		return storage.NewSQLiteJournal(db), nil

	case "postgres":
		if err := pg.WaitForDB(ctx, a.cfg.Journal.PostgresDSN, 30*time.Second); err != nil {
			return nil, err
		}
		if err := pg.ApplyMigrations(a.cfg.Journal.PostgresDSN, "file://"+a.cfg.Journal.MigrationsDir+"/postgres"); err != nil {
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		pool, err := pg.NewPool(ctx, a.cfg.Journal.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return storage.NewPostgresJournal(pool), nil

	case "off":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown journal driver %q", a.cfg.Journal.Driver)
	}
}

// loggingSink emits one debug line per tracked attempt and a warn line when a
// client crosses into repeated failure.
func (a *App) loggingSink() reconnect.Sink {
	return reconnect.SinkFunc(func(e reconnect.Event) {
		a.log.Debug("attempt tracked",
			slog.String("client", e.ClientID),
			slog.Int("attempt", e.Record.Attempt),
			slog.Bool("success", e.Record.Success),
			slog.Float64("durationMs", e.Record.DurationMs),
		)
		if !e.Record.Success && e.State.Failures > 0 && e.State.Failures%5 == 0 {
			a.log.Warn("client keeps failing",
				slog.String("client", e.ClientID),
				slog.Int("failures", e.State.Failures),
			)
		}
	})
}
