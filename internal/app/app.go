package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/san928811-pixel/Auto-sender-boat/internal/adapters/telegram"
	"github.com/san928811-pixel/Auto-sender-boat/internal/config"
	"github.com/san928811-pixel/Auto-sender-boat/internal/notifier"
	"github.com/san928811-pixel/Auto-sender-boat/internal/storage"
	"github.com/san928811-pixel/Auto-sender-boat/internal/transport"
	logx "github.com/san928811-pixel/Auto-sender-boat/pkg/logx"
)

// App wires config, logging, the cooldown store, the Telegram adapter and
// the notifier into the join-request relay.
type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store    storage.Store
	adapter  *telegram.Adapter
	notifier *notifier.Service

	updates chan transport.Update
	workers int

	runCancel context.CancelFunc
	wg        sync.WaitGroup

	fatalOnce sync.Once
	fatal     chan error
}

func New(cfgPath string) (*App, error) {
	// Bootstrap logger for failures before the log service exists.
	boot := logx.NewConsole("info")

	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		boot.Error("config load failed", logx.String("path", cfgPath), logx.Err(err))
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		boot.Error("config invalid", logx.String("path", cfgPath), logx.Err(err))
		return nil, err
	}
	mgr.SetValidator(func(ctx context.Context, c *config.Config) error {
		return c.Validate()
	})

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console || (!cfg.Logging.File.Enabled),
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	mgr.SetLogger(log.With(logx.String("component", "config")))

	window, _ := config.ParseDurationOrDefault("cooldown.window", cfg.Cooldown.Window, config.DefaultCooldownWindow)
	busy, _ := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	storePath := cfg.Storage.Path
	if storePath == "" {
		storePath = config.DefaultStoragePath
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        storePath,
		BusyTimeout: busy,
		Window:      window,
	}, log.With(logx.String("component", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open cooldown store: %w", err)
	}

	pollTimeout, _ := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.ResolveToken(),
		PollTimeout: pollTimeout,
	}, log.With(logx.String("component", "telegram")))
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}

	ntf := notifier.New(welcomeConfig(cfg), store, adapter, log.With(logx.String("component", "notifier")))

	queueSize := cfg.Bot.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	workers := cfg.Bot.Workers
	if workers <= 0 {
		workers = 2
	}

	return &App{
		cfgMgr:   mgr,
		logSvc:   logSvc,
		log:      log,
		store:    store,
		adapter:  adapter,
		notifier: ntf,
		updates:  make(chan transport.Update, queueSize),
		workers:  workers,
		fatal:    make(chan error, 1),
	}, nil
}

func welcomeConfig(cfg *config.Config) notifier.Config {
	links := make([]transport.LinkButton, 0, len(cfg.Welcome.Links))
	for _, l := range cfg.Welcome.Links {
		links = append(links, transport.LinkButton{Label: l.Label, URL: l.URL})
	}
	return notifier.Config{
		Template:   cfg.Welcome.Template,
		Links:      links,
		RatePerSec: cfg.Welcome.RatePerSec,
	}
}

// Fatal delivers the first unrecoverable runtime error (cooldown store
// failure). The process should stop rather than keep sending unguarded.
func (a *App) Fatal() <-chan error { return a.fatal }

func (a *App) fail(err error) {
	a.fatalOnce.Do(func() { a.fatal <- err })
}

func (a *App) Start(ctx context.Context) error {
	rctx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel

	if err := a.adapter.Start(rctx, a.updates); err != nil {
		cancel()
		return err
	}

	for i := 0; i < a.workers; i++ {
		a.wg.Add(1)
		go func(idx int) {
			defer a.wg.Done()
			a.workerLoop(rctx, idx)
		}(i)
	}

	// Config hot reload.
	sub := a.cfgMgr.Subscribe(4)
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		_ = a.cfgMgr.Watch(rctx)
	}()
	go func() {
		defer a.wg.Done()
		defer a.cfgMgr.Unsubscribe(sub)
		for {
			select {
			case <-rctx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyReload(cfg)
			}
		}
	}()

	a.startPruneJob(rctx, a.cfgMgr.Get())
	a.startWatchdog(rctx)
	notifyReady(a.log)

	a.log.Info("bot is running", logx.Int("workers", a.workers))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	notifyStopping(a.log)

	if a.runCancel != nil {
		a.runCancel()
	}
	err := a.adapter.Stop(ctx)

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	if cerr := a.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	_ = a.logSvc.Close()
	return err
}

func (a *App) workerLoop(ctx context.Context, idx int) {
	log := a.log.With(logx.Int("worker", idx))
	for {
		select {
		case <-ctx.Done():
			return
		case up := <-a.updates:
			if up.JoinRequest == nil {
				continue
			}
			a.handleJoinRequest(ctx, log, *up.JoinRequest)
		}
	}
}

func (a *App) handleJoinRequest(ctx context.Context, log logx.Logger, req transport.JoinRequest) {
	log.Info("join request received",
		logx.Int64("user_id", req.UserID), logx.Int64("chat_id", req.ChatID))

	outcome, err := a.notifier.Notify(ctx, req)
	fields := []logx.Field{
		logx.Int64("user_id", req.UserID),
		logx.String("outcome", outcome.String()),
	}

	switch outcome {
	case notifier.OutcomeSent, notifier.OutcomeRetriedSent:
		log.Info("welcome message sent", fields...)
	case notifier.OutcomeSkippedByCooldown:
		log.Debug("welcome message suppressed by cooldown", fields...)
	case notifier.OutcomeForbidden:
		log.Warn("cannot message user", append(fields, logx.Err(err))...)
	case notifier.OutcomeStoreError:
		// The join request is untouched either way, but a broken store
		// means the cooldown invariant can no longer be enforced.
		log.Error("cooldown store failure", append(fields, logx.Err(err))...)
		a.fail(err)
	default:
		log.Error("welcome message delivery failed", append(fields, logx.Err(err))...)
	}
}

func (a *App) applyReload(cfg *config.Config) {
	if cfg == nil {
		return
	}
	a.logSvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console || (!cfg.Logging.File.Enabled),
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	a.notifier.Apply(welcomeConfig(cfg))
	a.log.Info("runtime config applied; token, storage and cooldown window changes need a restart")
}
