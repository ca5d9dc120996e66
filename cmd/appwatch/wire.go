package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/appwatch-labs/appwatch/internal/adapters/driven/catalog"
	"github.com/appwatch-labs/appwatch/internal/adapters/driven/config/file"
	"github.com/appwatch-labs/appwatch/internal/adapters/driven/notify"
	"github.com/appwatch-labs/appwatch/internal/adapters/driven/probe"
	"github.com/appwatch-labs/appwatch/internal/adapters/driven/storage/memory"
	"github.com/appwatch-labs/appwatch/internal/adapters/driven/storage/postgres"
	"github.com/appwatch-labs/appwatch/internal/adapters/driven/storage/sqlite"
	"github.com/appwatch-labs/appwatch/internal/adapters/driving/cli"
	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driven"
	"github.com/appwatch-labs/appwatch/internal/core/services"
	"github.com/appwatch-labs/appwatch/internal/logger"
)

// stores is the persistent state selected by store.driver.
type stores struct {
	items     driven.ItemStore
	scheduler driven.SchedulerStore
	close     func() error
}

// bootstrap builds every service from the configuration in opts.ConfigDir.
func bootstrap(opts cli.RootOptions) (*cli.Services, error) {
	cfgStore := openConfig(opts.ConfigDir)
	settings := services.NewSettingsService(cfgStore)
	cfg := settings.EngineConfig()

	driver := cfg.StoreDriver
	if opts.Memory {
		driver = domain.StoreDriverMemory
	}
	st, err := openStores(driver, &cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("bootstrap: store driver %s", driver)

	httpProbe := probe.New(probe.Config{
		Timeout:           cfg.ProbeTimeout,
		RequestsPerSecond: cfg.ProbeRequestsPerSecond,
	})

	committer := services.NewTransitionCommitter(st.items)
	checker := services.NewChecker(st.items, httpProbe, committer, cfg.ProbeBaseURL)

	notifier := notify.Multi{notify.LogNotifier{}}
	if cfg.NotifyWebhookURL != "" {
		notifier = append(notifier, notify.NewWebhookNotifier(cfg.NotifyWebhookURL))
	}

	task := cfg.BackgroundTask()
	background := services.NewBackgroundRefreshCycle(
		checker,
		st.items,
		services.NewTaskRescheduler(st.scheduler),
		notifier,
		task.Interval,
	)

	return &cli.Services{
		Items:      services.NewItemService(st.items, catalog.NewITunesLookup(""), domain.DefaultCountry),
		Bulk:       services.NewRefreshOrchestrator(checker, st.items, cfg.MaxConcurrency),
		Single:     services.NewSingleItemUpdater(checker),
		Background: background,
		Scheduler:  services.NewScheduler(cfg.Scheduler, st.scheduler, background),
		Status:     services.NewSchedulerStatus(st.scheduler),
		Settings:   settings,
		Watcher:    cfgStore,
		Close: func() error {
			httpProbe.Close()
			return st.close()
		},
	}, nil
}

// openConfig opens the TOML config, falling back to defaults held in memory
// when the file cannot be read.
func openConfig(dir string) driven.ConfigStore {
	store, err := file.NewConfigStore(dir)
	if err != nil {
		logger.Warn("bootstrap: config unavailable, using defaults: %v", err)
		return memory.NewConfigStore()
	}
	return store
}

func openStores(driver string, cfg *domain.EngineConfig) (*stores, error) {
	switch driver {
	case domain.StoreDriverMemory:
		return &stores{
			items:     memory.NewItemStore(),
			scheduler: memory.NewSchedulerStore(),
			close:     func() error { return nil },
		}, nil

	case domain.StoreDriverPostgres:
		pg, err := postgres.Connect(context.Background(), cfg.StoreDSN, postgres.Options{
			MaxConns: int32(max(cfg.MaxConcurrency, 1)) + 2,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return &stores{items: pg.ItemStore(), scheduler: pg.SchedulerStore(), close: pg.Close}, nil

	case domain.StoreDriverSQLite, "":
		db, err := sqlite.NewStore(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return &stores{items: db.ItemStore(), scheduler: db.SchedulerStore(), close: db.Close}, nil

	default:
		return nil, errors.New("unknown store driver " + driver)
	}
}
