package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/apmishra/gai-symptom-resolver/internal/audit"
	"github.com/apmishra/gai-symptom-resolver/internal/config"
	"github.com/apmishra/gai-symptom-resolver/internal/document"
	"github.com/apmishra/gai-symptom-resolver/internal/logging"
	"github.com/apmishra/gai-symptom-resolver/internal/session"
	"github.com/apmishra/gai-symptom-resolver/internal/storage"
	"github.com/apmishra/gai-symptom-resolver/internal/workflow"
)

// globalFlags are the persistent root flags. Non-empty values override the
// config file and RESOLVER_* variables.
type globalFlags struct {
	configDir string
	provider  string
	model     string
	storage   string
	logLevel  string
	showLog   bool
}

type runtimeEnv struct {
	Config  *config.Config
	Manager *config.Manager
	Logger  *zap.Logger
	Backend storage.Backend
	Keys    *config.KeyStore
	Audit   *audit.Log
	Store   *session.Store
	Gen     *lazyGateway
	Orch    *workflow.Orchestrator
	Events  chan workflow.Event
	showLog bool
}

func (r *runtimeEnv) Close() {
	if r.Backend != nil {
		if err := r.Backend.Close(); err != nil {
			r.Logger.Warn("failed to close storage", zap.Error(err))
		}
	}
	_ = r.Logger.Sync()
}

func prepareRuntimeEnv(ctx context.Context, flags *globalFlags) (*runtimeEnv, error) {
	var mgr *config.Manager
	if flags.configDir != "" {
		mgr = config.NewManagerAt(flags.configDir)
	} else {
		var err error
		if mgr, err = config.NewManager(); err != nil {
			return nil, err
		}
	}

	cfg, err := mgr.Resolve()
	if err != nil {
		return nil, err
	}
	applyFlags(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Development: cfg.LogDev})
	if err != nil {
		return nil, err
	}
	logger.Debug("config resolved",
		zap.String("path", mgr.GetConfigPath()),
		zap.String("storage", cfg.Storage),
		zap.String("data_dir", cfg.DataDir))

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	auditLog := audit.New(audit.WithMirror(func(e audit.Entry) {
		logger.Debug("audit", zap.String("type", string(e.Type)), zap.String("message", e.Message))
	}))

	store := session.NewStore(storage.NewRecord(backend, storage.KeySessions), session.WithLogger(logger))
	if err := store.Init(ctx); err != nil {
		// Corrupt or unreadable history starts empty rather than blocking.
		logger.Warn("starting with an empty session history", zap.Error(err))
		auditLog.Record(audit.TypeError, "Saved sessions could not be loaded.", map[string]any{"error": err.Error()})
	}

	keys := config.NewKeyStore(backend)
	gen := newLazyGateway(cfg, keys, auditLog, logger)
	events := make(chan workflow.Event, 64)

	orch := workflow.New(store, gen,
		workflow.WithExtractor(document.NewPDFExtractor()),
		workflow.WithLogger(logger),
		workflow.WithListener(
			workflow.AuditListener{R: auditLog},
			workflow.LoggerListener{L: logger},
			workflow.ChanListener{Ch: events},
		),
	)

	return &runtimeEnv{
		Config:  cfg,
		Manager: mgr,
		Logger:  logger,
		Backend: backend,
		Keys:    keys,
		Audit:   auditLog,
		Store:   store,
		Gen:     gen,
		Orch:    orch,
		Events:  events,
		showLog: flags.showLog,
	}, nil
}

func applyFlags(cfg *config.Config, flags *globalFlags) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Provider, flags.provider)
	set(&cfg.Model, flags.model)
	set(&cfg.Storage, flags.storage)
	set(&cfg.LogLevel, flags.logLevel)
}

func openBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return storage.NewMemoryBackend(), nil
	case config.StorageSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		db, err := storage.OpenSQLite(ctx, filepath.Join(cfg.DataDir, "resolver.db"))
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		fb, err := storage.NewFileBackend(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return fb, nil
	}
}
