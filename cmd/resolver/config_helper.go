package main

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/apmishra/gai-symptom-resolver/internal/audit"
	"github.com/apmishra/gai-symptom-resolver/internal/config"
	"github.com/apmishra/gai-symptom-resolver/internal/contracts"
	"github.com/apmishra/gai-symptom-resolver/internal/engine"
	"github.com/apmishra/gai-symptom-resolver/internal/gateway"
	"github.com/apmishra/gai-symptom-resolver/internal/providers"
)

// providerSettings combines the config with the saved credential. A saved
// key wins over the provider's environment variable.
func providerSettings(ctx context.Context, cfg *config.Config, keys *config.KeyStore) (providers.Settings, error) {
	key, err := keys.Load(ctx)
	if err != nil {
		return providers.Settings{}, fmt.Errorf("failed to load api key: %w", err)
	}
	return providers.Settings{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		BaseURL:  cfg.BaseURL,
		APIKey:   key,
	}, nil
}

// lazyGateway builds the provider client on first use, so commands that
// never generate anything work without a key. Reset drops the client after
// the key or provider changes.
type lazyGateway struct {
	cfg      *config.Config
	keys     *config.KeyStore
	recorder audit.Recorder
	logger   *zap.Logger

	mu sync.Mutex
	gw *gateway.Gateway
}

func newLazyGateway(cfg *config.Config, keys *config.KeyStore, recorder audit.Recorder, logger *zap.Logger) *lazyGateway {
	return &lazyGateway{cfg: cfg, keys: keys, recorder: recorder, logger: logger}
}

func (l *lazyGateway) get(ctx context.Context) (*gateway.Gateway, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gw != nil {
		return l.gw, nil
	}

	settings, err := providerSettings(ctx, l.cfg, l.keys)
	if err != nil {
		return nil, err
	}
	client, model, err := providers.NewLLMClient(settings, l.logger)
	if err != nil {
		l.recorder.Record(audit.TypeError, "Failed to create generation client.", map[string]any{"error": err.Error()})
		return nil, err
	}
	l.gw = gateway.New(client, model, gateway.WithRecorder(l.recorder), gateway.WithLogger(l.logger))
	l.logger.Info("generation client ready", zap.String("provider", settings.Provider), zap.String("model", model))
	return l.gw, nil
}

// Reset forgets the current client.
func (l *lazyGateway) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gw = nil
}

// Ready reports whether a client can be built with the current settings.
func (l *lazyGateway) Ready(ctx context.Context) error {
	_, err := l.get(ctx)
	return err
}

func (l *lazyGateway) ExtractSymptoms(ctx context.Context, text string) ([]contracts.Symptom, error) {
	gw, err := l.get(ctx)
	if err != nil {
		return nil, &gateway.GenerationError{Op: gateway.OpExtractSymptoms, Err: err}
	}
	return gw.ExtractSymptoms(ctx, text)
}

func (l *lazyGateway) GetAnalysis(ctx context.Context, names []string) (*contracts.AnalysisResults, error) {
	gw, err := l.get(ctx)
	if err != nil {
		return nil, &gateway.GenerationError{Op: gateway.OpGetAnalysis, Err: err}
	}
	return gw.GetAnalysis(ctx, names)
}

func (l *lazyGateway) QuerySource(ctx context.Context, sol contracts.Solution, question string, history []engine.ChatMessage) (string, error) {
	gw, err := l.get(ctx)
	if err != nil {
		return "", &gateway.GenerationError{Op: gateway.OpQuerySource, Err: err}
	}
	return gw.QuerySource(ctx, sol, question, history)
}
