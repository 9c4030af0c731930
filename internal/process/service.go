// Package process runs the recognition pipeline and the connection check on
// behalf of the HTTP API and the CLI.
package process

import (
	"context"
	"strings"
	"time"

	"aitex/internal/cache"
	"aitex/internal/config"
	"aitex/internal/convert"
	"aitex/internal/core"
	"aitex/internal/imaging"
	"aitex/internal/latex"
	"aitex/internal/metrics"
	"aitex/internal/upstream"
	"aitex/internal/validate"

	"github.com/google/uuid"
)

// ServiceConfig holds the collaborators of a Service.
type ServiceConfig struct {
	Store   *config.Store
	Client  *upstream.Client
	Storage core.StorageInterface
	Results *cache.ResultCache
	Metrics core.MetricsCollector
	Logger  core.Logger
}

// Service orchestrates normalize, build, send and sanitize.
// Each call works on its own copy of the configuration; the store lock is
// only held while copying.
type Service struct {
	store     *config.Store
	client    *upstream.Client
	storage   core.StorageInterface
	results   *cache.ResultCache
	metrics   core.MetricsCollector
	logger    core.Logger
	validator *validate.ImageValidator
}

// NewService creates a Service. Missing optional collaborators are replaced
// by defaults or no-ops; Storage and Results may stay nil.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = &core.NopLogger{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &core.NopMetrics{}
	}
	if cfg.Store == nil {
		cfg.Store = config.NewStore(config.DefaultRecognitionConfig())
	}
	if cfg.Client == nil {
		cfg.Client = upstream.NewClient(nil, cfg.Metrics, cfg.Logger)
	}
	return &Service{
		store:     cfg.Store,
		client:    cfg.Client,
		storage:   cfg.Storage,
		results:   cfg.Results,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		validator: validate.NewImageValidator(),
	}
}

// CurrentConfig returns a snapshot of the active configuration.
func (s *Service) CurrentConfig() core.RecognitionConfig {
	return s.store.Get()
}

// Recognize runs the pipeline on raw with the active configuration.
func (s *Service) Recognize(ctx context.Context, raw []byte) (*core.RecognitionResult, error) {
	return s.RecognizeWithConfig(ctx, s.store.Get(), raw)
}

// CheckReady reports whether cfg may run a recognition at all.
// Callers that read input themselves run it before touching the input.
func (s *Service) CheckReady(cfg core.RecognitionConfig) error {
	if !cfg.Enabled {
		return core.ErrPipelineDisabled()
	}
	if cfg.APIKey == "" {
		return core.ErrMissingCredential()
	}
	return nil
}

// RecognizeWithConfig runs the pipeline on raw with cfg.
// A disabled config or an empty key is rejected before anything else happens.
func (s *Service) RecognizeWithConfig(ctx context.Context, cfg core.RecognitionConfig, raw []byte) (*core.RecognitionResult, error) {
	if err := s.CheckReady(cfg); err != nil {
		return nil, err
	}

	startTime := time.Now()
	result, err := s.runPipeline(ctx, cfg, raw)
	if err != nil {
		metrics.RecordFailureWithMetrics(s.metrics, startTime, cfg.ModelName, cfg.Provider, err)
		s.logger.Warn("Recognition failed after %v: %v", time.Since(startTime), err)
		return nil, err
	}
	metrics.RecordSuccessWithMetrics(s.metrics, startTime, cfg.ModelName, cfg.Provider)

	if s.results != nil {
		s.results.SetResult(result)
	}

	s.logger.Info("Recognition %s completed in %v (brightness=%d, inverted=%v, %d chars)",
		result.ID, time.Since(startTime), result.Brightness, result.Inverted, len(result.Latex))
	return result, nil
}

func (s *Service) runPipeline(ctx context.Context, cfg core.RecognitionConfig, raw []byte) (*core.RecognitionResult, error) {
	if _, err := s.validator.ValidateImageBytes(raw); err != nil {
		return nil, err
	}

	img, err := imaging.Normalize(raw)
	if err != nil {
		return nil, err
	}
	if img.Inverted {
		s.metrics.RecordInversion()
		s.logger.Debug("Inverted %dx%d %s image (average brightness %d)", img.Width, img.Height, img.Format, img.Brightness)
	}

	png, err := img.EncodePNG()
	if err != nil {
		return nil, err
	}

	reply, err := s.client.Send(ctx, cfg, convert.BuildRecognitionRequest(cfg, png))
	if err != nil {
		return nil, err
	}

	emptyReply := strings.TrimSpace(reply) == ""
	if emptyReply {
		s.logger.Warn("Model %s returned an empty reply", cfg.ModelName)
	}

	return &core.RecognitionResult{
		ID:         uuid.NewString(),
		Latex:      latex.Sanitize(reply),
		EmptyReply: emptyReply,
		Inverted:   img.Inverted,
		Brightness: img.Brightness,
		Model:      cfg.ModelName,
		Provider:   cfg.Provider,
		CreatedAt:  time.Now(),
	}, nil
}

// ValidateConnection checks cfg field by field and then sends a probe request.
// Errors from the probe are returned unchanged.
func (s *Service) ValidateConnection(ctx context.Context, cfg core.RecognitionConfig) error {
	if err := validate.ValidateConfig(cfg); err != nil {
		return err
	}

	if _, err := s.client.Send(ctx, cfg, convert.BuildProbeRequest(cfg)); err != nil {
		s.logger.Warn("Connection check against %s failed: %v", cfg.APIBaseURL, err)
		return err
	}

	s.logger.Info("Connection check against %s succeeded (model %s)", cfg.APIBaseURL, cfg.ModelName)
	return nil
}

// SaveConfig validates cfg, makes it the active configuration and persists it.
// The active configuration is replaced even if persisting fails.
func (s *Service) SaveConfig(ctx context.Context, cfg core.RecognitionConfig) error {
	if err := s.ValidateConnection(ctx, cfg); err != nil {
		return err
	}

	s.store.Set(cfg)

	if s.storage == nil {
		return nil
	}
	if err := s.storage.SaveConfig(&cfg); err != nil {
		return core.ErrIO("save configuration", err)
	}
	return nil
}

// LookupResult returns a recent result by ID.
func (s *Service) LookupResult(id string) (*core.RecognitionResult, bool) {
	if s.results == nil {
		return nil, false
	}
	return s.results.GetResult(id)
}
