// Package analysisapi encapsulates the external stutter-analysis HTTP
// contract: multipart upload, timeout, failure classification and retry.
package analysisapi

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/anfastech/slaq-analysis/internal/core/domain"
	"github.com/anfastech/slaq-analysis/internal/core/ports"
	"github.com/anfastech/slaq-analysis/internal/infrastructure/resilience"
)

type Config struct {
	BaseURL         string
	RequestTimeout  time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	HealthTimeout   time.Duration
	DefaultLanguage string
}

type Client struct {
	baseURL         string
	defaultLanguage string
	httpClient      *http.Client
	healthClient    *http.Client
	executor        *resilience.Executor
	limiter         *rate.Limiter
}

func New(cfg Config) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 300 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 10 * time.Second
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "hindi"
	}

	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		defaultLanguage: cfg.DefaultLanguage,
		httpClient:      &http.Client{Timeout: cfg.RequestTimeout},
		healthClient:    &http.Client{Timeout: cfg.HealthTimeout},
		executor:        resilience.NewExecutor(resilience.FixedDelayConfig(cfg.MaxRetries, cfg.RetryDelay)),
		// The analysis endpoint is a shared hosted space; pace requests so
		// a burst of workers does not trip its throttling. The burst covers
		// one call's full retry budget.
		limiter: rate.NewLimiter(rate.Limit(1), cfg.MaxRetries+1),
	}
}

var _ ports.AnalysisService = (*Client)(nil)

// Analyze uploads the audio and returns the raw response mapping unmodified,
// except that a caller-supplied transcript fills an omitted target_transcript.
func (c *Client) Analyze(ctx context.Context, req ports.AnalyzeRequest) (domain.RawAnalysis, error) {
	audio, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read audio file", err)
	}

	filename := filepath.Base(req.AudioPath)
	mimeType := mimeTypeForExtension(filepath.Ext(req.AudioPath))
	langCode := c.ResolveLanguage(req.Language)

	var result domain.RawAnalysis
	call := func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		raw, err := c.postAnalyze(ctx, audio, filename, mimeType, langCode, req.Transcript)
		if err != nil {
			return err
		}
		result = raw
		return nil
	}

	if err := c.executor.Execute(ctx, "analysis.analyze", call, classifyAnalysisError); err != nil {
		return nil, wrapTemporaryIfNeeded("analyze audio", err)
	}

	if transcript := strings.TrimSpace(req.Transcript); transcript != "" {
		if existing, _ := result["target_transcript"].(string); strings.TrimSpace(existing) == "" {
			result["target_transcript"] = transcript
		}
	}
	return result, nil
}

// ResolveLanguage maps a free-form language name or alias to the model's
// 3-letter code. Unknown languages fall back to the configured default and
// never produce an error.
func (c *Client) ResolveLanguage(language string) string {
	return resolveLanguage(language, c.defaultLanguage)
}
