package generation

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Service is the external text-generation capability: prompt and model
// in, text and token usage out. Implementations are expected to fail
// with errors Classify can bucket.
type Service interface {
	Generate(ctx context.Context, prompt, model string) (string, Usage, error)
}

// Usage is the token accounting of one successful call.
type Usage struct {
	PromptTokens int
	OutputTokens int
}

// UsageRecorder receives one record per successful generation call.
type UsageRecorder interface {
	Record(ctx context.Context, credential, model string, usage Usage)
}

// Credential pairs a non-secret label with the Service authenticated by
// it. The client rotates across credentials round-robin, which
// multiplies the retry budget.
type Credential struct {
	Label   string
	Service Service
}

type Config struct {
	MaxConcurrent  int           // permit pool size shared by all callers of this client
	Retries        int           // attempts per credential
	FallbackAfter  int           // consecutive model-unavailable failures before switching model
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 6
	}
	if c.Retries <= 0 {
		c.Retries = 2
	}
	if c.FallbackAfter <= 0 {
		c.FallbackAfter = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 8 * time.Second
	}
	return c
}

// Client is the rate-limited, retrying, model-fallback wrapper around
// the generation capability. All shared state (the permit pool and the
// credential rotation cursor) lives on the instance, so independent
// clients can coexist (and be tested) without touching globals.
type Client struct {
	creds  []Credential
	cfg    Config
	usage  UsageRecorder
	logger *slog.Logger

	permits    chan struct{}
	credCursor atomic.Uint64 // round-robin rotation across credentials
}

func NewClient(creds []Credential, cfg Config, usage UsageRecorder, logger *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		creds:   creds,
		cfg:     cfg,
		usage:   usage,
		logger:  logger,
		permits: make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Generate runs one prompt against the model chain. It blocks on the
// permit pool, so concurrent calls against the backing service never
// exceed MaxConcurrent. Exhaustion of every attempt across all
// credentials and fallback models returns ("", nil): callers treat an
// empty result as "no insight produced", never as a fault. The only
// error returned is context cancellation.
func (c *Client) Generate(ctx context.Context, prompt, model string, fallbacks []string) (string, error) {
	if len(c.creds) == 0 {
		c.logger.Error("generation client has no credentials configured")
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	select {
	case c.permits <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-c.permits }()

	models := append([]string{model}, fallbacks...)
	maxAttempts := c.cfg.Retries * len(c.creds)
	state := NewRetryState(maxAttempts, len(models), c.cfg.FallbackAfter, c.cfg.InitialBackoff, c.cfg.MaxBackoff)

	for {
		cred := c.creds[c.rotate()]
		activeModel := models[state.ModelIndex]

		text, usage, err := cred.Service.Generate(ctx, prompt, activeModel)
		if err == nil {
			if c.usage != nil {
				c.usage.Record(ctx, cred.Label, activeModel, usage)
			}
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		class := Classify(err)
		var decision Decision
		state, decision = state.Next(class)

		c.logger.Warn("generation attempt failed",
			"credential", cred.Label,
			"model", activeModel,
			"class", class.String(),
			"decision", decision.String(),
			"attempt", state.Attempt,
			"error", err)

		switch decision {
		case DecisionExhausted:
			c.logger.Error("generation exhausted all attempts",
				"model", model,
				"fallbacks", len(fallbacks),
				"attempts", state.Attempt)
			return "", nil
		case DecisionFallback:
			continue
		case DecisionRetry:
			if state.Sleep > 0 {
				timer := time.NewTimer(state.Sleep)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return "", ctx.Err()
				}
			}
		}
	}
}

// rotate advances the round-robin credential cursor.
func (c *Client) rotate() int {
	return int((c.credCursor.Add(1) - 1) % uint64(len(c.creds)))
}
