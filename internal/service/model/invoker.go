package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ThreadForge/internal/domain/models"
	"ThreadForge/internal/domain/repository"
	"ThreadForge/pkg/logger"
)

// InvokerConfig controls the two-tier invocation policy.
type InvokerConfig struct {
	PrimaryModel   string
	FallbackModel  string
	AttemptTimeout time.Duration
}

// Attempt records one model call for diagnostics. BodySnippet carries the
// start of the response body when the attempt failed, so gateway error
// pages stay diagnosable.
type Attempt struct {
	Model       string
	Duration    time.Duration
	Err         error
	Reason      string
	BodySnippet string
}

const bodySnippetLen = 200

// Result is a successful invocation.
type Result struct {
	RawBody  string
	ModelID  string
	Attempts []Attempt
}

// Invoker runs the primary model and, on failure, the fallback model.
// At most two gateway calls happen per generation, each bounded by the
// attempt timeout. A third attempt never occurs.
type Invoker struct {
	gateway repository.ModelGateway
	metrics repository.Metrics
	cfg     InvokerConfig
	logger  *logger.Logger
}

func NewInvoker(gateway repository.ModelGateway, metrics repository.Metrics, cfg InvokerConfig, lgr *logger.Logger) *Invoker {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 60 * time.Second
	}
	return &Invoker{
		gateway: gateway,
		metrics: metrics,
		cfg:     cfg,
		logger:  lgr,
	}
}

// Invoke tries the primary model, then the fallback model. The caller's
// context cancels both; a cancelled parent context stops the sequence
// immediately instead of burning the fallback attempt.
func (i *Invoker) Invoke(ctx context.Context, systemPrompt, userPrompt string) (*Result, error) {
	attempts := make([]Attempt, 0, 2)

	for _, modelID := range []string{i.cfg.PrimaryModel, i.cfg.FallbackModel} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attempt := i.call(ctx, modelID, systemPrompt, userPrompt)
		attempts = append(attempts, attempt.Attempt)

		if attempt.Err == nil {
			i.metrics.RecordModelAttempt(modelID, "ok")
			return &Result{
				RawBody:  attempt.raw,
				ModelID:  modelID,
				Attempts: attempts,
			}, nil
		}

		i.metrics.RecordModelAttempt(modelID, attempt.Reason)
		i.logger.Warn("model attempt failed",
			logger.String("model", modelID),
			logger.String("reason", attempt.Reason),
			logger.String("body", attempt.BodySnippet),
			logger.Duration("duration", attempt.Duration),
			logger.Error(attempt.Err),
		)
	}

	return nil, fmt.Errorf("%w: %d attempts exhausted", models.ErrModelGatewayUnavailable, len(attempts))
}

func (i *Invoker) call(ctx context.Context, modelID, systemPrompt, userPrompt string) attemptResult {
	callCtx, cancel := context.WithTimeout(ctx, i.cfg.AttemptTimeout)
	defer cancel()

	start := time.Now()
	raw, err := i.gateway.Complete(callCtx, modelID, systemPrompt, userPrompt)
	dur := time.Since(start)

	attempt := Attempt{
		Model:    modelID,
		Duration: dur,
		Err:      err,
		Reason:   classify(err),
	}
	if err != nil {
		attempt.BodySnippet = snippet(raw)
	}

	return attemptResult{Attempt: attempt, raw: raw}
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > bodySnippetLen {
		s = s[:bodySnippetLen]
	}
	return s
}

type attemptResult struct {
	Attempt
	raw string
}

func classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case strings.Contains(err.Error(), "status"):
		return "http"
	case strings.Contains(err.Error(), "empty"):
		return "empty"
	default:
		return "network"
	}
}
