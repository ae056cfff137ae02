package repository

import (
	"context"

	"ThreadForge/internal/domain/models"
)

// UsageStore tracks per-user daily generation counts and plans.
type UsageStore interface {
	// GetDailyUsage returns how many generations the user consumed today.
	GetDailyUsage(ctx context.Context, userID string) (int, error)

	// GetPlan returns the user's subscription plan, defaulting to free.
	GetPlan(ctx context.Context, userID string) (string, error)

	// IncrementUsage atomically bumps today's counter and returns the new value.
	IncrementUsage(ctx context.Context, userID string) (int, error)
}

// ArtifactArchive persists generated threads for later retrieval.
type ArtifactArchive interface {
	SaveArtifact(ctx context.Context, artifact *models.GeneratedArtifact) error
	RecentArtifacts(ctx context.Context, userID string, limit int) ([]models.GeneratedArtifact, error)
}

// ArtifactEvents publishes generation events to downstream consumers.
type ArtifactEvents interface {
	ArtifactGenerated(ctx context.Context, artifact *models.GeneratedArtifact) error
}

// MarketData fetches the market context a prompt may reference.
type MarketData interface {
	TokenSnapshot(ctx context.Context, topic string) (*models.TokenSnapshot, error)
	TopicNews(ctx context.Context, topic string, limit int) ([]models.NewsItem, error)
	Proposals(ctx context.Context, topic string, limit int) ([]models.GovernanceProposal, error)
}

// Metrics records pipeline observability signals.
type Metrics interface {
	RecordGeneration(outcome string)
	RecordModelAttempt(model, result string)
	RecordStageLatency(stage string, seconds float64)
	RecordUsageCommit(plan string)
	RecordError(kind string)
}

// ModelGateway calls a remote chat-completion model.
type ModelGateway interface {
	// Complete sends the prompt pair to the given model and returns the raw
	// response body. The body is returned even on malformed responses so the
	// sanitizer can classify it.
	Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
}
