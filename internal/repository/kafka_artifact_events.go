package repository

import (
	"context"

	"ThreadForge/internal/domain/models"
	"ThreadForge/internal/domain/repository"
	"ThreadForge/pkg/kafka"
	"ThreadForge/pkg/logger"
)

// artifactEvent is the wire shape published on generation. Raw content is
// deliberately excluded to keep messages small.
type artifactEvent struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Topic       string `json:"topic"`
	Tone        string `json:"tone"`
	PostCount   int    `json:"post_count"`
	IsFallback  bool   `json:"is_fallback"`
	Watermarked bool   `json:"watermarked"`
	ModelID     string `json:"model_id"`
	GeneratedAt int64  `json:"generated_at"`
}

// KafkaArtifactEvents publishes generation events for downstream consumers.
type KafkaArtifactEvents struct {
	producer *kafka.Producer
	topic    string
	logger   *logger.Logger
}

func NewKafkaArtifactEvents(producer *kafka.Producer, topic string, lgr *logger.Logger) repository.ArtifactEvents {
	return &KafkaArtifactEvents{
		producer: producer,
		topic:    topic,
		logger:   lgr,
	}
}

func (e *KafkaArtifactEvents) ArtifactGenerated(ctx context.Context, artifact *models.GeneratedArtifact) error {
	event := artifactEvent{
		ID:          artifact.ID,
		UserID:      artifact.UserID,
		Topic:       artifact.Topic,
		Tone:        artifact.Tone,
		PostCount:   len(artifact.Posts),
		IsFallback:  artifact.IsFallback,
		Watermarked: artifact.Watermarked,
		ModelID:     artifact.ModelID,
		GeneratedAt: artifact.GeneratedAt.UnixMilli(),
	}

	// Key by user so per-user events stay ordered within a partition.
	return e.producer.Publish(ctx, e.topic, []byte(artifact.UserID), event)
}

// NoopArtifactEvents is used when Kafka is disabled in config.
type NoopArtifactEvents struct{}

func (NoopArtifactEvents) ArtifactGenerated(context.Context, *models.GeneratedArtifact) error {
	return nil
}
