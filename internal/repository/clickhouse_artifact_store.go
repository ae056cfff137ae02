package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ThreadForge/internal/domain/models"
	"ThreadForge/internal/domain/repository"
	"ThreadForge/pkg/clickhouse"
	"ThreadForge/pkg/logger"
)

var artifactSchema = []string{
	`CREATE DATABASE IF NOT EXISTS threadforge`,
	`CREATE TABLE IF NOT EXISTS threadforge.artifacts (
		id           String,
		user_id      String,
		topic        String,
		tone         String,
		raw_content  String,
		posts        String,
		sentiment    String,
		is_fallback  UInt8,
		watermarked  UInt8,
		model_id     String,
		generated_at DateTime64(3, 'UTC')
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(generated_at)
	ORDER BY (user_id, generated_at)`,
}

// ClickHouseArtifactStore archives generated threads in ClickHouse.
type ClickHouseArtifactStore struct {
	client *clickhouse.Client
	logger *logger.Logger
}

func NewClickHouseArtifactStore(client *clickhouse.Client, lgr *logger.Logger) (repository.ArtifactArchive, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, artifactSchema); err != nil {
		return nil, fmt.Errorf("artifact schema: %w", err)
	}

	return &ClickHouseArtifactStore{
		client: client,
		logger: lgr,
	}, nil
}

func (s *ClickHouseArtifactStore) SaveArtifact(ctx context.Context, artifact *models.GeneratedArtifact) error {
	posts, err := json.Marshal(artifact.Posts)
	if err != nil {
		return fmt.Errorf("marshal posts: %w", err)
	}
	sentiment, err := json.Marshal(artifact.Sentiment)
	if err != nil {
		return fmt.Errorf("marshal sentiment: %w", err)
	}

	query := `INSERT INTO threadforge.artifacts
		(id, user_id, topic, tone, raw_content, posts, sentiment, is_fallback, watermarked, model_id, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.client.DB().ExecContext(ctx, query,
		artifact.ID,
		artifact.UserID,
		artifact.Topic,
		artifact.Tone,
		artifact.RawContent,
		string(posts),
		string(sentiment),
		boolToUInt8(artifact.IsFallback),
		boolToUInt8(artifact.Watermarked),
		artifact.ModelID,
		artifact.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

func (s *ClickHouseArtifactStore) RecentArtifacts(ctx context.Context, userID string, limit int) ([]models.GeneratedArtifact, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `SELECT id, user_id, topic, tone, raw_content, posts, sentiment,
		is_fallback, watermarked, model_id, generated_at
		FROM threadforge.artifacts
		WHERE user_id = ?
		ORDER BY generated_at DESC
		LIMIT ?`

	rows, err := s.client.DB().QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var out []models.GeneratedArtifact
	for rows.Next() {
		var (
			a           models.GeneratedArtifact
			posts       string
			sentiment   string
			isFallback  uint8
			watermarked uint8
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Topic, &a.Tone, &a.RawContent,
			&posts, &sentiment, &isFallback, &watermarked, &a.ModelID, &a.GeneratedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}

		if err := json.Unmarshal([]byte(posts), &a.Posts); err != nil {
			s.logger.Warn("corrupt posts column", logger.String("artifact_id", a.ID), logger.Error(err))
		}
		if err := json.Unmarshal([]byte(sentiment), &a.Sentiment); err != nil {
			s.logger.Warn("corrupt sentiment column", logger.String("artifact_id", a.ID), logger.Error(err))
		}
		a.IsFallback = isFallback == 1
		a.Watermarked = watermarked == 1
		out = append(out, a)
	}
	return out, rows.Err()
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
