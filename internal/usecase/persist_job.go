package usecase

import (
	"context"
	"fmt"

	"ThreadForge/internal/domain/models"
	"ThreadForge/internal/domain/repository"
	"ThreadForge/pkg/logger"
	"ThreadForge/pkg/queue"
)

// MsgArtifactPersist is the queue message type for artifact persistence.
const MsgArtifactPersist = "artifact.persist"

// PersistArtifactJob writes generated artifacts to the archive and emits
// the generation event. It runs on queue workers so a slow ClickHouse
// insert never sits on the request path.
type PersistArtifactJob struct {
	archive repository.ArtifactArchive
	events  repository.ArtifactEvents
	logger  *logger.Logger
}

func NewPersistArtifactJob(archive repository.ArtifactArchive, events repository.ArtifactEvents, lgr *logger.Logger) *PersistArtifactJob {
	return &PersistArtifactJob{
		archive: archive,
		events:  events,
		logger:  lgr,
	}
}

func (j *PersistArtifactJob) Name() string { return "persist-artifact" }

func (j *PersistArtifactJob) Type() string { return MsgArtifactPersist }

func (j *PersistArtifactJob) Handle(ctx context.Context, payload interface{}) error {
	artifact, err := queue.ParsePayload[models.GeneratedArtifact](payload)
	if err != nil {
		return fmt.Errorf("parse artifact payload: %w", err)
	}

	if err := j.archive.SaveArtifact(ctx, artifact); err != nil {
		return fmt.Errorf("save artifact %s: %w", artifact.ID, err)
	}

	if err := j.events.ArtifactGenerated(ctx, artifact); err != nil {
		// The artifact is stored; a lost event is not worth a retry that
		// would re-insert the row.
		j.logger.Warn("artifact event publish failed",
			logger.String("artifact_id", artifact.ID),
			logger.Error(err),
		)
	}
	return nil
}
