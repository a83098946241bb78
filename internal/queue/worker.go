package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/service"
)

// HandlePublishPostTask publishes one post. Terminal outcomes return nil;
// asynq never retries a publish.
func (j *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	post, err := j.pr.GetByID(ctx, payload.PostID)
	if err != nil {
		return err
	}
	if post == nil || post.Status != models.PostStatusPublishing {
		slog.Info("publish task skipped", "post_id", payload.PostID)
		return nil
	}

	status, err := j.publisher.Publish(ctx, post)
	if errors.Is(err, service.ErrClaimLost) {
		slog.Info("publish task skipped", "post_id", post.ID, "error", err.Error())
		return nil
	}
	if err != nil {
		return err
	}

	slog.Info("post processed", "post_id", post.ID, "status", status)
	return nil
}
