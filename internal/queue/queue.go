package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	config "github.com/maheshrc27/reelflow/configs"
	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/repository"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher hands claimed posts to asynq instead of publishing them in the
// scheduler tick.
type Dispatcher struct {
	client  Enqueuer
	pr      repository.PostRepository
	timeout time.Duration
}

func NewDispatcher(client Enqueuer, pr repository.PostRepository, timeout time.Duration) *Dispatcher {
	return &Dispatcher{client: client, pr: pr, timeout: timeout}
}

func taskID(postID int64) string {
	return fmt.Sprintf("post:%d", postID)
}

func (d *Dispatcher) Dispatch(ctx context.Context, post *models.Post) error {
	taskPayload, err := json.Marshal(PublishPostPayload{PostID: post.ID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishPost, taskPayload)
	opts := []asynq.Option{asynq.MaxRetry(0), asynq.TaskID(taskID(post.ID))}
	if d.timeout > 0 {
		opts = append(opts, asynq.Timeout(d.timeout+config.PublishSlack))
	}

	_, err = d.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		slog.Info("publish task already queued", "post_id", post.ID)
		return nil
	}
	if err != nil {
		// Nothing reached the publish API yet, so the post can go back to
		// the scheduler.
		released, rerr := d.pr.ReleaseClaim(context.WithoutCancel(ctx), post.ID)
		if rerr != nil {
			return fmt.Errorf("enqueue post %d: %w (release claim: %v)", post.ID, err, rerr)
		}
		if !released {
			slog.Info("claim not released", "post_id", post.ID)
		}
		return fmt.Errorf("enqueue post %d: %w", post.ID, err)
	}

	slog.Info("publish task queued", "post_id", post.ID)
	return nil
}
