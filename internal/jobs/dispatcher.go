package job

import (
	"context"
	"log/slog"

	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/service"
)

// InlineDispatcher publishes inside the tick.
type InlineDispatcher struct {
	publisher service.PublishService
}

func NewInlineDispatcher(publisher service.PublishService) *InlineDispatcher {
	return &InlineDispatcher{publisher: publisher}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, post *models.Post) error {
	status, err := d.publisher.Publish(ctx, post)
	if err != nil {
		return err
	}
	slog.Info("post processed", "post_id", post.ID, "status", status)
	return nil
}
