package queue

import (
	"github.com/maheshrc27/reelflow/internal/repository"
	"github.com/maheshrc27/reelflow/internal/service"
)

// Queue runs publish tasks handed over by the scheduler.
type Queue struct {
	pr        repository.PostRepository
	publisher service.PublishService
}

func NewQueue(pr repository.PostRepository, publisher service.PublishService) *Queue {
	return &Queue{
		pr:        pr,
		publisher: publisher,
	}
}

const TaskTypePublishPost = "post:publish"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}
