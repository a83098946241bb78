package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	config "github.com/maheshrc27/reelflow/configs"
	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/repository"
)

const (
	defaultBatchSize   = 25
	defaultConcurrency = 5
	defaultClaimLease  = 30 * time.Minute

	staleClaimMessage = "publish interrupted"
)

// Dispatcher takes over a post that this tick has claimed. It must either
// drive the post to a terminal state or hand the claim back.
type Dispatcher interface {
	Dispatch(ctx context.Context, post *models.Post) error
}

type TickReport struct {
	Stale      int64
	Candidates int
	Claimed    int
	Skipped    int
	Dispatched int
}

// PostSchedulerJob moves due posts from scheduled to a terminal state. Only
// posts the tick has claimed are dispatched, so overlapping ticks, here or on
// another instance, never publish the same post twice.
type PostSchedulerJob struct {
	pr          repository.PostRepository
	dispatcher  Dispatcher
	batchSize   int
	concurrency int
	lease       time.Duration

	running atomic.Bool
	ticks   sync.WaitGroup
	now     func() time.Time
}

func NewPostSchedulerJob(pr repository.PostRepository, dispatcher Dispatcher, cfg config.Scheduler) *PostSchedulerJob {
	j := &PostSchedulerJob{
		pr:          pr,
		dispatcher:  dispatcher,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		lease:       cfg.ClaimLease,
		now:         time.Now,
	}
	if j.batchSize <= 0 {
		j.batchSize = defaultBatchSize
	}
	if j.concurrency <= 0 {
		j.concurrency = defaultConcurrency
	}
	if j.lease <= 0 {
		j.lease = defaultClaimLease
	}
	return j
}

// Run is the cron entry point. A tick that fires while the previous one is
// still working is dropped.
func (j *PostSchedulerJob) Run() {
	if !j.running.CompareAndSwap(false, true) {
		slog.Info("scheduler tick skipped, previous tick still running")
		return
	}
	j.ticks.Add(1)
	defer j.ticks.Done()
	defer j.running.Store(false)

	report, err := j.RunOnce(context.Background(), j.now())
	if err != nil {
		slog.Info("scheduler tick failed", "error", err.Error())
		return
	}
	if report.Candidates > 0 || report.Stale > 0 {
		slog.Info("scheduler tick",
			"stale", report.Stale,
			"candidates", report.Candidates,
			"claimed", report.Claimed,
			"skipped", report.Skipped,
			"dispatched", report.Dispatched)
	}
}

// Wait blocks until a running tick has finished.
func (j *PostSchedulerJob) Wait() {
	j.ticks.Wait()
}

func (j *PostSchedulerJob) RunOnce(ctx context.Context, now time.Time) (TickReport, error) {
	var report TickReport

	stale, err := j.pr.FailStale(ctx, now.Add(-j.lease), staleClaimMessage, now)
	if err != nil {
		slog.Info("fail stale claims", "error", err.Error())
	}
	report.Stale = stale

	due, err := j.pr.FindDue(ctx, now, j.batchSize)
	if err != nil {
		return report, fmt.Errorf("find due posts: %w", err)
	}
	report.Candidates = len(due)

	claimed := make([]*models.Post, 0, len(due))
	for _, post := range due {
		ok, err := j.pr.Claim(ctx, post.ID, now)
		if err != nil {
			slog.Info("claim post", "post_id", post.ID, "error", err.Error())
			report.Skipped++
			continue
		}
		if !ok {
			slog.Info("post skipped", "post_id", post.ID, "reason", "not_due_or_already_claimed")
			report.Skipped++
			continue
		}
		claimedAt := now
		post.Status = models.PostStatusPublishing
		post.ClaimedAt = &claimedAt
		claimed = append(claimed, post)
	}
	report.Claimed = len(claimed)

	var (
		wg         sync.WaitGroup
		dispatched atomic.Int64
	)
	semaphore := make(chan struct{}, j.concurrency)

	for _, post := range claimed {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(post *models.Post) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if j.dispatch(ctx, post) {
				dispatched.Add(1)
			}
		}(post)
	}
	wg.Wait()

	report.Dispatched = int(dispatched.Load())
	return report, nil
}

// dispatch is the per-post boundary: nothing that happens to one post can
// stop the others.
func (j *PostSchedulerJob) dispatch(ctx context.Context, post *models.Post) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("publish panicked", "post_id", post.ID, "panic", fmt.Sprint(r))
			message := fmt.Sprintf("internal error: %v", r)
			if _, err := j.pr.MarkFailed(context.WithoutCancel(ctx), post.ID, message, j.now()); err != nil {
				slog.Info("mark panicked post failed", "post_id", post.ID, "error", err.Error())
			}
			ok = false
		}
	}()

	if err := j.dispatcher.Dispatch(ctx, post); err != nil {
		slog.Info("dispatch post", "post_id", post.ID, "error", err.Error())
		return false
	}
	return true
}
