package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/talent-matcher/internal/logger"
	"alfredoptarigan/talent-matcher/internal/repositories"
)

type Worker interface {
	Start(ctx context.Context)
	Stop()
	Enqueue(profileID uuid.UUID)
}

type WorkerOptions struct {
	Concurrency  int
	PollInterval time.Duration
	BatchSize    int
	QueueSize    int
}

type worker struct {
	profiles  repositories.ProfileRepository
	refresher EmbeddingRefresher
	opts      WorkerOptions
	jobQueue  chan uuid.UUID
	wg        sync.WaitGroup
	stopChan  chan struct{}
	stopOnce  sync.Once
	log       *zap.Logger
}

// NewWorker builds the embedding refresh worker: a pool of goroutines fed by
// Enqueue and by a poller that picks up stale profiles.
func NewWorker(profiles repositories.ProfileRepository, refresher EmbeddingRefresher, opts WorkerOptions, log *zap.Logger) Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}

	return &worker{
		profiles:  profiles,
		refresher: refresher,
		opts:      opts,
		jobQueue:  make(chan uuid.UUID, opts.QueueSize),
		stopChan:  make(chan struct{}),
		log:       logger.OrNop(log).Named("worker"),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.log.Info("starting embedding refresh worker", zap.Int("concurrency", w.opts.Concurrency))

	for i := 0; i < w.opts.Concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollStaleProfiles(ctx)
}

// Stop implements Worker. It waits for in-flight refreshes to finish.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info("stopping embedding refresh worker")
		close(w.stopChan)
	})
	w.wg.Wait()
}

// Enqueue implements Worker. A full queue drops the job; the poller picks the
// profile up later since it stays stale.
func (w *worker) Enqueue(profileID uuid.UUID) {
	select {
	case <-w.stopChan:
		w.log.Warn("worker stopped, cannot enqueue profile", zap.String(logger.FieldProfileID, profileID.String()))
	case w.jobQueue <- profileID:
	default:
		w.log.Debug("refresh queue full, deferring to poller", zap.String(logger.FieldProfileID, profileID.String()))
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log := w.log.With(zap.Int("worker_id", workerID))

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case profileID := <-w.jobQueue:
			if err := w.refresher.Refresh(ctx, profileID); err != nil {
				log.Warn("failed to refresh embedding",
					zap.String(logger.FieldProfileID, profileID.String()),
					zap.Error(err),
				)
			}
		}
	}
}

func (w *worker) pollStaleProfiles(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			stale, err := w.profiles.FindStale(ctx, w.opts.BatchSize)
			if err != nil {
				w.log.Warn("failed to fetch stale profiles", zap.Error(err))
				continue
			}

			if len(stale) > 0 {
				w.log.Debug("found stale profiles", zap.Int("count", len(stale)))
			}

			for _, p := range stale {
				w.Enqueue(p.ID)
			}
		}
	}
}
