// Package scheduler drives periodic background work off cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/bookshelf/internal/tasks"
)

// ShelfRefreshScheduler enqueues a shelf refresh task on a cron schedule.
// It also enqueues one refresh immediately on start so the homepage has
// data before the first tick.
type ShelfRefreshScheduler struct {
	taskClient *tasks.Client
	schedule   string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewShelfRefreshScheduler creates a new scheduler instance.
func NewShelfRefreshScheduler(taskClient *tasks.Client, schedule string) *ShelfRefreshScheduler {
	return &ShelfRefreshScheduler{
		taskClient: taskClient,
		schedule:   schedule,
		cron:       cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler and enqueues an initial refresh.
func (s *ShelfRefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.enqueueRefresh()
	})
	if err != nil {
		return fmt.Errorf("invalid shelf refresh schedule %q: %w", s.schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Shelf refresh scheduler: started with schedule %q", s.schedule)

	// Fill the shelves right away instead of waiting for the first tick
	s.enqueueRefresh()

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler.
func (s *ShelfRefreshScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Shelf refresh scheduler: stopped")
}

func (s *ShelfRefreshScheduler) enqueueRefresh() {
	if _, err := s.taskClient.Add(tasks.RefreshShelvesTask{}).Save(); err != nil {
		log.Printf("Shelf refresh scheduler: failed to enqueue refresh: %v", err)
	}
}
