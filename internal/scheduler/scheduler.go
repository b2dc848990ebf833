package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/dagim-a/solar-data-dashboard/internal/catalog"
)

// Scheduler periodically rescans the dataset catalog as a safety net for
// missed filesystem events.
type Scheduler struct {
	scheduler *gocron.Scheduler
	catalog   *catalog.Catalog
	interval  time.Duration
}

// New creates a new Scheduler.
func New(cat *catalog.Catalog, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		catalog:   cat,
		interval:  interval,
	}
}

// Start schedules the periodic rescan and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		log.Println("scheduler: rescanning dataset catalog")
		if err := s.catalog.Rescan(); err != nil {
			log.Printf("scheduler: rescan failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
