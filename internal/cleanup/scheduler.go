// Package cleanup purges expired result artifacts from the download dir.
package cleanup

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/aquainfra/mitgcm-ogc-backend/internal/results"
	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	store    *results.LocalStore
	ttl      time.Duration
	schedule string
	cron     *cron.Cron
}

// NewScheduler creates a scheduler that removes artifacts older than ttl
// on the given cron schedule (with seconds field).
func NewScheduler(store *results.LocalStore, ttl time.Duration, schedule string) *Scheduler {
	return &Scheduler{
		store:    store,
		ttl:      ttl,
		schedule: schedule,
	}
}

// Start initializes the cron task.
func (s *Scheduler) Start() {
	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc(s.schedule, func() {
		s.RunOnce()
	})
	if err != nil {
		log.Printf("Failed to create cleanup cron job: %v", err)
		return
	}

	log.Printf("Cleanup scheduler started (schedule %q, ttl %s)", s.schedule, s.ttl)
	c.Start()
	s.cron = c
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// RunOnce deletes all artifacts older than the TTL and returns how many
// were removed.
func (s *Scheduler) RunOnce() int {
	log.Println("Cleanup job started...")

	entries, err := s.store.List(context.Background())
	if err != nil {
		log.Printf("Cleanup failed to list artifacts: %v", err)
		return 0
	}

	cutoff := time.Now().Add(-s.ttl)
	removed := 0
	for _, e := range entries {
		path := filepath.Join(s.store.Dir(), e.Name)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := s.store.Remove(context.Background(), e.Name); err != nil {
			log.Printf("Cleanup failed to remove %s: %v", e.Name, err)
			continue
		}
		removed++
	}

	log.Printf("Cleanup job completed, removed %d artifacts at: %s", removed, time.Now().Format(time.RFC1123))
	return removed
}
