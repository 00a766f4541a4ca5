// Package scheduler runs the periodic housekeeping jobs: relay stream
// eviction and upload retention.
package scheduler

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/directorchair/directorchair/internal/database"
	"github.com/directorchair/directorchair/internal/logger"
)

var log = logger.Tag("scheduler")

// Sweeper evicts stale relay streams. *relay.Registry satisfies it.
type Sweeper interface {
	Sweep(now time.Time) int
}

// MediaStore is the subset of the media index the retention job needs.
type MediaStore interface {
	MediaCreatedBefore(cutoff time.Time) ([]database.Media, error)
	DeleteMedia(id string) error
}

// FileRemover deletes stored uploads. *storage.FileStore satisfies it.
type FileRemover interface {
	Remove(key string) error
	PurgeOlderThan(cutoff time.Time) ([]string, error)
}

type JobConfig struct {
	Name     string
	CronExpr string
	Run      func()
}

type Scheduler struct {
	cron    *cron.Cron
	entries map[string]cron.EntryID
	jobs    map[string]JobConfig
	mu      sync.Mutex
	now     func() time.Time
}

func New() *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		entries: make(map[string]cron.EntryID),
		jobs:    make(map[string]JobConfig),
		now:     time.Now,
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Success("Scheduler started (%d jobs)", len(s.Entries()))
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Success("Scheduler stopped")
}

// AddJob registers or replaces a job by name.
func (s *Scheduler) AddJob(cfg JobConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.entries[cfg.Name]; exists {
		s.cron.Remove(entryID)
		delete(s.entries, cfg.Name)
	}

	job := cfg
	entryID, err := s.cron.AddFunc(cfg.CronExpr, func() { s.execute(job) })
	if err != nil {
		log.Error("Failed to add job %s: %v", cfg.Name, err)
		return err
	}

	s.entries[cfg.Name] = entryID
	s.jobs[cfg.Name] = cfg
	log.Debug("Added job %s with cron=%s", cfg.Name, cfg.CronExpr)
	return nil
}

func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.entries[name]; exists {
		s.cron.Remove(entryID)
		delete(s.entries, name)
		delete(s.jobs, name)
		log.Info("Removed job %s", name)
	}
}

// RunNow executes a registered job synchronously.
func (s *Scheduler) RunNow(name string) bool {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.execute(job)
	return true
}

// Entries returns the registered job names.
func (s *Scheduler) Entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

func (s *Scheduler) execute(job JobConfig) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job %s panicked: %v", job.Name, r)
		}
	}()
	job.Run()
}

// AddRelaySweep evicts relay streams older than their TTL every interval.
func (s *Scheduler) AddRelaySweep(sw Sweeper, every time.Duration) error {
	return s.AddJob(JobConfig{
		Name:     "relay-sweep",
		CronExpr: "@every " + every.String(),
		Run: func() {
			if n := sw.Sweep(s.now()); n > 0 {
				log.Info("Evicted %d stale SSE streams", n)
			}
		},
	})
}

// AddUploadRetention deletes uploads older than retention once an hour.
func (s *Scheduler) AddUploadRetention(db MediaStore, files FileRemover, retention time.Duration) error {
	return s.AddJob(JobConfig{
		Name:     "upload-retention",
		CronExpr: "0 0 * * * *",
		Run: func() {
			s.purgeUploads(db, files, retention)
		},
	})
}

func (s *Scheduler) purgeUploads(db MediaStore, files FileRemover, retention time.Duration) {
	cutoff := s.now().Add(-retention)

	expired, err := db.MediaCreatedBefore(cutoff)
	if err != nil {
		log.Error("Upload retention query failed: %v", err)
		return
	}
	for _, m := range expired {
		if err := files.Remove(m.StorageKey); err != nil {
			log.Warn("Failed to remove %s: %v", m.StorageKey, err)
		}
		if m.ThumbnailKey != "" {
			files.Remove(m.ThumbnailKey)
		}
		if err := db.DeleteMedia(m.ID); err != nil {
			log.Warn("Failed to delete media %s: %v", m.ID, err)
		}
	}

	orphans, err := files.PurgeOlderThan(cutoff)
	if err != nil {
		log.Error("Upload retention sweep failed: %v", err)
	}
	if total := len(expired) + len(orphans); total > 0 {
		log.Info("Upload retention: removed %d records, %d stray files", len(expired), len(orphans))
	}
}
