package scheduler

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"adwatch/config"
)

// Scheduler triggers pipeline runs on a cron expression or a fixed interval.
// A trigger that fires while a run is still in progress is skipped; runs
// never overlap.
type Scheduler struct {
	cfg     config.SchedulerConfig
	run     func()
	cron    *cron.Cron
	ticker  *time.Ticker
	done    chan struct{}
	running atomic.Bool
}

func New(cfg config.SchedulerConfig, run func()) *Scheduler {
	return &Scheduler{
		cfg:  cfg,
		run:  run,
		done: make(chan struct{}),
	}
}

// Start begins triggering runs. Cron takes precedence over the interval when
// both are configured.
func (s *Scheduler) Start() error {
	if s.cfg.Cron != "" {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(s.cfg.Cron, s.trigger); err != nil {
			return err
		}
		s.cron.Start()
		log.Printf("Scheduler: cron %q", s.cfg.Cron)
		return nil
	}

	if s.cfg.Interval > 0 {
		s.ticker = time.NewTicker(s.cfg.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.trigger()
				case <-s.done:
					return
				}
			}
		}()
		log.Printf("Scheduler: every %s", s.cfg.Interval)
		return nil
	}

	log.Printf("Scheduler: no cron or interval configured, runs must be triggered manually")
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.ticker != nil {
		s.ticker.Stop()
		close(s.done)
	}
}

func (s *Scheduler) trigger() {
	if !s.running.CompareAndSwap(false, true) {
		log.Printf("Scheduler: previous run still in progress, skipping trigger")
		return
	}
	defer s.running.Store(false)
	s.run()
}
