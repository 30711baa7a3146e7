package sched

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ParseSchedule turns a schedule expression into a fixed interval. Supported
// forms: "@every <duration>", "@minutely", "@hourly", "@daily".
func ParseSchedule(schedule string) (time.Duration, error) {
	switch {
	case strings.HasPrefix(schedule, "@every "):
		d, err := time.ParseDuration(strings.TrimPrefix(schedule, "@every "))
		if err != nil {
			return 0, fmt.Errorf("invalid duration in schedule %q: %w", schedule, err)
		}
		if d <= 0 {
			return 0, fmt.Errorf("schedule %q: interval must be positive", schedule)
		}
		return d, nil
	case schedule == "@minutely":
		return time.Minute, nil
	case schedule == "@hourly":
		return time.Hour, nil
	case schedule == "@daily":
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid schedule %q: use @every <duration>, @minutely, @hourly or @daily", schedule)
	}
}

type job struct {
	name     string
	interval time.Duration
	fn       func() error

	mu      sync.Mutex
	lastRun time.Time
	nextRun time.Time
}

// Scheduler runs named background jobs on fixed intervals: the dedup sweep
// and the optional periodic full scan. Jobs run in their own goroutine so a
// slow job never delays the others.
type Scheduler struct {
	log  *zap.Logger
	tick time.Duration

	mu      sync.Mutex
	jobs    []*job
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func New(log *zap.Logger) *Scheduler {
	return &Scheduler{
		log:    log,
		tick:   time.Second,
		stopCh: make(chan struct{}),
	}
}

// ScheduleFunc registers a job. Jobs must be registered before Start.
func (s *Scheduler) ScheduleFunc(name, schedule string, fn func() error) error {
	interval, err := ParseSchedule(schedule)
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, &job{
		name:     name,
		interval: interval,
		fn:       fn,
		nextRun:  time.Now().Add(interval),
	})
	return nil
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}
	s.running = true
	s.wg.Add(1)
	go s.run()
	return nil
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.runDue(time.Now())
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) runDue(now time.Time) {
	s.mu.Lock()
	jobs := s.jobs
	s.mu.Unlock()

	for _, j := range jobs {
		j.mu.Lock()
		if now.Before(j.nextRun) {
			j.mu.Unlock()
			continue
		}
		j.lastRun = now
		j.nextRun = now.Add(j.interval)
		j.mu.Unlock()

		s.wg.Add(1)
		go func(j *job) {
			defer s.wg.Done()
			if err := j.fn(); err != nil {
				s.log.Error("scheduled job failed",
					zap.String("job", j.name),
					zap.Error(err))
			}
		}(j)
	}
}

// Stop halts the tick loop and waits for in-flight jobs.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return errors.New("scheduler not running")
	}
	s.running = false
	s.mu.Unlock()
	close(s.stopCh)
	s.wg.Wait()
	return nil
}
