package sched

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		want     time.Duration
		wantErr  bool
	}{
		{"@every 5m", 5 * time.Minute, false},
		{"@every 10s", 10 * time.Second, false},
		{"@minutely", time.Minute, false},
		{"@hourly", time.Hour, false},
		{"@daily", 24 * time.Hour, false},
		{"@every banana", 0, true},
		{"@every -5s", 0, true},
		{"* * * * *", 0, true},
		{"", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseSchedule(tc.schedule)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseSchedule(%q): expected error", tc.schedule)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSchedule(%q): %v", tc.schedule, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseSchedule(%q) = %v, want %v", tc.schedule, got, tc.want)
		}
	}
}

func TestSchedulerRunsDueJobs(t *testing.T) {
	s := New(zap.NewNop())
	s.tick = 10 * time.Millisecond

	var runs int64
	if err := s.ScheduleFunc("counter", "@every 30ms", func() error {
		atomic.AddInt64(&runs, 1)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}

	got := atomic.LoadInt64(&runs)
	if got < 2 {
		t.Errorf("expected the job to run repeatedly, got %d runs", got)
	}
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := New(zap.NewNop())
	if err := s.ScheduleFunc("bad", "whenever", func() error { return nil }); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestSchedulerDoubleStart(t *testing.T) {
	s := New(zap.NewNop())
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err == nil {
		t.Error("expected error on second Start")
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(); err == nil {
		t.Error("expected error on second Stop")
	}
}
