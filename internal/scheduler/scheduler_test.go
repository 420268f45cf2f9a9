package scheduler

import (
	"sync"
	"testing"
	"time"
)

type fakeEvicter struct {
	mu      sync.Mutex
	calls   int
	maxIdle time.Duration
	evicted int
}

func (f *fakeEvicter) EvictIdle(maxIdle time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.maxIdle = maxIdle
	return f.evicted
}

func (f *fakeEvicter) snapshot() (int, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.maxIdle
}

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	if err := s.AddJob("* * * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
	if err := s.AddJob("@every 1h", func() {}); err != nil {
		t.Errorf("Expected descriptor to parse, got %v", err)
	}
	if err := s.AddJob("not a cron line", func() {}); err == nil {
		t.Errorf("Expected error for invalid expression")
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 jobs, got %d", s.Len())
	}
}

func TestSweepSessions(t *testing.T) {
	e := &fakeEvicter{evicted: 3}
	if n := SweepSessions(e, time.Minute); n != 3 {
		t.Errorf("expected 3 evicted, got %d", n)
	}
	calls, maxIdle := e.snapshot()
	if calls != 1 || maxIdle != time.Minute {
		t.Errorf("unexpected evicter call: calls=%d maxIdle=%v", calls, maxIdle)
	}
}

func TestScheduleSessionSweep(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	e := &fakeEvicter{}
	if err := s.ScheduleSessionSweep(SessionSweepSpec, e, 0); err != nil {
		t.Fatalf("ScheduleSessionSweep: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("expected sweep to be registered")
	}
	if err := s.ScheduleSessionSweep("bogus", e, time.Minute); err == nil {
		t.Errorf("expected error for invalid spec")
	}
}

func TestScheduleSessionSweepRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the cron tick")
	}
	s := NewScheduler()
	defer s.Stop()

	e := &fakeEvicter{}
	if err := s.ScheduleSessionSweep("@every 1s", e, 0); err != nil {
		t.Fatalf("ScheduleSessionSweep: %v", err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if calls, maxIdle := e.snapshot(); calls > 0 {
			if maxIdle != DefaultSessionIdleTTL {
				t.Errorf("expected default idle TTL, got %v", maxIdle)
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("sweep did not run")
}
