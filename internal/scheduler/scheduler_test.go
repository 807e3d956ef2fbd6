package scheduler

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type starterFunc func(source string) error

func (f starterFunc) Start(source string) error { return f(source) }

func TestNewRejectsBadSchedule(t *testing.T) {
	tests := []string{"", "every night", "61 2 * * *", "0 2 * *"}
	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			if _, err := New(expr, starterFunc(func(string) error { return nil }), zaptest.NewLogger(t)); err == nil {
				t.Errorf("New(%q) succeeded, want error", expr)
			}
		})
	}
}

func TestNext(t *testing.T) {
	s, err := New("CRON_TZ=UTC 0 2 * * *", starterFunc(func(string) error { return nil }), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	tests := []struct {
		from time.Time
		want time.Time
	}{
		{time.Date(2025, 6, 15, 1, 0, 0, 0, time.UTC), time.Date(2025, 6, 15, 2, 0, 0, 0, time.UTC)},
		{time.Date(2025, 6, 15, 2, 0, 0, 0, time.UTC), time.Date(2025, 6, 16, 2, 0, 0, 0, time.UTC)},
		{time.Date(2025, 6, 30, 23, 0, 0, 0, time.UTC), time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		if got := s.Next(tc.from); !got.Equal(tc.want) {
			t.Errorf("Next(%v) = %v, want %v", tc.from, got, tc.want)
		}
	}
}

func TestSchedulerFiresStarter(t *testing.T) {
	fired := make(chan string, 10)
	starter := starterFunc(func(source string) error {
		fired <- source
		return errors.New("already running")
	})
	s, err := New("@every 1s", starter, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.Start()
	defer s.Stop()

	select {
	case source := <-fired:
		if source != "schedule" {
			t.Errorf("source = %q, want schedule", source)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("scheduler did not fire within 3s")
	}
}
