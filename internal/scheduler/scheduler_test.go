package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type mockExpirer struct {
	calls int
	n     int64
	err   error
}

func (m *mockExpirer) ExpireCards(ctx context.Context) (int64, error) {
	m.calls++
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("expected a deadline")
	}
	return m.n, m.err
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestScheduleExpirySweep(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{"daily descriptor", "@daily", false},
		{"five field spec", "0 3 * * *", false},
		{"every", "@every 1h", false},
		{"invalid", "not a spec", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(&mockExpirer{}, quietLogger(), time.UTC)
			err := s.ScheduleExpirySweep(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Errorf("ScheduleExpirySweep(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
		})
	}
}

func TestSweepExpired(t *testing.T) {
	m := &mockExpirer{n: 3}
	s := NewScheduler(m, quietLogger(), nil)
	s.SweepExpired()
	if m.calls != 1 {
		t.Errorf("Expected 1 call, got %d", m.calls)
	}

	m.err = errors.New("db down")
	s.SweepExpired()
	if m.calls != 2 {
		t.Errorf("Expected errors to be logged, not to stop later sweeps; got %d calls", m.calls)
	}
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&mockExpirer{}, quietLogger(), time.UTC)
	if err := s.ScheduleExpirySweep("@daily"); err != nil {
		t.Fatalf("ScheduleExpirySweep failed: %v", err)
	}
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
