package aigw

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeTimer records requested backoff delays and fires immediately.
type fakeTimer struct {
	delays []time.Duration
	ch     chan time.Time
}

func (t *fakeTimer) Start(d time.Duration) {
	t.delays = append(t.delays, d)
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	t.ch = ch
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }

func TestSupervisor_RetriesTransientThenSucceeds(t *testing.T) {
	timer := &fakeTimer{}
	s := &Supervisor{MaxRetries: 4, BaseDelay: time.Second, timer: timer}

	calls := 0
	err := s.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return newError(KindParseMalformed, "attempt %d", calls)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}

	// Exponential: 1s then 2s.
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(timer.delays) != len(want) {
		t.Fatalf("recorded %d delays, want %d (%v)", len(timer.delays), len(want), timer.delays)
	}
	var total time.Duration
	for i, d := range timer.delays {
		if d != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, d, want[i])
		}
		total += d
	}
	if total != 3*time.Second {
		t.Errorf("total backoff = %v, want 3s", total)
	}
}

func TestSupervisor_FatalNotRetried(t *testing.T) {
	s := &Supervisor{MaxRetries: 4, BaseDelay: time.Second, timer: &fakeTimer{}}

	fatal := errors.New("connection refused")
	calls := 0
	err := s.Do(context.Background(), func() error {
		calls++
		return fatal
	})
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
	if !errors.Is(err, fatal) {
		t.Errorf("Do() error = %v, want the original fatal error", err)
	}
}

func TestSupervisor_UpstreamErrorNotRetried(t *testing.T) {
	s := &Supervisor{MaxRetries: 4, BaseDelay: time.Second, timer: &fakeTimer{}}

	calls := 0
	err := s.Do(context.Background(), func() error {
		calls++
		return newError(KindUpstreamQuota, "rate limited")
	})
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
	if KindOf(err) != KindUpstreamQuota {
		t.Errorf("Do() kind = %v, want %v", KindOf(err), KindUpstreamQuota)
	}
}

func TestSupervisor_ExhaustionReturnsLastTransient(t *testing.T) {
	s := &Supervisor{MaxRetries: 2, BaseDelay: time.Second, timer: &fakeTimer{}}

	calls := 0
	err := s.Do(context.Background(), func() error {
		calls++
		return newError(KindParseEmpty, "attempt %d", calls)
	})
	if calls != 3 { // first try + 2 retries
		t.Errorf("op called %d times, want 3", calls)
	}
	if KindOf(err) != KindParseEmpty {
		t.Errorf("Do() kind = %v, want %v", KindOf(err), KindParseEmpty)
	}
}
