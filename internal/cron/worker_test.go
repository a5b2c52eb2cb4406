package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bher20/shipratemanager/internal/rates"
	"github.com/bher20/shipratemanager/internal/storage"
)

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context) (*rates.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &rates.Result{Outcome: rates.OutcomeSkipped}, nil
}

type fakeAlerter struct {
	jobs []string
}

func (f *fakeAlerter) SendFailureAlert(ctx context.Context, job string, err error, dur time.Duration) error {
	f.jobs = append(f.jobs, job)
	return nil
}

// lockedStore pretends another replica holds the lock.
type lockedStore struct {
	*storage.MemoryStorage
	released int
}

func (l *lockedStore) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	return false, nil
}

func (l *lockedStore) ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	l.released++
	return true, nil
}

func TestNextRun(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		setting string
		want    time.Time
	}{
		{"300", base.Add(5 * time.Minute)},
		{"@every 30m", base.Add(30 * time.Minute)},
		{"0 12 * * *", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
		{"garbage", base.Add(time.Hour)},
		{"-5", base.Add(time.Hour)},
	}
	for _, tc := range cases {
		if got := NextRun(tc.setting, base); !got.Equal(tc.want) {
			t.Errorf("NextRun(%q): expected %s, got %s", tc.setting, tc.want, got)
		}
	}
}

func TestRunOnce_Success(t *testing.T) {
	ref := &fakeRefresher{}
	alerts := &fakeAlerter{}
	w := NewWorker(ref, storage.NewMemory(), "60", alerts)
	if w.locker == nil {
		t.Fatal("memory storage should provide advisory locks")
	}
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if ref.calls != 1 || len(alerts.jobs) != 0 {
		t.Errorf("unexpected calls=%d alerts=%v", ref.calls, alerts.jobs)
	}
}

func TestRunOnce_FailureAlerts(t *testing.T) {
	ref := &fakeRefresher{err: errors.New("boom")}
	alerts := &fakeAlerter{}
	w := NewWorker(ref, storage.NewMemory(), "60", alerts)
	if err := w.RunOnce(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if len(alerts.jobs) != 1 || alerts.jobs[0] != jobName {
		t.Errorf("expected one failure alert, got %v", alerts.jobs)
	}
}

func TestRunOnce_LockHeldSkips(t *testing.T) {
	ref := &fakeRefresher{}
	st := &lockedStore{MemoryStorage: storage.NewMemory()}
	w := NewWorker(ref, st, "60", nil)
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if ref.calls != 0 {
		t.Errorf("refresh must not run without the lock")
	}
	if st.released != 0 {
		t.Errorf("lock not acquired, so nothing to release")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	ref := &fakeRefresher{}
	w := NewWorker(ref, storage.NewMemory(), "3600", nil)
	w.tick = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if ref.calls != 1 {
		t.Errorf("expected one immediate run, got %d", ref.calls)
	}
}
