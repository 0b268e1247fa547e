package logging

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/models"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/repositories"
)

type mockStore struct {
	mu      sync.Mutex
	singles []models.Record
	batches [][]models.Record
	err     error // if set, every insert fails with it
}

func (m *mockStore) Insert(_ context.Context, _ models.Family, rec models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.singles = append(m.singles, rec)
	return nil
}

func (m *mockStore) InsertBatch(_ context.Context, _ models.Family, recs []models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	batch := make([]models.Record, len(recs))
	copy(batch, recs)
	m.batches = append(m.batches, batch)
	return nil
}

func (m *mockStore) List(context.Context, repositories.ListFilter) ([]models.Record, int64, error) {
	return nil, 0, nil
}
func (m *mockStore) GetByID(context.Context, models.Family, int64) (*models.Record, error) {
	return nil, nil
}
func (m *mockStore) DeleteAuditByID(context.Context, int64) (int64, error) { return 0, nil }
func (m *mockStore) DeleteAuditByAction(context.Context, string) (int64, error) {
	return 0, nil
}
func (m *mockStore) Ping(context.Context) error { return nil }
func (m *mockStore) Close() error               { return nil }

func (m *mockStore) batchedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func (m *mockStore) singleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.singles)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

func appRecord(msg string) models.Record {
	return models.Record{Level: LevelInfo, Message: msg}
}

func TestBatchFlushesWhenFull(t *testing.T) {
	store := &mockStore{}
	w := NewRemoteWriter(RemoteConfig{
		QueueCapacity: 100,
		BatchSize:     5,
		BatchInterval: time.Minute, // far away: only the size trigger can fire
	}, store, nil, nil)
	defer w.Stop()

	for i := 0; i < 5; i++ {
		w.Write(appRecord(fmt.Sprintf("sized-%d", i)), models.FamilyApplication)
	}

	waitFor(t, 2*time.Second, func() bool { return store.batchedCount() == 5 },
		"full batch not flushed")
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(store.batches))
	}
	for i, rec := range store.batches[0] {
		if want := fmt.Sprintf("sized-%d", i); rec.Message != want {
			t.Errorf("batch position %d holds %q, want %q (enqueue order lost)", i, rec.Message, want)
		}
	}
}

func TestBatchFlushesOnInterval(t *testing.T) {
	store := &mockStore{}
	w := NewRemoteWriter(RemoteConfig{
		QueueCapacity: 100,
		BatchSize:     50, // never reached: only the timer can fire
		BatchInterval: 150 * time.Millisecond,
	}, store, nil, nil)
	defer w.Stop()

	w.Write(appRecord("timed-1"), models.FamilyApplication)
	w.Write(appRecord("timed-2"), models.FamilyApplication)

	waitFor(t, 2*time.Second, func() bool { return store.batchedCount() == 2 },
		"partial batch not flushed on interval")
}

func TestFullQueueDropsInsteadOfBlocking(t *testing.T) {
	store := &mockStore{}
	w := NewRemoteWriter(RemoteConfig{
		QueueCapacity: 2,
		BatchSize:     10,
		BatchInterval: time.Minute,
	}, store, nil, nil)

	// Push directly without starting workers so nothing drains the queue.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			w.enqueue(appRecord("burst"), models.FamilyApplication)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}

	stats := w.Snapshot()
	if got := stats.QueueDepth[models.FamilyApplication]; got != 2 {
		t.Errorf("queue depth %d, want 2", got)
	}
	if got := stats.Dropped[models.FamilyApplication]; got != 3 {
		t.Errorf("dropped %d, want 3", got)
	}
}

func TestImmediateFamiliesSkipTheQueue(t *testing.T) {
	store := &mockStore{}
	w := NewRemoteWriter(RemoteConfig{SyncImmediate: true}, store, nil, nil)
	defer w.Stop()

	w.Write(models.Record{Level: LevelError, Message: "boom"}, models.FamilyError)
	w.Write(models.Record{Level: LevelInfo, Message: "did a thing"}, models.FamilyAudit)
	w.Write(models.Record{Level: LevelWarning, Message: "pipeline note"}, models.FamilySystem)

	if got := store.singleCount(); got != 3 {
		t.Fatalf("got %d immediate inserts, want 3", got)
	}
	if got := store.batchedCount(); got != 0 {
		t.Errorf("immediate families must not be batched, got %d batched records", got)
	}
}

func TestStopDrainsQueuedRecords(t *testing.T) {
	store := &mockStore{}
	w := NewRemoteWriter(RemoteConfig{
		QueueCapacity: 100,
		BatchSize:     50,
		BatchInterval: time.Minute, // queued records can only leave through Stop's drain
	}, store, nil, nil)

	for i := 0; i < 20; i++ {
		w.Write(appRecord("drain"), models.FamilyApplication)
	}
	w.Stop()

	if got := store.batchedCount(); got != 20 {
		t.Errorf("after Stop, %d records delivered, want 20", got)
	}
	if d := w.Snapshot().Discarded; d != 0 {
		t.Errorf("no records should be discarded on a clean drain, got %d", d)
	}
}

func TestWritesAfterStopAreDropped(t *testing.T) {
	store := &mockStore{}
	w := NewRemoteWriter(RemoteConfig{QueueCapacity: 10}, store, nil, nil)
	w.Stop()

	before := w.Snapshot().Dropped[models.FamilyApplication]
	w.Write(appRecord("late"), models.FamilyApplication)
	after := w.Snapshot().Dropped[models.FamilyApplication]
	if after != before+1 {
		t.Errorf("post-stop write not counted as dropped: before=%d after=%d", before, after)
	}

	// The immediate path must refuse post-stop records too; the store may
	// already be closed by the time such a write races in.
	w.Write(models.Record{Level: LevelError, Message: "late boom"}, models.FamilyError)
	if got := w.Snapshot().Dropped[models.FamilyError]; got != 1 {
		t.Errorf("post-stop immediate write not counted as dropped: %d", got)
	}
	if got := store.singleCount(); got != 0 {
		t.Errorf("post-stop immediate write reached the store: %d inserts", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	w := NewRemoteWriter(RemoteConfig{}, &mockStore{}, nil, nil)
	w.Stop()
	w.Stop()
}

func TestMinLevelGateOnRemotePath(t *testing.T) {
	store := &mockStore{}
	w := NewRemoteWriter(RemoteConfig{
		MinLevel:      LevelError,
		SyncImmediate: true,
	}, store, nil, nil)
	defer w.Stop()

	w.Write(models.Record{Level: LevelInfo, Message: "filtered"}, models.FamilyAudit)
	w.Write(models.Record{Level: LevelCritical, Message: "kept"}, models.FamilyError)

	if got := store.singleCount(); got != 1 {
		t.Fatalf("got %d inserts, want 1 (INFO filtered by ERROR gate)", got)
	}
}

func TestDeliveryFailureCountsAndReportsLocally(t *testing.T) {
	dir := t.TempDir()
	local, err := NewLocalWriter(LocalConfig{Dir: dir})
	if err != nil {
		t.Fatalf("NewLocalWriter: %v", err)
	}
	defer local.Close()

	store := &mockStore{err: errors.New("ORA-03113: end-of-file on communication channel")}
	w := NewRemoteWriter(RemoteConfig{SyncImmediate: true}, store, local, nil)
	defer w.Stop()

	w.Write(models.Record{Level: LevelError, Message: "boom"}, models.FamilyError)

	if got := w.Snapshot().RemoteFailures; got != 1 {
		t.Errorf("remote failures %d, want 1", got)
	}
	// The failure report lands in the application file (system family).
	lines := readLines(t, filepath.Join(dir, "application.log"))
	if len(lines) != 1 {
		t.Fatalf("expected one failure report line, got %d", len(lines))
	}
}
