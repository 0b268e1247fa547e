package logging

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/correlation"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/models"
)

func newTestPipeline(t *testing.T) (*Pipeline, *mockStore, string) {
	t.Helper()
	dir := t.TempDir()
	local, err := NewLocalWriter(LocalConfig{Dir: dir})
	if err != nil {
		t.Fatalf("NewLocalWriter: %v", err)
	}
	store := &mockStore{}
	remote := NewRemoteWriter(RemoteConfig{
		QueueCapacity: 100,
		BatchSize:     50,
		BatchInterval: time.Minute,
		SyncImmediate: true,
	}, store, local, nil)
	p := NewPipeline("portal-test", local, remote)
	t.Cleanup(p.Close)
	return p, store, dir
}

func TestLogWritesBothDestinations(t *testing.T) {
	p, store, dir := newTestPipeline(t)

	p.Log(context.Background(), models.Record{
		Level:   LevelInfo,
		Message: "member approved",
		Action:  "member.approve",
	}, models.FamilyAudit)

	if got := store.singleCount(); got != 1 {
		t.Fatalf("remote store saw %d records, want 1", got)
	}
	lines := readLines(t, filepath.Join(dir, "audit.log"))
	if len(lines) != 1 {
		t.Fatalf("local audit file has %d lines, want 1", len(lines))
	}
}

func TestLogFillsDefaults(t *testing.T) {
	p, store, _ := newTestPipeline(t)

	before := time.Now().UTC()
	p.Log(context.Background(), models.Record{Message: "bare"}, models.FamilyError)

	store.mu.Lock()
	rec := store.singles[0]
	store.mu.Unlock()

	if rec.Source != "portal-test" {
		t.Errorf("source %q, want pipeline default", rec.Source)
	}
	if rec.Level != LevelInfo {
		t.Errorf("empty level normalized to %q, want INFO", rec.Level)
	}
	if rec.CreatedAt.Before(before) || rec.CreatedAt.After(time.Now().UTC()) {
		t.Errorf("created_at %v not stamped at write time", rec.CreatedAt)
	}
}

func TestLogNormalizesLevelAlias(t *testing.T) {
	p, store, _ := newTestPipeline(t)

	p.Log(context.Background(), models.Record{Level: "warn", Message: "alias"}, models.FamilyError)

	store.mu.Lock()
	rec := store.singles[0]
	store.mu.Unlock()
	if rec.Level != LevelWarning {
		t.Errorf("level %q, want WARNING", rec.Level)
	}
}

func TestLogCopiesCorrelationLabels(t *testing.T) {
	p, store, _ := newTestPipeline(t)

	ctx := correlation.NewContext(context.Background(), &correlation.RequestContext{
		TraceID:   "trace-abc",
		RequestID: "trace-abc-1",
		UserID:    "user-7",
		IPAddress: "10.0.0.9",
		UserAgent: "portal-web/2.4",
	})
	p.Log(ctx, models.Record{Level: LevelInfo, Message: "audited", Action: "login"}, models.FamilyAudit)

	store.mu.Lock()
	rec := store.singles[0]
	store.mu.Unlock()

	if rec.TraceID != "trace-abc" || rec.RequestID != "trace-abc-1" || rec.UserID != "user-7" {
		t.Errorf("correlation labels not copied: %+v", rec)
	}
	if rec.IPAddress != "10.0.0.9" || rec.UserAgent != "portal-web/2.4" {
		t.Errorf("audit actor context not copied: %+v", rec)
	}
}

func TestCallerSuppliedLabelsWin(t *testing.T) {
	p, store, _ := newTestPipeline(t)

	ctx := correlation.NewContext(context.Background(), &correlation.RequestContext{
		TraceID: "ambient-trace",
	})
	p.Log(ctx, models.Record{Level: LevelError, Message: "x", TraceID: "explicit-trace"}, models.FamilyError)

	store.mu.Lock()
	rec := store.singles[0]
	store.mu.Unlock()
	if rec.TraceID != "explicit-trace" {
		t.Errorf("explicit trace id overwritten: %q", rec.TraceID)
	}
}

func TestPerformanceDerivesIsSlow(t *testing.T) {
	p, store, _ := newTestPipeline(t)

	p.Performance(context.Background(), "db", "member.query", 250, 100, nil)
	p.Performance(context.Background(), "db", "member.query", 40, 100, nil)
	p.Close() // drain the performance queue

	store.mu.Lock()
	defer store.mu.Unlock()
	var recs []models.Record
	for _, b := range store.batches {
		recs = append(recs, b...)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d performance records, want 2", len(recs))
	}
	slow, fast := recs[0], recs[1]
	if !slow.IsSlow || slow.Level != LevelWarning {
		t.Errorf("over-threshold measurement: is_slow=%v level=%s, want true/WARNING", slow.IsSlow, slow.Level)
	}
	if fast.IsSlow || fast.Level != LevelInfo {
		t.Errorf("under-threshold measurement: is_slow=%v level=%s, want false/INFO", fast.IsSlow, fast.Level)
	}
	if slow.MetricUnit != "ms" {
		t.Errorf("metric unit %q, want default ms", slow.MetricUnit)
	}
}

func TestUnknownFamilyRoutesAsApplication(t *testing.T) {
	p, store, dir := newTestPipeline(t)

	p.Log(context.Background(), models.Record{Level: LevelInfo, Message: "stray"}, models.Family("bogus"))
	p.Close()

	// Application is a batched family; the record arriving in a batch (not as
	// a single insert) proves the fallback happened before routing.
	if got := store.batchedCount(); got != 1 {
		t.Errorf("got %d batched records, want 1", got)
	}
	if got := store.singleCount(); got != 0 {
		t.Errorf("got %d immediate inserts, want 0", got)
	}
	lines := readLines(t, filepath.Join(dir, "application.log"))
	if len(lines) != 1 {
		t.Errorf("local application file has %d lines, want 1", len(lines))
	}
}
