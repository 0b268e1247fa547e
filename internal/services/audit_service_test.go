package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/logging"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/models"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/repositories"
)

type fakeAuditStore struct {
	mu         sync.Mutex
	audits     []models.Record
	deleted    int64 // rows each delete reports
	deleteErr  error
	lastTarget string
}

func (s *fakeAuditStore) Insert(_ context.Context, family models.Family, rec models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if family == models.FamilyAudit {
		s.audits = append(s.audits, rec)
	}
	return nil
}

func (s *fakeAuditStore) InsertBatch(context.Context, models.Family, []models.Record) error {
	return nil
}
func (s *fakeAuditStore) List(context.Context, repositories.ListFilter) ([]models.Record, int64, error) {
	return nil, 0, nil
}
func (s *fakeAuditStore) GetByID(context.Context, models.Family, int64) (*models.Record, error) {
	return nil, nil
}

func (s *fakeAuditStore) DeleteAuditByID(_ context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	return s.deleted, nil
}

func (s *fakeAuditStore) DeleteAuditByAction(_ context.Context, action string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTarget = action
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	return s.deleted, nil
}

func (s *fakeAuditStore) Ping(context.Context) error { return nil }
func (s *fakeAuditStore) Close() error               { return nil }

func (s *fakeAuditStore) auditRecords() []models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Record, len(s.audits))
	copy(out, s.audits)
	return out
}

func newTestAuditService(t *testing.T, store *fakeAuditStore) *AuditService {
	t.Helper()
	local, err := logging.NewLocalWriter(logging.LocalConfig{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewLocalWriter: %v", err)
	}
	remote := logging.NewRemoteWriter(logging.RemoteConfig{
		QueueCapacity: 10,
		BatchSize:     10,
		BatchInterval: time.Minute,
		SyncImmediate: true,
	}, store, local, nil)
	pipeline := logging.NewPipeline("audit-test", local, remote)
	t.Cleanup(pipeline.Close)
	return NewAuditService(pipeline, store, nil)
}

func TestAuditWritesAuditFamilyRecord(t *testing.T) {
	store := &fakeAuditStore{}
	svc := newTestAuditService(t, store)

	svc.Audit(context.Background(), "member.approve", "member", "m-17", "success",
		map[string]interface{}{"approver": "admin-3"})

	recs := store.auditRecords()
	if len(recs) != 1 {
		t.Fatalf("got %d audit records, want 1", len(recs))
	}
	r := recs[0]
	if r.Action != "member.approve" || r.ResourceType != "member" || r.ResourceID != "m-17" {
		t.Errorf("action fields not carried: %+v", r)
	}
	if r.Result != "success" {
		t.Errorf("result %q, want success", r.Result)
	}
	if r.ExtraData["approver"] != "admin-3" {
		t.Errorf("extra data lost: %v", r.ExtraData)
	}
	if r.Level != logging.LevelInfo {
		t.Errorf("audit level %s, want INFO", r.Level)
	}
}

func TestDeleteByIDAuditsItself(t *testing.T) {
	store := &fakeAuditStore{deleted: 1}
	svc := newTestAuditService(t, store)

	n, err := svc.DeleteByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}

	recs := store.auditRecords()
	if len(recs) != 1 {
		t.Fatalf("deletion produced %d audit records, want 1", len(recs))
	}
	r := recs[0]
	if r.Action != "audit.delete" || r.ResourceType != "audit_log" || r.ResourceID != "42" {
		t.Errorf("self-audit fields wrong: %+v", r)
	}
	if r.Result != "success" {
		t.Errorf("result %q, want success", r.Result)
	}
	if got, ok := r.ExtraData["deleted_count"].(int64); !ok || got != 1 {
		t.Errorf("deleted_count %v, want 1", r.ExtraData["deleted_count"])
	}
}

func TestFailedDeletionIsStillAudited(t *testing.T) {
	store := &fakeAuditStore{deleteErr: errors.New("store offline")}
	svc := newTestAuditService(t, store)

	_, err := svc.DeleteByAction(context.Background(), "member.approve")
	if err == nil {
		t.Fatal("expected the store error to propagate")
	}

	recs := store.auditRecords()
	if len(recs) != 1 {
		t.Fatalf("failed deletion produced %d audit records, want 1", len(recs))
	}
	r := recs[0]
	if r.Result != "failure" {
		t.Errorf("result %q, want failure", r.Result)
	}
	if r.ExtraData["error"] != "store offline" {
		t.Errorf("failure reason not recorded: %v", r.ExtraData)
	}
	if r.ResourceID != "member.approve" {
		t.Errorf("deletion target %q, want the action name", r.ResourceID)
	}
}
