package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRecordJSONCarriesStoreID(t *testing.T) {
	b, err := json.Marshal(Record{ID: 42, Source: "portal", Level: "INFO", Message: "m"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// Admin responses marshal records directly; the id must survive so the
	// detail and deletion endpoints can be driven from a listing.
	if got, ok := decoded["id"].(float64); !ok || got != 42 {
		t.Errorf("id field %v, want 42", decoded["id"])
	}
}

func TestRecordJSONOmitsUnassignedID(t *testing.T) {
	// Local file lines are written before any store assigns an id.
	b, err := json.Marshal(Record{Source: "portal", Level: "INFO", Message: "m"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), `"id"`) {
		t.Errorf("zero id should be omitted: %s", b)
	}
}
