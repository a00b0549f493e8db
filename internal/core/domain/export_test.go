package domain

import "testing"

func TestNewExport(t *testing.T) {
	e := NewExport("products", "admin")

	if e.ID == "" {
		t.Error("expected non-empty ID")
	}
	if e.Status != ExportStatusPending {
		t.Errorf("expected status %s, got %s", ExportStatusPending, e.Status)
	}
	if e.IndexName != "products" || e.RequestedBy != "admin" {
		t.Errorf("unexpected export: %+v", e)
	}
	if e.IsTerminal() {
		t.Error("pending export should not be terminal")
	}
}

func TestExport_Lifecycle(t *testing.T) {
	e := NewExport("products", "admin")

	e.MarkRunning()
	if e.Status != ExportStatusRunning || e.StartedAt == nil {
		t.Fatalf("expected running export with start time, got %+v", e)
	}

	records := []Record{{"objectID": "1"}, {"objectID": "2"}}
	e.MarkCompleted(records, 1)

	if e.Status != ExportStatusCompleted {
		t.Errorf("expected status %s, got %s", ExportStatusCompleted, e.Status)
	}
	if e.RecordCount != 2 || e.PageCount != 1 {
		t.Errorf("expected 2 records over 1 page, got %d over %d", e.RecordCount, e.PageCount)
	}
	if e.CompletedAt == nil || !e.IsTerminal() {
		t.Error("expected completed export to be terminal")
	}
}

func TestExport_MarkFailed(t *testing.T) {
	e := NewExport("products", "admin")
	e.MarkRunning()
	e.MarkFailed("rate limited")

	if e.Status != ExportStatusFailed || e.Error != "rate limited" {
		t.Errorf("unexpected export: %+v", e)
	}
	if !e.IsTerminal() {
		t.Error("failed export should be terminal")
	}
}

func TestExport_Summary(t *testing.T) {
	e := NewExport("products", "admin")
	e.MarkCompleted([]Record{{"objectID": "1"}}, 1)

	s := e.Summary()
	if s.Records != nil {
		t.Error("summary should drop records")
	}
	if s.RecordCount != 1 {
		t.Errorf("summary should keep record count, got %d", s.RecordCount)
	}
	if len(e.Records) != 1 {
		t.Error("summary must not mutate the original")
	}
}
