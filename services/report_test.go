package services

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"crowdfund-scraper/models"
)

func sampleSummary() *RunSummary {
	mk := func(name, adapter string, outcome models.Outcome, target string) *models.EnrichedRecord {
		r := enriched(name, "Co", "1404/01/01", "https://x.ir/"+name)
		r.Adapter = adapter
		r.Outcome = outcome
		r.Details.Set(models.FieldTargetAmount, target)
		return r
	}
	records := []*models.EnrichedRecord{
		mk("Alpha", "hamafarin", models.OutcomeMatched, "100"),
		mk("Beta", "hamafarin", models.OutcomeNoMatch, ""),
		mk("Gamma", "zeema", models.OutcomeMatched, "300"),
		mk("Delta", "", models.OutcomeSkipped, ""),
		mk("Epsilon", "generic", models.OutcomeFailed, ""),
	}
	return &RunSummary{
		RunID:    "run-7",
		Records:  records,
		New:      records[:2],
		Existing: 12,
		Appended: 2,
	}
}

func TestReportCounts(t *testing.T) {
	svc := NewReportService(newTestLogger())
	r := svc.Generate(sampleSummary())

	if r.Total != 5 {
		t.Errorf("Total: got %d, want 5", r.Total)
	}
	if r.ByOutcome[models.OutcomeMatched] != 2 {
		t.Errorf("matched: got %d, want 2", r.ByOutcome[models.OutcomeMatched])
	}
	if r.New != 2 || r.Appended != 2 || r.Existing != 12 {
		t.Errorf("store counts: got new=%d appended=%d existing=%d", r.New, r.Appended, r.Existing)
	}
	if r.Coverage[models.FieldTargetAmount] != 2 {
		t.Errorf("target coverage: got %d, want 2", r.Coverage[models.FieldTargetAmount])
	}
}

func TestReportAdapterGrouping(t *testing.T) {
	svc := NewReportService(newTestLogger())
	r := svc.Generate(sampleSummary())

	want := []string{"-", "generic", "hamafarin", "zeema"}
	if len(r.ByAdapter) != len(want) {
		t.Fatalf("ByAdapter len: got %d, want %d", len(r.ByAdapter), len(want))
	}
	for i, a := range r.ByAdapter {
		if a.Adapter != want[i] {
			t.Errorf("ByAdapter[%d]: got %q, want %q", i, a.Adapter, want[i])
		}
	}
	if r.ByAdapter[2].Counts[models.OutcomeNoMatch] != 1 {
		t.Errorf("hamafarin no_match: got %d, want 1", r.ByAdapter[2].Counts[models.OutcomeNoMatch])
	}
}

func TestReportSamples(t *testing.T) {
	svc := NewReportService(newTestLogger())
	r := svc.Generate(sampleSummary())
	if len(r.Samples) != 3 {
		t.Fatalf("Samples len: got %d, want 3", len(r.Samples))
	}
	if r.Samples[0].ProjectName != "Alpha" {
		t.Errorf("Samples[0]: got %q, want Alpha", r.Samples[0].ProjectName)
	}
}

func TestReportPrint(t *testing.T) {
	svc := NewReportService(newTestLogger())
	sum := sampleSummary()
	sum.StoreErr = errors.New("sheets: append: quota exceeded")

	var buf bytes.Buffer
	svc.Print(&buf, svc.Generate(sum))
	out := buf.String()

	for _, want := range []string{"run-7", "hamafarin", "Alpha", "Gamma", "quota exceeded", "target_amount"} {
		if !strings.Contains(out, want) {
			t.Errorf("report output missing %q", want)
		}
	}
	if strings.Contains(out, "Epsilon") {
		t.Error("only the first three projects are sampled")
	}
}

func TestReportEmptyInput(t *testing.T) {
	svc := NewReportService(newTestLogger())
	r := svc.Generate(&RunSummary{RunID: "run-0"})
	if r.Total != 0 || len(r.Samples) != 0 {
		t.Errorf("expected empty report, got total=%d samples=%d", r.Total, len(r.Samples))
	}

	var buf bytes.Buffer
	svc.Print(&buf, r)
	if !strings.Contains(buf.String(), "No projects collected") {
		t.Error("empty report should say no projects were collected")
	}
}
