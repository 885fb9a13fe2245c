package models

import (
	"testing"
	"time"
)

func TestFieldsMergeIsAdditive(t *testing.T) {
	f := Fields{FieldTargetAmount: "100", FieldExpectedReturn: ""}
	f.Merge(Fields{
		FieldTargetAmount:     "999",
		FieldExpectedReturn:   "25%",
		FieldPaymentFrequency: "monthly",
		FieldProjectType:      "",
	})

	if f[FieldTargetAmount] != "100" {
		t.Errorf("existing value overwritten: %q", f[FieldTargetAmount])
	}
	if f[FieldExpectedReturn] != "25%" {
		t.Errorf("empty value should be filled, got %q", f[FieldExpectedReturn])
	}
	if f[FieldPaymentFrequency] != "monthly" {
		t.Errorf("new key missing")
	}
	if f.Has(FieldProjectType) {
		t.Errorf("empty values must not be merged")
	}
}

func TestRowFollowsColumns(t *testing.T) {
	rec := NewEnrichedRecord(&ListingRecord{
		ProjectName: "Alpha",
		PlatformURL: "https://hamafarin.ir/x",
		ScrapedAt:   time.Date(2025, 7, 1, 10, 30, 0, 0, time.UTC),
	}, "run-1")
	rec.Details.Set(FieldTargetAmount, "5,000")
	rec.Outcome = OutcomeMatched

	row := rec.Row()
	if len(row) != len(Columns) {
		t.Fatalf("row length: got %d, want %d", len(row), len(Columns))
	}
	for i, c := range Columns {
		if row[i] != rec.Value(c) {
			t.Errorf("column %s: row %q != value %q", c, row[i], rec.Value(c))
		}
	}
	if rec.Value(ColScrapedDate) != "2025/07/01 10:30:00" {
		t.Errorf("scraped date: got %q", rec.Value(ColScrapedDate))
	}
	if rec.Value(string(FieldTargetAmount)) != "5,000" {
		t.Errorf("detail column lookup failed")
	}
	if rec.Value(ColRunID) != "run-1" {
		t.Errorf("run id: got %q", rec.Value(ColRunID))
	}
}

func TestColumnsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Columns {
		if seen[c] {
			t.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}
	if !IsColumn(ColUniqueKey) || IsColumn("drop table") {
		t.Error("IsColumn mismatch")
	}
}
