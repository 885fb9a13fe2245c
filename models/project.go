package models

import (
	"time"
)

// ScrapedAtLayout is the layout used when a capture timestamp is written out.
const ScrapedAtLayout = "2006/01/02 15:04:05"

// ListingRecord is one row of the IFB crowdfunding listing, as scraped.
type ListingRecord struct {
	RowNumber    string
	ProjectName  string
	CompanyName  string
	NationalID   string
	PlatformURL  string
	Status       string
	StartDate    string
	EndDate      string
	Description  string
	DocumentsURL string
	IFBProjectID string
	ScrapedAt    time.Time
}

// Outcome tells how the enrichment of a record ended.
type Outcome string

const (
	OutcomeMatched Outcome = "matched"
	OutcomeNoMatch Outcome = "no_match"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// EnrichedRecord is a listing record plus whatever its platform adapter found.
// Listing fields are never written by adapters; Details only ever grows.
type EnrichedRecord struct {
	ListingRecord

	Details     Fields
	Adapter     string
	Outcome     Outcome
	EnrichError string

	UniqueKey string
	RunID     string
}

// NewEnrichedRecord wraps a listing record with an empty detail set.
func NewEnrichedRecord(rec *ListingRecord, runID string) *EnrichedRecord {
	return &EnrichedRecord{
		ListingRecord: *rec,
		Details:       Fields{},
		RunID:         runID,
	}
}

// Value returns the string value of column.
func (r *EnrichedRecord) Value(column string) string {
	switch column {
	case ColRowNumber:
		return r.RowNumber
	case ColProjectName:
		return r.ProjectName
	case ColCompanyName:
		return r.CompanyName
	case ColNationalID:
		return r.NationalID
	case ColPlatformURL:
		return r.PlatformURL
	case ColStatus:
		return r.Status
	case ColStartDate:
		return r.StartDate
	case ColEndDate:
		return r.EndDate
	case ColDescription:
		return r.Description
	case ColDocumentsURL:
		return r.DocumentsURL
	case ColScrapedDate:
		if r.ScrapedAt.IsZero() {
			return ""
		}
		return r.ScrapedAt.Format(ScrapedAtLayout)
	case ColIFBProjectID:
		return r.IFBProjectID
	case ColAdapter:
		return r.Adapter
	case ColOutcome:
		return string(r.Outcome)
	case ColEnrichError:
		return r.EnrichError
	case ColUniqueKey:
		return r.UniqueKey
	case ColRunID:
		return r.RunID
	}
	return r.Details[Field(column)]
}

// Row renders the record in Columns order.
func (r *EnrichedRecord) Row() []string {
	row := make([]string, len(Columns))
	for i, c := range Columns {
		row[i] = r.Value(c)
	}
	return row
}

// Map renders the record as column → value, for JSON output.
func (r *EnrichedRecord) Map() map[string]string {
	m := make(map[string]string, len(Columns))
	for _, c := range Columns {
		if v := r.Value(c); v != "" {
			m[c] = v
		}
	}
	return m
}
