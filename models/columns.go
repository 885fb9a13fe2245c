package models

// Listing and bookkeeping columns.
const (
	ColRowNumber    = "row_number"
	ColProjectName  = "project_name"
	ColCompanyName  = "company_name"
	ColNationalID   = "national_id"
	ColPlatformURL  = "platform_url"
	ColStatus       = "status"
	ColStartDate    = "fund_collection_start_date"
	ColEndDate      = "project_end_date"
	ColDescription  = "description"
	ColDocumentsURL = "documents_url"
	ColScrapedDate  = "scraped_date"
	ColIFBProjectID = "ifb_project_id"
	ColAdapter      = "adapter"
	ColOutcome      = "enrich_outcome"
	ColEnrichError  = "enrich_error"
	ColUniqueKey    = "unique_key"
	ColRunID        = "run_id"
)

// Columns is the fixed column order shared by every sink and store.
var Columns = buildColumns()

func buildColumns() []string {
	cols := []string{
		ColRowNumber,
		ColProjectName,
		ColCompanyName,
		ColNationalID,
		ColPlatformURL,
		ColStatus,
		ColStartDate,
		ColEndDate,
		ColDescription,
		ColDocumentsURL,
		ColScrapedDate,
		ColIFBProjectID,
	}
	for _, f := range DetailFields {
		cols = append(cols, string(f))
	}
	return append(cols, ColAdapter, ColOutcome, ColEnrichError, ColUniqueKey, ColRunID)
}

// IsColumn reports whether name is one of Columns.
func IsColumn(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}
