package services

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"crowdfund-scraper/models"
	"crowdfund-scraper/utils"
)

const reportSamples = 3

// AdapterStats counts enrichment outcomes for one adapter.
type AdapterStats struct {
	Adapter string
	Counts  map[models.Outcome]int
}

// RunReport is the printable digest of a RunSummary.
type RunReport struct {
	RunID      string
	Total      int
	ByOutcome  map[models.Outcome]int
	ByAdapter  []AdapterStats
	Coverage   map[models.Field]int
	Existing   int
	New        int
	Appended   int
	StoreError string
	Samples    []*models.EnrichedRecord
}

type ReportService struct {
	logger *utils.Logger
}

func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

func (s *ReportService) Generate(sum *RunSummary) *RunReport {
	report := &RunReport{
		ByOutcome: make(map[models.Outcome]int),
		Coverage:  make(map[models.Field]int),
	}
	if sum == nil {
		return report
	}

	report.RunID = sum.RunID
	report.Total = len(sum.Records)
	report.Existing = sum.Existing
	report.New = len(sum.New)
	report.Appended = sum.Appended
	if sum.StoreErr != nil {
		report.StoreError = sum.StoreErr.Error()
	}

	byAdapter := make(map[string]map[models.Outcome]int)
	for _, r := range sum.Records {
		report.ByOutcome[r.Outcome]++

		name := r.Adapter
		if name == "" {
			name = "-"
		}
		if byAdapter[name] == nil {
			byAdapter[name] = make(map[models.Outcome]int)
		}
		byAdapter[name][r.Outcome]++

		for _, f := range models.DetailFields {
			if r.Details.Has(f) {
				report.Coverage[f]++
			}
		}
	}

	for name, counts := range byAdapter {
		report.ByAdapter = append(report.ByAdapter, AdapterStats{Adapter: name, Counts: counts})
	}
	sort.Slice(report.ByAdapter, func(i, j int) bool {
		return report.ByAdapter[i].Adapter < report.ByAdapter[j].Adapter
	})

	if len(sum.Records) > reportSamples {
		report.Samples = sum.Records[:reportSamples]
	} else {
		report.Samples = sum.Records
	}
	return report
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// Print renders r as tables on w.
func (s *ReportService) Print(w io.Writer, r *RunReport) {
	overview := newTable(w)
	overview.SetTitle("IFB crowdfunding run")
	overview.AppendRows([]table.Row{
		{"Run", r.RunID},
		{"Projects scraped", r.Total},
		{"Already stored", r.Existing},
		{"New", r.New},
		{"Appended", r.Appended},
	})
	if r.StoreError != "" {
		overview.AppendRow(table.Row{"Store error", truncate(r.StoreError, 60)})
	}
	overview.Render()

	outcomes := []models.Outcome{models.OutcomeMatched, models.OutcomeNoMatch, models.OutcomeFailed, models.OutcomeSkipped}
	adapters := newTable(w)
	adapters.SetTitle("Enrichment by adapter")
	header := table.Row{"Adapter"}
	for _, o := range outcomes {
		header = append(header, string(o))
	}
	adapters.AppendHeader(header)
	for _, a := range r.ByAdapter {
		row := table.Row{a.Adapter}
		for _, o := range outcomes {
			row = append(row, a.Counts[o])
		}
		adapters.AppendRow(row)
	}
	footer := table.Row{"total"}
	for _, o := range outcomes {
		footer = append(footer, r.ByOutcome[o])
	}
	adapters.AppendFooter(footer)
	adapters.Render()

	if len(r.Coverage) > 0 {
		coverage := newTable(w)
		coverage.SetTitle("Field coverage")
		coverage.AppendHeader(table.Row{"Field", "Records"})
		for _, f := range models.DetailFields {
			if n := r.Coverage[f]; n > 0 {
				coverage.AppendRow(table.Row{string(f), fmt.Sprintf("%d/%d", n, r.Total)})
			}
		}
		coverage.Render()
	}

	if len(r.Samples) == 0 {
		fmt.Fprintln(w, "No projects collected.")
		return
	}
	samples := newTable(w)
	samples.SetTitle("Sample projects")
	samples.AppendHeader(table.Row{"#", "Project", "Company", "Start", "Adapter", "Target", "Return"})
	for i, rec := range r.Samples {
		samples.AppendRow(table.Row{
			i + 1,
			truncate(rec.ProjectName, 40),
			truncate(rec.CompanyName, 30),
			rec.StartDate,
			rec.Adapter,
			rec.Details[models.FieldTargetAmount],
			rec.Details[models.FieldExpectedReturn],
		})
	}
	samples.Render()
}

// truncate shortens s to at most max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
