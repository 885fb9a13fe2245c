package platforms

import (
	"context"
	"regexp"
	"strings"

	"crowdfund-scraper/browser"
	"crowdfund-scraper/config"
	"crowdfund-scraper/models"
	"crowdfund-scraper/utils"
)

// digit matches ASCII, Persian and Arabic-Indic digits.
const digit = `[0-9۰-۹٠-٩]`

type textPattern struct {
	field        models.Field
	alternatives []*regexp.Regexp
}

// Fields are tried in order; within a field the first alternative that
// matches anywhere in the page text wins.
var genericPatterns = []textPattern{
	{models.FieldTargetAmount, compileAll(
		`مبلغ هدف.*?((?:`+digit+`|[,٬])+)`,
		`هدف.*?((?:`+digit+`|[,٬])+)\s*تومان`,
		`سرمایه مورد نیاز.*?((?:`+digit+`|[,٬])+)`,
	)},
	{models.FieldExpectedReturn, compileAll(
		`(`+digit+`+\.?`+digit+`*)\s*٪`,
		`سود پیش‌بینی.*?(`+digit+`+\.?`+digit+`*)`,
		`بازده.*?(`+digit+`+\.?`+digit+`*)`,
	)},
	{models.FieldProjectDuration, compileAll(
		`(`+digit+`+)\s*ماه`,
		`مدت طرح.*?(`+digit+`+)\s*ماه`,
	)},
	{models.FieldInvestorCount, compileAll(
		`(`+digit+`+)\s*نفر`,
		`تعداد سرمایه‌گذار.*?(`+digit+`+)`,
	)},
}

var applicantPatterns = compileAll(
	`شرکت\s*([\p{L}\p{N} \x{200c}]+)`,
	`متقاضی\s*:\s*([\p{L}\p{N} \x{200c}]+)`,
)

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// Generic scans the flattened text of any platform page for common labels.
type Generic struct{ base }

func NewGeneric(cfg *config.Config, session browser.Session, logger *utils.Logger) *Generic {
	return &Generic{base: newBase(cfg, session, logger, "generic")}
}

func (a *Generic) Name() string { return "generic" }

// Enrich reports a match when at least one labelled value was found;
// platform_name is always filled from the URL host.
func (a *Generic) Enrich(ctx context.Context, rec *models.ListingRecord) Result {
	f := models.Fields{}
	if err := a.navigate(ctx, rec.PlatformURL); err != nil {
		return failed(f, err)
	}
	doc, err := a.snapshot(ctx, "body", false)
	if err != nil {
		return failed(f, err)
	}
	doc.Find("script, style, noscript").Remove()
	found := extractGeneric(doc.Text(), f)
	f.Set(models.FieldPlatformName, hostOf(rec.PlatformURL))
	if found == 0 {
		return noMatch(f)
	}
	return matched(f)
}

// extractGeneric fills f from page text and returns how many fields it set.
func extractGeneric(page string, f models.Fields) int {
	found := 0
	for _, p := range genericPatterns {
		for _, re := range p.alternatives {
			if m := re.FindStringSubmatch(page); m != nil && m[1] != "" {
				f.Set(p.field, m[1])
				found++
				break
			}
		}
	}
	for _, re := range applicantPatterns {
		if m := re.FindStringSubmatch(page); m != nil {
			if name := strings.TrimSpace(m[1]); name != "" {
				f.Set(models.FieldApplicantName, name)
				found++
				break
			}
		}
	}
	return found
}
