package platforms

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"crowdfund-scraper/browser"
	"crowdfund-scraper/config"
	"crowdfund-scraper/models"
	"crowdfund-scraper/utils"
)

const (
	zeemaCards = "div[class*='MuiGrid-root']"
	zeemaTitle = "span.MuiTypography-subtitleBold"

	zeemaInstitutionLabel = "نام نهاد مالی"
)

var zeemaRequirementRules = []labelRule{
	{label: "سرمایه مورد نیاز", field: models.FieldTargetAmount},
	{label: "پیش بینی سود پروژه", field: models.FieldExpectedReturn},
}

// Zeema reads Material-UI project cards from zeema.fund.
type Zeema struct{ base }

func NewZeema(cfg *config.Config, session browser.Session, logger *utils.Logger) *Zeema {
	return &Zeema{base: newBase(cfg, session, logger, "zeema")}
}

func (a *Zeema) Name() string { return "zeema" }

func (a *Zeema) Enrich(ctx context.Context, rec *models.ListingRecord) Result {
	f := models.Fields{}
	if err := a.navigate(ctx, rec.PlatformURL); err != nil {
		return failed(f, err)
	}
	doc, err := a.snapshot(ctx, zeemaTitle, false)
	if err != nil {
		return failed(f, err)
	}
	card := matchCard(doc.Find(zeemaCards), zeemaTitle, rec.ProjectName)
	if card == nil {
		return noMatch(f)
	}
	extractZeemaCard(card, f)
	return matched(f)
}

// secondSpan returns the text of the second span of s, the value half of a
// label/value stack.
func secondSpan(s *goquery.Selection) string {
	spans := s.Find("span")
	if spans.Length() < 2 {
		return ""
	}
	return text(spans.Eq(1))
}

func extractZeemaCard(card *goquery.Selection, f models.Fields) {
	f.Set(models.FieldTitleOnPlatform, text(card.Find(zeemaTitle).First()))
	f.Set(models.FieldThumbnailURL, attr(card.Find("img").First(), "src"))
	f.Set(models.FieldApplicantName, text(card.Find("span.MuiTypography-smallMedium").First()))

	card.Find("div.MuiStack-root.muirtl-bu0fgp").Each(func(_ int, s *goquery.Selection) {
		spans := s.Find("span")
		if spans.Length() < 2 {
			return
		}
		applyLabel(f, zeemaRequirementRules, text(spans.Eq(0)), text(spans.Eq(1)))
	})

	// Duration and financial institution share one stack style.
	card.Find("div.MuiStack-root.muirtl-bl0m4").Each(func(_ int, s *goquery.Selection) {
		if strings.Contains(s.Text(), zeemaInstitutionLabel) {
			if !f.Has(models.FieldFinancialInstitution) {
				f.Set(models.FieldFinancialInstitution, secondSpan(s))
			}
			return
		}
		if !f.Has(models.FieldProjectDuration) {
			f.Set(models.FieldProjectDuration, secondSpan(s))
		}
	})

	f.Set(models.FieldCapitalGuarantee, text(card.Find("div.MuiStack-root.muirtl-14mq6mq").First()))
	f.Set(models.FieldCollectedAmount, secondSpan(card.Find("div.MuiStack-root.muirtl-1pbtxwi").First()))
	f.Set(models.FieldProgressPercentage, attr(card.Find("div.MuiLinearProgress-root[aria-valuenow]").First(), "aria-valuenow"))
	f.Set(models.FieldInvestorCount, secondSpan(card.Find("div.MuiStack-root.muirtl-mk4amx").First()))
}
