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
	ifundCards        = "div[class*='col-span-1'][class*='bg-white']"
	ifundTitle        = "p.text-lg.font-medium"
	ifundPlatformName = "آی‌فاند"
)

// ifundRow describes one "label : value" line of an ifund card. A rule with
// whole set stores the full line; a rule with no field only stops matching.
type ifundRow struct {
	marker string
	field  models.Field
	whole  bool
}

var ifundRows = []ifundRow{
	{marker: "سکوی تامین مالی جمعی آیفاند", field: models.FieldPlatformName},
	{marker: "نام متقاضی", field: models.FieldApplicantName},
	{marker: "نهاد مالی", field: models.FieldFinancialInstitution},
	{marker: "مدت طرح", field: models.FieldProjectDuration},
	{marker: "نماد طرح", field: models.FieldProjectSymbol},
	{marker: "نوع تامین مالی", field: models.FieldProjectType},
	{marker: "سود پیش بینی شده سالانه"},
	{marker: "مواعد پرداخت سود پیش بینی شده", field: models.FieldPaymentFrequency},
	{marker: "بدون تضمین سود", field: models.FieldCapitalGuarantee, whole: true},
}

// Ifund reads project cards from ifund.ir.
type Ifund struct{ base }

func NewIfund(cfg *config.Config, session browser.Session, logger *utils.Logger) *Ifund {
	return &Ifund{base: newBase(cfg, session, logger, "ifund")}
}

func (a *Ifund) Name() string { return "ifund" }

func (a *Ifund) Enrich(ctx context.Context, rec *models.ListingRecord) Result {
	f := models.Fields{}
	if err := a.navigate(ctx, rec.PlatformURL); err != nil {
		return failed(f, err)
	}
	doc, err := a.snapshot(ctx, ifundCards, false)
	if err != nil {
		return failed(f, err)
	}
	card := matchCard(doc.Find(ifundCards), ifundTitle, rec.ProjectName)
	if card == nil {
		return noMatch(f)
	}
	extractIfundCard(card, f)
	return matched(f)
}

func extractIfundCard(card *goquery.Selection, f models.Fields) {
	f.Set(models.FieldTitleOnPlatform, text(card.Find(ifundTitle).First()))
	f.Set(models.FieldExpectedReturn, text(card.Find("span.bg-custom-orange").First()))
	f.Set(models.FieldProjectSymbol, text(containingText(card.Find("a"), "فاندویرا").First()))

	if spans := card.Find("div.flex.justify-between.text-base.font-medium").First().Find("span"); spans.Length() >= 2 {
		f.Set(models.FieldCollectedAmount, text(spans.Eq(0)))
		f.Set(models.FieldTargetAmount, text(spans.Eq(1)))
	}

	card.Find("div.flex.items-center.justify-start.text-black").Each(func(_ int, item *goquery.Selection) {
		line := text(item)
		for _, row := range ifundRows {
			_, value, ok := strings.Cut(line, row.marker)
			if !ok {
				continue
			}
			switch {
			case row.field == "":
			case row.field == models.FieldPlatformName:
				f.Set(row.field, ifundPlatformName)
			case row.whole:
				f.Set(row.field, line)
			default:
				f.Set(row.field, strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(value), ":")))
			}
			return
		}
	})
}
