package platforms

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"crowdfund-scraper/browser"
	"crowdfund-scraper/config"
	"crowdfund-scraper/models"
	"crowdfund-scraper/utils"
)

const (
	hamafarinPlansURL  = "https://hamafarin.ir/businessplans"
	hamafarinPlansLink = "a[href='/businessplans']"
	hamafarinCards     = "div[class*='w-full flex flex-col gap-y-4 group']"
	hamafarinTitle     = "a[class*='text-[#2E2300]']"
)

var (
	hamafarinIDRegexp = regexp.MustCompile(`/businessplans/(\d+)`)

	hamafarinLabels = []labelRule{
		{label: "مبلغ هدف", field: models.FieldTargetAmount},
		{label: "پیشبینی سود", field: models.FieldExpectedReturn},
		{label: "مدت طرح", field: models.FieldProjectDuration},
		{label: "تضمین اصل سرمایه", field: models.FieldCapitalGuarantee},
		{label: "نوع طرح", field: models.FieldProjectType},
		{label: "نماد طرح", field: models.FieldProjectSymbol},
		{label: "تاریخ شروع", field: models.FieldStartDateOnPlatform},
		{label: "سرمایه گذاران", field: models.FieldInvestorCount, clean: utils.DigitsOnly},
		{label: "تواتر پرداخت سود", field: models.FieldPaymentFrequency},
	}
)

// Hamafarin reads project cards from hamafarin.ir/businessplans.
type Hamafarin struct{ base }

func NewHamafarin(cfg *config.Config, session browser.Session, logger *utils.Logger) *Hamafarin {
	return &Hamafarin{base: newBase(cfg, session, logger, "hamafarin")}
}

func (a *Hamafarin) Name() string { return "hamafarin" }

func (a *Hamafarin) Enrich(ctx context.Context, rec *models.ListingRecord) Result {
	f := models.Fields{}
	if err := a.navigate(ctx, rec.PlatformURL); err != nil {
		return failed(f, err)
	}
	reveal := func(ctx context.Context) error { return a.session.Click(ctx, hamafarinPlansLink) }
	if err := a.ensureListing(ctx, "businessplans", reveal, hamafarinPlansURL); err != nil {
		return failed(f, err)
	}

	doc, err := a.snapshot(ctx, hamafarinCards, true)
	if err != nil {
		return failed(f, err)
	}
	card := matchCard(doc.Find(hamafarinCards), hamafarinTitle, rec.ProjectName)
	if card == nil {
		return noMatch(f)
	}
	a.extractCard(card, f)
	return matched(f)
}

func (a *Hamafarin) extractCard(card *goquery.Selection, f models.Fields) {
	f.Set(models.FieldTitleOnPlatform, text(card.Find(hamafarinTitle).First()))

	card.Find("a[href*='/businessplans/']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := hamafarinIDRegexp.FindStringSubmatch(attr(s, "href")); m != nil {
			f.Set(models.FieldProjectIDOnPlatform, m[1])
			return false
		}
		return true
	})

	f.Set(models.FieldThumbnailURL, attr(card.Find("img").First(), "src"))
	f.Set(models.FieldFinancialInstitution, text(containingText(card.Find("p"), "نهاد مالی:").First()))
	f.Set(models.FieldApplicantName, text(card.Find("p.text-black17.font-YekanBakh.text-md").First()))

	bottom := card.Find("div[class*='bg-white'][class*='!pb-12']").First()
	if bottom.Length() == 0 {
		return
	}
	f.Set(models.FieldStatusOnPlatform, text(bottom.Find("p[class*='text-green67'], p[class*='text-primary']").First()))
	if perc := text(bottom.Find("p[class*='text-black17/70']").First()); strings.Contains(perc, "%") {
		f.Set(models.FieldProgressPercentage, perc)
	}

	bottom.Find("div[class*='grid-cols-3'] div[class*='flex flex-col items-center gap-y-1']").Each(func(_ int, item *goquery.Selection) {
		label := item.Find("p.text-gray-500").First()
		value := item.Find("p[class*='text-gray-700'][class*='font-bold']").First()
		if label.Length() == 0 || value.Length() == 0 {
			return
		}
		applyLabel(f, hamafarinLabels, text(label), text(value))
	})
}
