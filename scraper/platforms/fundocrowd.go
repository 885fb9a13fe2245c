package platforms

import (
	"context"
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"crowdfund-scraper/browser"
	"crowdfund-scraper/config"
	"crowdfund-scraper/models"
	"crowdfund-scraper/utils"
)

const (
	fundocrowdOrigin   = "https://fundocrowd.ir"
	fundocrowdCards    = "div.home-box-design"
	fundocrowdTitle    = "h5.main-h2"
	fundocrowdFreqBox  = "div.detail-little-b"
	fundocrowdFreqText = "div.detail-little-b p.main-h2"
)

var (
	fundocrowdDetailRegexp = regexp.MustCompile(`/companyDetail/(\d+)`)
	progressWidthRegexp    = regexp.MustCompile(`width:\s*(\d+)%`)
)

// Fundocrowd reads project cards from fundocrowd.ir and, when the card lacks
// return or duration, the payment frequency from the project detail page.
type Fundocrowd struct{ base }

func NewFundocrowd(cfg *config.Config, session browser.Session, logger *utils.Logger) *Fundocrowd {
	return &Fundocrowd{base: newBase(cfg, session, logger, "fundocrowd")}
}

func (a *Fundocrowd) Name() string { return "fundocrowd" }

func (a *Fundocrowd) Enrich(ctx context.Context, rec *models.ListingRecord) Result {
	f := models.Fields{}
	if err := a.navigate(ctx, rec.PlatformURL); err != nil {
		return failed(f, err)
	}
	doc, err := a.snapshot(ctx, fundocrowdCards, false)
	if err != nil {
		return failed(f, err)
	}
	card := matchCard(doc.Find(fundocrowdCards), fundocrowdTitle, rec.ProjectName)
	if card == nil {
		return noMatch(f)
	}
	a.extractCard(card, f)

	if f.Has(models.FieldExpectedReturn) && f.Has(models.FieldProjectDuration) {
		return matched(f)
	}
	detailURL := f[models.FieldDetailsPageURL]
	if detailURL == "" {
		return matched(f)
	}
	// Single attempt; a failure keeps the card fields.
	if err := a.paymentFrequency(ctx, detailURL, f); err != nil {
		return failed(f, fmt.Errorf("detail page: %w", err))
	}
	return matched(f)
}

func (a *Fundocrowd) extractCard(card *goquery.Selection, f models.Fields) {
	f.Set(models.FieldTitleOnPlatform, text(card.Find(fundocrowdTitle).First()))
	f.Set(models.FieldThumbnailURL, attr(card.Find("img[src*='common/DownloadFile']").First(), "src"))

	if company := containingText(card.Find("span"), "شرکت").First(); company.Length() > 0 {
		f.Set(models.FieldApplicantName, text(company.Parent()))
	}

	if spans := card.Find("div.d-flex.mt-3").First().Find("span"); spans.Length() >= 2 {
		f.Set(models.FieldTargetAmount, text(spans.Eq(0)))
		f.Set(models.FieldProgressPercentage, text(spans.Eq(1)))
	}

	if m := progressWidthRegexp.FindStringSubmatch(attr(card.Find("div.progress-bar").First(), "style")); m != nil {
		f.Set(models.FieldProgressWidth, m[1])
	}

	if cols := card.Find("div.row.mt-3.ml-0").First().Find("div.col"); cols.Length() >= 2 {
		f.Set(models.FieldProjectDuration, text(cols.Eq(0).Find("b").First()))
		f.Set(models.FieldExpectedReturn, text(cols.Eq(1).Find("b").First()))
	}

	card.Find("a[href*='/companyDetail/']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := fundocrowdDetailRegexp.FindStringSubmatch(attr(s, "href")); m != nil {
			f.Set(models.FieldProjectIDOnPlatform, m[1])
			f.Set(models.FieldDetailsPageURL, fundocrowdOrigin+"/companyDetail/"+m[1])
			return false
		}
		return true
	})
}

func (a *Fundocrowd) paymentFrequency(ctx context.Context, detailURL string, f models.Fields) error {
	if err := a.navigate(ctx, detailURL); err != nil {
		return err
	}
	doc, err := a.snapshot(ctx, fundocrowdFreqBox, false)
	if err != nil {
		return err
	}
	f.Set(models.FieldPaymentFrequency, text(doc.Find(fundocrowdFreqText).First()))
	return nil
}
