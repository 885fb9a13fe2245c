package platforms

import (
	"context"
	"errors"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"crowdfund-scraper/browser"
	"crowdfund-scraper/config"
	"crowdfund-scraper/models"
	"crowdfund-scraper/utils"
)

const (
	karencrowdPlansURL      = "https://www.karencrowd.com/plans"
	karencrowdCards         = "div[class*='flex flex-col'][class*='h-[775px]']"
	karencrowdFallbackCards = "div[class*='bg-white'][class*='shadow-md']"
	karencrowdTitle         = "h2.text-xl.font-bold"

	// Clicks the first anchor labelled "view all plans".
	karencrowdRevealScript = `(function() {
		var links = document.querySelectorAll('a');
		for (var i = 0; i < links.length; i++) {
			if (links[i].textContent.indexOf('مشاهده همه طرح‌ها') >= 0) {
				links[i].click();
				return true;
			}
		}
		return false;
	})()`
)

var (
	errNoPlansLink      = errors.New("plans link not found")
	karencrowdIDRegexp  = regexp.MustCompile(`/plans/(\d+)`)
	karencrowdGridRules = []labelRule{
		{label: "مبلغ هدف", field: models.FieldTargetAmount},
		{label: "مدت طرح", field: models.FieldProjectDuration},
		{label: "پیش بینی سود", field: models.FieldExpectedReturn},
	}
)

// Karencrowd reads project cards from karencrowd.com/plans.
type Karencrowd struct{ base }

func NewKarencrowd(cfg *config.Config, session browser.Session, logger *utils.Logger) *Karencrowd {
	return &Karencrowd{base: newBase(cfg, session, logger, "karencrowd")}
}

func (a *Karencrowd) Name() string { return "karencrowd" }

func (a *Karencrowd) Enrich(ctx context.Context, rec *models.ListingRecord) Result {
	f := models.Fields{}
	if err := a.navigate(ctx, rec.PlatformURL); err != nil {
		return failed(f, err)
	}
	if err := a.ensureListing(ctx, "plans", a.revealPlans, karencrowdPlansURL); err != nil {
		return failed(f, err)
	}

	doc, err := a.snapshot(ctx, karencrowdCards+", "+karencrowdFallbackCards, true)
	if err != nil {
		return failed(f, err)
	}
	cards := findCards(doc, karencrowdCards, karencrowdFallbackCards)
	card := matchCard(cards, karencrowdTitle, rec.ProjectName)
	if card == nil {
		return noMatch(f)
	}
	extractKarencrowdCard(card, f)
	return matched(f)
}

func (a *Karencrowd) revealPlans(ctx context.Context) error {
	var clicked bool
	if err := a.session.Evaluate(ctx, karencrowdRevealScript, &clicked); err != nil {
		return err
	}
	if !clicked {
		return errNoPlansLink
	}
	return nil
}

func extractKarencrowdCard(card *goquery.Selection, f models.Fields) {
	f.Set(models.FieldTitleOnPlatform, text(card.Find(karencrowdTitle).First()))

	card.Find("a[href*='/plans/']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := karencrowdIDRegexp.FindStringSubmatch(attr(s, "href")); m != nil {
			f.Set(models.FieldProjectIDOnPlatform, m[1])
			return false
		}
		return true
	})
	f.Set(models.FieldThumbnailURL, attr(card.Find("img").First(), "src"))

	targetLabel := containingText(card.Find("span"), "مبلغ هدف").First()
	grid := targetLabel.Closest("div.grid")
	grid.Find("div.text-xs.text-center").Each(func(_ int, col *goquery.Selection) {
		label := col.Find("span.text-gray-card").First()
		value := col.Find("span.text-dark.font-bold").First()
		if label.Length() == 0 || value.Length() == 0 {
			return
		}
		applyLabel(f, karencrowdGridRules, text(label), text(value))
	})
}
