package platforms

import (
	"context"
	"net/url"
	"strings"

	"crowdfund-scraper/browser"
	"crowdfund-scraper/config"
	"crowdfund-scraper/models"
	"crowdfund-scraper/utils"
)

type route struct {
	pattern string
	adapter Adapter
}

// Dispatcher picks the adapter for a platform URL. Routes are checked in
// registration order; the first whose pattern occurs in the host wins.
type Dispatcher struct {
	routes   []route
	fallback Adapter
	logger   *utils.Logger
}

// NewDispatcher creates a Dispatcher with no routes.
func NewDispatcher(fallback Adapter, logger *utils.Logger) *Dispatcher {
	return &Dispatcher{fallback: fallback, logger: logger.With("dispatch")}
}

// NewDefaultDispatcher wires the known platforms and the generic fallback
// onto one shared session.
func NewDefaultDispatcher(cfg *config.Config, session browser.Session, logger *utils.Logger) *Dispatcher {
	d := NewDispatcher(NewGeneric(cfg, session, logger), logger)
	d.Register("hamafarin.ir", NewHamafarin(cfg, session, logger))
	d.Register("fundocrowd.ir", NewFundocrowd(cfg, session, logger))
	d.Register("karencrowd.com", NewKarencrowd(cfg, session, logger))
	d.Register("ifund.ir", NewIfund(cfg, session, logger))
	d.Register("zeema.fund", NewZeema(cfg, session, logger))
	return d
}

// Register appends a route for hosts containing pattern.
func (d *Dispatcher) Register(pattern string, a Adapter) {
	d.routes = append(d.routes, route{pattern: strings.ToLower(pattern), adapter: a})
}

// Select returns the adapter for rawURL. It never fails: unparseable URLs
// and unknown hosts go to the fallback adapter.
func (d *Dispatcher) Select(rawURL string) Adapter {
	host := hostOf(rawURL)
	if host != "" {
		for _, r := range d.routes {
			if strings.Contains(host, r.pattern) {
				return r.adapter
			}
		}
	}
	return d.fallback
}

// Enrich runs the selected adapter for rec and returns its name with the
// result. Records without a platform URL are skipped.
func (d *Dispatcher) Enrich(ctx context.Context, rec *models.ListingRecord) (string, Result) {
	if strings.TrimSpace(rec.PlatformURL) == "" {
		d.logger.Debug("%s has no platform url, skipped", rec.ProjectName)
		return "", skipped()
	}

	a := d.Select(rec.PlatformURL)
	d.logger.Info("Enriching %q from %s with %s", rec.ProjectName, hostOf(rec.PlatformURL), a.Name())

	res := a.Enrich(ctx, rec)
	if res.Fields == nil {
		res.Fields = models.Fields{}
	}
	switch res.Outcome {
	case models.OutcomeFailed:
		d.logger.Error("%s: %s failed: %v", rec.ProjectName, a.Name(), res.Err)
	case models.OutcomeNoMatch:
		d.logger.Warn("%s: no matching card on %s", rec.ProjectName, a.Name())
	default:
		d.logger.Info("%s: %d fields from %s", rec.ProjectName, len(res.Fields), a.Name())
	}
	return a.Name(), res
}

func hostOf(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err == nil && u.Host == "" && u.Scheme == "" {
		u, err = url.Parse("//" + rawURL)
	}
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
