package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"crowdfund-scraper/models"
	"crowdfund-scraper/utils"
)

// ErrMissingKeyFields is returned when a record lacks a field its identity key
// is built from.
var ErrMissingKeyFields = errors.New("identity: missing key fields")

// Identity strategy names, as accepted by IDENTITY_STRATEGY.
const (
	StrategyURL    = "url"
	StrategyDigest = "digest"
)

// IdentityStrategy derives the deduplication key of a record and names the
// store column that key is kept in.
type IdentityStrategy interface {
	Name() string
	Column() string
	Key(rec *models.EnrichedRecord) (string, error)
}

// NewIdentityStrategy returns the strategy called name.
func NewIdentityStrategy(name string) (IdentityStrategy, error) {
	switch name {
	case StrategyURL:
		return urlIdentity{}, nil
	case StrategyDigest:
		return digestIdentity{}, nil
	}
	return nil, fmt.Errorf("identity: unknown strategy %q", name)
}

// urlIdentity keys a record by its platform URL, verbatim.
type urlIdentity struct{}

func (urlIdentity) Name() string   { return StrategyURL }
func (urlIdentity) Column() string { return models.ColPlatformURL }

func (urlIdentity) Key(rec *models.EnrichedRecord) (string, error) {
	if strings.TrimSpace(rec.PlatformURL) == "" {
		return "", fmt.Errorf("%w: platform url", ErrMissingKeyFields)
	}
	return rec.PlatformURL, nil
}

// digestIdentity keys a record by the SHA-256 of name, company and start date.
type digestIdentity struct{}

func (digestIdentity) Name() string   { return StrategyDigest }
func (digestIdentity) Column() string { return models.ColUniqueKey }

func (digestIdentity) Key(rec *models.EnrichedRecord) (string, error) {
	var missing []string
	if rec.ProjectName == "" {
		missing = append(missing, models.ColProjectName)
	}
	if rec.CompanyName == "" {
		missing = append(missing, models.ColCompanyName)
	}
	if rec.StartDate == "" {
		missing = append(missing, models.ColStartDate)
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingKeyFields, strings.Join(missing, ", "))
	}
	sum := sha256.Sum256([]byte(rec.ProjectName + "-" + rec.CompanyName + "-" + rec.StartDate))
	return hex.EncodeToString(sum[:]), nil
}

// KeySet holds the identity keys already present in the store. It is read
// once per run and not modified afterwards.
type KeySet map[string]struct{}

func (k KeySet) Has(key string) bool {
	_, ok := k[key]
	return ok
}

// Deduplicator keeps only records whose identity key is new.
type Deduplicator struct {
	strategy IdentityStrategy
	logger   *utils.Logger
}

// NewDeduplicator creates a Deduplicator using strategy.
func NewDeduplicator(strategy IdentityStrategy, logger *utils.Logger) *Deduplicator {
	return &Deduplicator{strategy: strategy, logger: logger.With("dedup")}
}

// Strategy returns the identity strategy in use.
func (d *Deduplicator) Strategy() IdentityStrategy { return d.strategy }

// AttachKeys stamps every record with its digest key, whichever strategy
// filters, so the unique_key column stays filled if the strategy changes.
func (d *Deduplicator) AttachKeys(records []*models.EnrichedRecord) {
	for _, r := range records {
		key, err := digestIdentity{}.Key(r)
		if err != nil {
			d.logger.Debug("No digest for %q: %v", r.ProjectName, err)
			continue
		}
		r.UniqueKey = key
	}
}

// FilterNew returns, in input order, the records whose key is neither in
// existing nor already taken by an earlier record of the same batch. Records
// without a key are dropped with a warning.
func (d *Deduplicator) FilterNew(records []*models.EnrichedRecord, existing KeySet) []*models.EnrichedRecord {
	seen := make(map[string]struct{})
	result := make([]*models.EnrichedRecord, 0, len(records))

	for _, r := range records {
		key, err := d.strategy.Key(r)
		if err != nil {
			d.logger.Warn("Dropping %q: %v", r.ProjectName, err)
			continue
		}
		if d.strategy.Column() == models.ColUniqueKey {
			r.UniqueKey = key
		}

		if existing.Has(key) {
			d.logger.Debug("Already stored: %s", r.ProjectName)
			continue
		}
		if _, dup := seen[key]; dup {
			d.logger.Debug("Duplicate within batch skipped: %s", r.ProjectName)
			continue
		}
		seen[key] = struct{}{}
		result = append(result, r)
	}

	d.logger.Info("%d of %d records are new (%s identity)", len(result), len(records), d.strategy.Name())
	return result
}
