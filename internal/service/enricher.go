package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fibre-tracker/internal/models"
	"fibre-tracker/internal/nbn"
)

// derivedKeyPrefix separates re-resolved lookups from the address's own identifier.
const derivedKeyPrefix = "X"

// Outcome classifies what happened to one address during enrichment.
type Outcome int

const (
	// OutcomeEnriched means tech and upgrade were both populated.
	OutcomeEnriched Outcome = iota
	// OutcomeNoData means the service knows nothing usable about the address.
	OutcomeNoData
	// OutcomeTransient means a remote call failed in a way a later run may not.
	OutcomeTransient
	// OutcomeFailed means a bug or malformed data.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEnriched:
		return "enriched"
	case OutcomeNoData:
		return "no-data"
	case OutcomeTransient:
		return "transient"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the enriched address plus how it got there. Address always carries the input's
// identity; Err is set for OutcomeTransient and OutcomeFailed.
type Result struct {
	Address models.Address
	Outcome Outcome
	Err     error
}

// StatusLookup is the remote places API.
type StatusLookup interface {
	Search(ctx context.Context, address string) ([]nbn.Suggestion, error)
	Details(ctx context.Context, id string) (*nbn.Detail, error)
}

// LocationCache memoises StatusLookup answers.
type LocationCache interface {
	LocationID(ctx context.Context, key string) (string, bool, error)
	SetLocationID(ctx context.Context, key, locID string) error
	Detail(ctx context.Context, locID string) (*nbn.Detail, bool, error)
	SetDetail(ctx context.Context, locID string, detail *nbn.Detail) error
}

// Enricher resolves single addresses. Each worker owns one; the cache is shared.
type Enricher struct {
	client StatusLookup
	cache  LocationCache
}

func NewEnricher(client StatusLookup, cache LocationCache) *Enricher {
	return &Enricher{client: client, cache: cache}
}

// Enrich resolves addr to a location id and, for final locations, its technology and upgrade
// reason. It never panics and never alters the address's identity fields.
func (e *Enricher) Enrich(ctx context.Context, addr models.Address) (res Result) {
	res.Address = addr
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Address: addr,
				Outcome: OutcomeFailed,
				Err:     fmt.Errorf("service: enrich %s: panic: %v", addr.GnafPID, r),
			}
		}
	}()

	locID, found, err := e.resolve(ctx, addr.GnafPID, addr.Name)
	if err != nil {
		return e.fail(res, err)
	}
	if !found {
		res.Outcome = OutcomeNoData
		return res
	}
	res.Address.LocationID = locID

	if !models.IsFinalLocation(locID) {
		detail, err := e.detail(ctx, locID)
		if err != nil {
			return e.fail(res, err)
		}
		canonical := detail.AddressSplit.Join()
		if canonical != "" && !strings.EqualFold(canonical, addr.Name) {
			retried, found, err := e.resolve(ctx, derivedKeyPrefix+addr.GnafPID, canonical)
			if err != nil {
				return e.fail(res, err)
			}
			if found {
				locID = retried
				res.Address.LocationID = retried
			}
		}
		if !models.IsFinalLocation(locID) {
			res.Outcome = OutcomeNoData
			return res
		}
	}

	detail, err := e.detail(ctx, locID)
	if err != nil {
		return e.fail(res, err)
	}
	tech := detail.AddressDetail.TechType
	if tech == "" {
		res.Outcome = OutcomeNoData
		return res
	}
	upgrade := detail.AddressDetail.AltReasonCode
	if upgrade == "" {
		upgrade = models.UnknownUpgrade
	}
	res.Address.Tech, res.Address.Upgrade = tech, upgrade
	res.Outcome = OutcomeEnriched
	return res
}

func (e *Enricher) fail(res Result, err error) Result {
	res.Err = err
	res.Outcome = OutcomeFailed
	if isTransient(err) {
		res.Outcome = OutcomeTransient
	}
	return res
}

func isTransient(err error) bool {
	return errors.Is(err, nbn.ErrTransient) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// resolve maps an identifier to a location id, searching with text on a cache miss. A search
// with no usable candidate is not cached so later runs try again.
func (e *Enricher) resolve(ctx context.Context, key, text string) (string, bool, error) {
	if locID, ok, err := e.cache.LocationID(ctx, key); err != nil {
		return "", false, fmt.Errorf("service: cached location for %s: %w", key, err)
	} else if ok {
		return locID, true, nil
	}

	suggestions, err := e.client.Search(ctx, text)
	if err != nil {
		return "", false, err
	}
	best, ok := nbn.FirstUsable(suggestions)
	if !ok {
		return "", false, nil
	}
	if err := e.cache.SetLocationID(ctx, key, best.ID); err != nil {
		return "", false, fmt.Errorf("service: cache location for %s: %w", key, err)
	}
	return best.ID, true, nil
}

func (e *Enricher) detail(ctx context.Context, locID string) (*nbn.Detail, error) {
	if detail, ok, err := e.cache.Detail(ctx, locID); err != nil {
		return nil, fmt.Errorf("service: cached detail for %s: %w", locID, err)
	} else if ok {
		return detail, nil
	}

	detail, err := e.client.Details(ctx, locID)
	if err != nil {
		return nil, err
	}
	if err := e.cache.SetDetail(ctx, locID, detail); err != nil {
		return nil, fmt.Errorf("service: cache detail for %s: %w", locID, err)
	}
	return detail, nil
}
