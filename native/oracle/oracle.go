package oracle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"lendpool/core/types"
)

var (
	// ErrUnauthorized is returned when the caller is not on the submitter
	// allow list or is not the configured admin.
	ErrUnauthorized = errors.New("rate oracle: caller not authorized")
	// ErrInvalidRate is returned when a submitted rate or volatility is out
	// of bounds.
	ErrInvalidRate = errors.New("rate oracle: rate or volatility out of range")
	// ErrLengthMismatch is returned when batch slices disagree on length.
	ErrLengthMismatch = errors.New("rate oracle: batch length mismatch")
	// ErrInvalidAsset is returned for empty asset identifiers.
	ErrInvalidAsset = errors.New("rate oracle: asset identifier required")
)

const (
	// MaxRateBps bounds submitted borrow rates.
	MaxRateBps = 10_000
	// MaxVolatility bounds the 0-100 volatility score.
	MaxVolatility = 100
	// DefaultStaleAfter is the freshness window applied when none is
	// configured.
	DefaultStaleAfter = time.Hour
)

const (
	// EventTypeRateUpdated is emitted when a submitter stores a new rate.
	EventTypeRateUpdated = "oracle.rate.updated"
	// EventTypeSubmitterUpdated is emitted when the allow list changes.
	EventTypeSubmitterUpdated = "oracle.submitter.updated"
)

// Record is the stored rate observation for a single asset.
type Record struct {
	RateBps     uint64    `json:"rateBps"`
	Volatility  uint64    `json:"volatility"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Oracle stores per-asset interest rate observations written by an allow list
// of external submitters (the rate-prediction service) and read synchronously
// by the lending engine.
type Oracle struct {
	mu         sync.RWMutex
	admin      string
	submitters map[string]bool
	records    map[string]Record
	staleAfter time.Duration
	now        func() time.Time
	emit       func(types.Event)
}

// New constructs an oracle administered by admin. A non-positive staleAfter
// falls back to DefaultStaleAfter.
func New(admin string, staleAfter time.Duration) *Oracle {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Oracle{
		admin:      strings.TrimSpace(admin),
		submitters: make(map[string]bool),
		records:    make(map[string]Record),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// SetClock overrides the time source. Tests use this to drive staleness.
func (o *Oracle) SetClock(now func() time.Time) {
	if o == nil || now == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.now = now
}

// SetEmitter wires the event sink invoked after successful writes.
func (o *Oracle) SetEmitter(emit func(types.Event)) {
	if o == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.emit = emit
}

// SetAuthorizedSubmitter toggles write access for a submitter identity. Only
// the admin may change the allow list.
func (o *Oracle) SetAuthorizedSubmitter(caller, submitter string, authorized bool) error {
	if o == nil {
		return ErrUnauthorized
	}
	caller = strings.TrimSpace(caller)
	submitter = strings.TrimSpace(submitter)
	if submitter == "" {
		return fmt.Errorf("%w: submitter identity required", ErrInvalidAsset)
	}
	o.mu.Lock()
	if o.admin == "" || caller != o.admin {
		o.mu.Unlock()
		return ErrUnauthorized
	}
	if authorized {
		o.submitters[submitter] = true
	} else {
		delete(o.submitters, submitter)
	}
	emit := o.emit
	o.mu.Unlock()

	if emit != nil {
		emit(types.Event{
			Type: EventTypeSubmitterUpdated,
			Attributes: map[string]string{
				"submitter":  submitter,
				"authorized": strconv.FormatBool(authorized),
			},
		})
	}
	return nil
}

// SubmitRate stores a rate observation for a single asset.
func (o *Oracle) SubmitRate(caller, asset string, rateBps, volatility uint64) error {
	return o.BatchSubmitRates(caller, []string{asset}, []uint64{rateBps}, []uint64{volatility})
}

// BatchSubmitRates validates every element before any write so a bad entry
// cannot leave the feed partially updated.
func (o *Oracle) BatchSubmitRates(caller string, assets []string, rates, volatilities []uint64) error {
	if o == nil {
		return ErrUnauthorized
	}
	if len(assets) != len(rates) || len(assets) != len(volatilities) {
		return ErrLengthMismatch
	}

	normalized := make([]string, len(assets))
	for i, asset := range assets {
		trimmed := strings.TrimSpace(asset)
		if trimmed == "" {
			return ErrInvalidAsset
		}
		if rates[i] > MaxRateBps || volatilities[i] > MaxVolatility {
			return fmt.Errorf("%w: asset %s rate=%d volatility=%d", ErrInvalidRate, trimmed, rates[i], volatilities[i])
		}
		normalized[i] = trimmed
	}

	caller = strings.TrimSpace(caller)

	o.mu.Lock()
	if !o.submitters[caller] {
		o.mu.Unlock()
		return ErrUnauthorized
	}
	observedAt := o.now()
	for i, asset := range normalized {
		o.records[asset] = Record{
			RateBps:     rates[i],
			Volatility:  volatilities[i],
			LastUpdated: observedAt,
		}
	}
	emit := o.emit
	o.mu.Unlock()

	if emit != nil {
		for i, asset := range normalized {
			emit(types.Event{
				Type: EventTypeRateUpdated,
				Attributes: map[string]string{
					"submitter":  caller,
					"asset":      asset,
					"rateBps":    strconv.FormatUint(rates[i], 10),
					"volatility": strconv.FormatUint(volatilities[i], 10),
					"observedAt": observedAt.UTC().Format(time.RFC3339),
				},
			})
		}
	}
	return nil
}

// GetRate returns the stored observation for an asset. Unconfigured assets
// yield a zero-valued record; callers check freshness separately.
func (o *Oracle) GetRate(asset string) (uint64, time.Time, uint64) {
	if o == nil {
		return 0, time.Time{}, 0
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	record := o.records[strings.TrimSpace(asset)]
	return record.RateBps, record.LastUpdated, record.Volatility
}

// IsFresh reports whether the stored observation is within the staleness
// window. Assets without an observation are never fresh.
func (o *Oracle) IsFresh(asset string) bool {
	if o == nil {
		return false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	record, ok := o.records[strings.TrimSpace(asset)]
	if !ok || record.LastUpdated.IsZero() {
		return false
	}
	return o.now().Sub(record.LastUpdated) <= o.staleAfter
}

// StaleAfter exposes the configured freshness window.
func (o *Oracle) StaleAfter() time.Duration {
	if o == nil {
		return 0
	}
	return o.staleAfter
}
