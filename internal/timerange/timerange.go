// Package timerange normalizes caller-supplied time bounds and divides
// ranges into retrieval windows.
//
// Bounds come in three shapes:
//   - naive: a wall-clock reading with no zone, interpreted as UTC
//   - aware: an instant carrying its own zone
//   - now:   a sentinel accepted for the end bound only
//
// The logging service expects instants in a fixed zone (CET by default).
// A Normalizer converts bounds into that zone; canonical tables are always
// expressed in UTC, so the conversion never leaks past the fetch boundary.
package timerange

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// DefaultZone is the zone the logging service expects on the wire.
const DefaultZone = "CET"

// NowSentinel is the literal accepted in place of an end instant.
const NowSentinel = "now"

// ErrInvalidTimeInput is returned for bounds that are neither a recognized
// instant nor the now sentinel.
var ErrInvalidTimeInput = errors.New("invalid time input")

type boundKind int

const (
	naiveBound boundKind = iota + 1
	awareBound
	nowBound
)

// Bound is one end of a caller-supplied time range.
type Bound struct {
	kind boundKind
	t    time.Time
}

// Naive returns a bound whose wall clock is read as UTC, whatever
// location t carries.
func Naive(t time.Time) Bound {
	return Bound{kind: naiveBound, t: t}
}

// At returns a zone-aware bound.
func At(t time.Time) Bound {
	return Bound{kind: awareBound, t: t}
}

// Now returns the end-of-range sentinel.
func Now() Bound {
	return Bound{kind: nowBound}
}

// IsNow reports whether b is the now sentinel.
func (b Bound) IsNow() bool {
	return b.kind == nowBound
}

func (b Bound) String() string {
	switch b.kind {
	case naiveBound:
		return b.t.Format("2006-01-02 15:04:05.999999999") + " (naive)"
	case awareBound:
		return b.t.Format(time.RFC3339Nano)
	case nowBound:
		return NowSentinel
	default:
		return "<unset>"
	}
}

var awareLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04Z07:00",
}

var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseBound parses the now sentinel, an RFC 3339 style instant with an
// offset, or a naive date/time.
func ParseBound(s string) (Bound, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, NowSentinel) {
		return Now(), nil
	}
	for _, layout := range awareLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return At(t), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return Naive(t), nil
		}
	}
	return Bound{}, fmt.Errorf("%w: %q", ErrInvalidTimeInput, s)
}

// FromValue accepts the shapes callers commonly hold: a Bound, a time.Time
// (zone-aware), a *time.Time, or a string understood by ParseBound.
func FromValue(v any) (Bound, error) {
	switch x := v.(type) {
	case Bound:
		if x.kind == 0 {
			return Bound{}, fmt.Errorf("%w: zero bound", ErrInvalidTimeInput)
		}
		return x, nil
	case time.Time:
		return At(x), nil
	case *time.Time:
		if x == nil {
			return Bound{}, fmt.Errorf("%w: nil time", ErrInvalidTimeInput)
		}
		return At(*x), nil
	case string:
		return ParseBound(x)
	default:
		return Bound{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidTimeInput, v)
	}
}

// ParseInstant parses a timestamp found in a data file and returns it in
// UTC. Naive values are read as UTC.
func ParseInstant(s string) (time.Time, error) {
	b, err := ParseBound(s)
	if err != nil {
		return time.Time{}, err
	}
	if b.IsNow() {
		return time.Time{}, fmt.Errorf("%w: %q is not an instant", ErrInvalidTimeInput, s)
	}
	return b.utc(), nil
}

func (b Bound) utc() time.Time {
	if b.kind == naiveBound {
		t := b.t
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
	return b.t.UTC()
}

// Range is a pair of zone-aware instants. Start <= End is the caller's
// responsibility.
type Range struct {
	Start time.Time
	End   time.Time
}

// In returns r expressed in loc.
func (r Range) In(loc *time.Location) Range {
	return Range{Start: r.Start.In(loc), End: r.End.In(loc)}
}

// UTC returns r expressed in UTC.
func (r Range) UTC() Range {
	return r.In(time.UTC)
}

// Duration returns End - Start.
func (r Range) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s]", r.Start.Format(time.RFC3339Nano), r.End.Format(time.RFC3339Nano))
}

// Normalizer converts bounds into the logging service's zone.
type Normalizer struct {
	zone *time.Location
	now  func() time.Time
}

// NewNormalizer returns a Normalizer targeting zone.
func NewNormalizer(zone *time.Location) *Normalizer {
	if zone == nil {
		zone = time.UTC
	}
	return &Normalizer{zone: zone, now: time.Now}
}

// LoadNormalizer returns a Normalizer for the named IANA zone.
func LoadNormalizer(name string) (*Normalizer, error) {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load zone %q: %w", name, err)
	}
	return NewNormalizer(loc), nil
}

// WithClock returns a copy of n that resolves the now sentinel with clock.
func (n *Normalizer) WithClock(clock func() time.Time) *Normalizer {
	c := *n
	c.now = clock
	return &c
}

// Zone returns the target zone.
func (n *Normalizer) Zone() *time.Location {
	return n.zone
}

// Instant converts one bound. The now sentinel is accepted only when
// allowNow is set.
func (n *Normalizer) Instant(b Bound, allowNow bool) (time.Time, error) {
	switch b.kind {
	case naiveBound, awareBound:
		return b.utc().In(n.zone), nil
	case nowBound:
		if !allowNow {
			return time.Time{}, fmt.Errorf("%w: %q is only valid as an end bound", ErrInvalidTimeInput, NowSentinel)
		}
		return n.now().In(n.zone), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unset bound", ErrInvalidTimeInput)
	}
}

// Normalize converts a start/end pair. The now sentinel is accepted for
// the end bound only.
func (n *Normalizer) Normalize(start, end Bound) (Range, error) {
	s, err := n.Instant(start, false)
	if err != nil {
		return Range{}, fmt.Errorf("start: %w", err)
	}
	e, err := n.Instant(end, true)
	if err != nil {
		return Range{}, fmt.Errorf("end: %w", err)
	}
	return Range{Start: s, End: e}, nil
}

// NormalizeValues is Normalize over values accepted by FromValue.
func (n *Normalizer) NormalizeValues(start, end any) (Range, error) {
	sb, err := FromValue(start)
	if err != nil {
		return Range{}, fmt.Errorf("start: %w", err)
	}
	eb, err := FromValue(end)
	if err != nil {
		return Range{}, fmt.Errorf("end: %w", err)
	}
	return n.Normalize(sb, eb)
}
