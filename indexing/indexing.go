// Package indexing provides the built-in special index strategies.
//
// Each strategy stores a derived column next to the indexed one, named
// "_idx_<strategy>_<column>", so lookups the datastore cannot express
// natively become equality or prefix matches on the derived column.
package indexing

import (
	"sort"
	"strings"
	"time"

	"github.com/jacentio/lattice/internal/colname"
	"github.com/jacentio/lattice/store"
)

// DefaultContainsLength is the number of leading characters indexed by Contains.
const DefaultContainsLength = 40

// Func is a strategy backed by a preparation function.
type Func struct {
	name string
	prep func(value any) any
}

// New creates a strategy named name that derives values with prep.
func New(name string, prep func(value any) any) *Func {
	return &Func{name: name, prep: prep}
}

// Name returns the strategy name.
func (f *Func) Name() string {
	return f.name
}

// IndexedColumnName returns the derived column for column.
func (f *Func) IndexedColumnName(column string) string {
	return colname.Indexed(f.name, column)
}

// Prepare returns the derived value.
func (f *Func) Prepare(value any) any {
	return f.prep(value)
}

var (
	// IExact stores the lower-cased value for case-insensitive equality.
	IExact = New("iexact", lower)

	// IStartsWith stores the lower-cased value for case-insensitive prefix matches.
	IStartsWith = New("istartswith", lower)

	// Contains stores every substring of the value.
	Contains = New("contains", func(v any) any { return substrings(v, DefaultContainsLength) })

	// IContains stores every substring of the lower-cased value.
	IContains = New("icontains", func(v any) any { return substrings(lower(v), DefaultContainsLength) })

	// EndsWith stores the reversed value so suffix matches become prefix matches.
	EndsWith = New("endswith", reverse)

	// IEndsWith stores the reversed lower-cased value.
	IEndsWith = New("iendswith", func(v any) any { return reverse(lower(v)) })

	// Year stores the year of a timestamp.
	Year = New("year", datePart(func(t time.Time) int { return t.Year() }))

	// Month stores the month (1-12) of a timestamp.
	Month = New("month", datePart(func(t time.Time) int { return int(t.Month()) }))

	// Day stores the day of month of a timestamp.
	Day = New("day", datePart(func(t time.Time) int { return t.Day() }))

	// WeekDay stores the day of week of a timestamp, 1 (Sunday) to 7 (Saturday).
	WeekDay = New("week_day", datePart(func(t time.Time) int { return int(t.Weekday()) + 1 }))

	// IsNull stores whether the value is nil.
	IsNull = New("isnull", func(v any) any { return v == nil })
)

var builtins = map[string]store.Strategy{}

func init() {
	for _, s := range []*Func{IExact, IStartsWith, Contains, IContains, EndsWith, IEndsWith, Year, Month, Day, WeekDay, IsNull} {
		builtins[s.Name()] = s
	}
}

// Lookup returns the built-in strategy with the given name.
func Lookup(name string) (store.Strategy, bool) {
	s, ok := builtins[name]
	return s, ok
}

// Names returns the names of the built-in strategies, sorted.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lower(v any) any {
	if s, ok := v.(string); ok {
		return strings.ToLower(s)
	}
	return v
}

func reverse(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// substrings returns the distinct substrings of the first max characters of v, sorted.
func substrings(v any, max int) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	r := []rune(s)
	if len(r) > max {
		r = r[:max]
	}
	seen := make(map[string]struct{})
	for i := range r {
		for j := i + 1; j <= len(r); j++ {
			seen[string(r[i:j])] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for sub := range seen {
		out = append(out, sub)
	}
	sort.Strings(out)
	return out
}

// datePart extracts part from timestamps, accepting RFC 3339 strings as read
// back from stored items. Other values yield nil.
func datePart(part func(time.Time) int) func(any) any {
	return func(v any) any {
		switch t := v.(type) {
		case time.Time:
			return part(t)
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return nil
			}
			return part(parsed)
		}
		return nil
	}
}
