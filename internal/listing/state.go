package listing

import (
	"fmt"
	"slices"
	"strings"
)

// Mode selects which pipeline Compute runs. It is a closed set; Compute
// switches on it exhaustively.
type Mode int

const (
	ModeEvents Mode = iota
	ModeHistory
	ModeCalendar
	ModeDashboard
)

var modeNames = [...]string{
	ModeEvents:    "events",
	ModeHistory:   "history",
	ModeCalendar:  "calendar",
	ModeDashboard: "dashboard",
}

// Modes lists every mode in display order.
func Modes() []Mode {
	return []Mode{ModeEvents, ModeHistory, ModeCalendar, ModeDashboard}
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeEvents, nil
	}
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return ModeEvents, fmt.Errorf("listing: unknown mode %q", s)
}

// Direction is the temporal split of the events feed: the showPast flag.
type Direction int

const (
	// DirectionAny applies no date-direction filter.
	DirectionAny Direction = iota
	// DirectionUpcoming keeps date >= today.
	DirectionUpcoming
	// DirectionPast keeps date < today.
	DirectionPast
)

func (d Direction) String() string {
	switch d {
	case DirectionUpcoming:
		return "upcoming"
	case DirectionPast:
		return "past"
	default:
		return "any"
	}
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "upcoming", "false":
		return DirectionUpcoming, nil
	case "past", "true":
		return DirectionPast, nil
	case "any", "all":
		return DirectionAny, nil
	}
	return DirectionUpcoming, fmt.Errorf("listing: unknown direction %q", s)
}

// TimeFilter is the events-mode time window.
type TimeFilter string

const (
	TimeAll       TimeFilter = "all"
	TimeToday     TimeFilter = "today"
	TimeWeek      TimeFilter = "week"
	TimeJustAdded TimeFilter = "just-added"
)

func TimeFilters() []TimeFilter {
	return []TimeFilter{TimeAll, TimeToday, TimeWeek, TimeJustAdded}
}

func (f TimeFilter) Label() string {
	switch f {
	case TimeToday:
		return "Today"
	case TimeWeek:
		return "Next 7 Days"
	case TimeJustAdded:
		return "Recently Added"
	default:
		return "All Upcoming"
	}
}

func ParseTimeFilter(s string) (TimeFilter, error) {
	f := TimeFilter(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return TimeAll, nil
	}
	if slices.Contains(TimeFilters(), f) {
		return f, nil
	}
	return TimeAll, fmt.Errorf("listing: unknown time filter %q", s)
}

// HistoryTimeFilter is the history-mode time window.
type HistoryTimeFilter string

const (
	HistoryAll      HistoryTimeFilter = "all"
	History30Days   HistoryTimeFilter = "30days"
	History90Days   HistoryTimeFilter = "90days"
	HistoryYear     HistoryTimeFilter = "year"
	HistoryThisYear HistoryTimeFilter = "this-year"

	DefaultHistoryTimeFilter = History30Days
)

func HistoryTimeFilters() []HistoryTimeFilter {
	return []HistoryTimeFilter{History30Days, History90Days, HistoryThisYear, HistoryYear, HistoryAll}
}

func (f HistoryTimeFilter) Label() string {
	switch f {
	case History30Days:
		return "Last 30 Days"
	case History90Days:
		return "Last 90 Days"
	case HistoryThisYear:
		return "This Year"
	case HistoryYear:
		return "Last 12 Months"
	default:
		return "All History"
	}
}

func ParseHistoryTimeFilter(s string) (HistoryTimeFilter, error) {
	f := HistoryTimeFilter(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return DefaultHistoryTimeFilter, nil
	}
	if slices.Contains(HistoryTimeFilters(), f) {
		return f, nil
	}
	return DefaultHistoryTimeFilter, fmt.Errorf("listing: unknown history time filter %q", s)
}

// FilterState is the single value object every recomputation consumes.
// Session replaces it wholesale; nothing mutates one in place.
type FilterState struct {
	Mode        Mode
	Direction   Direction
	Venues      VenueSet
	Time        TimeFilter
	HistoryTime HistoryTimeFilter
	// Query is the committed (debounced) search text.
	Query string
}

// DefaultFilterState is the state a fresh session starts in: upcoming
// events, every venue enabled, no search.
func DefaultFilterState() FilterState {
	return FilterState{
		Mode:        ModeEvents,
		Direction:   DirectionUpcoming,
		Time:        TimeAll,
		HistoryTime: DefaultHistoryTimeFilter,
	}
}

// Equal reports whether two states would produce the same filtered data.
func (s FilterState) Equal(o FilterState) bool {
	return s.Mode == o.Mode &&
		s.Direction == o.Direction &&
		s.Time == o.Time &&
		s.HistoryTime == o.HistoryTime &&
		s.Query == o.Query &&
		s.Venues.Equal(o.Venues)
}

// VenueSet is an immutable set of venue ids. The zero value is the empty
// set, which means "no restriction".
type VenueSet struct {
	ids []string // sorted, unique
}

func NewVenueSet(ids ...string) VenueSet {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return VenueSet{ids: slices.Compact(out)}
}

func (s VenueSet) Len() int { return len(s.ids) }

func (s VenueSet) IDs() []string { return slices.Clone(s.ids) }

func (s VenueSet) Contains(id string) bool {
	_, ok := slices.BinarySearch(s.ids, id)
	return ok
}

// ContainsAll reports whether every id in known is in the set.
func (s VenueSet) ContainsAll(known []string) bool {
	for _, id := range known {
		if !s.Contains(id) {
			return false
		}
	}
	return true
}

// Unrestricted reports whether the set applies no filtering given the
// known venue ids: it is empty, or it selects all of them.
func (s VenueSet) Unrestricted(known []string) bool {
	return s.Len() == 0 || s.ContainsAll(known)
}

// Allows is the venue predicate for an item whose venue key is key.
func (s VenueSet) Allows(key string, known []string) bool {
	return s.Unrestricted(known) || s.Contains(key)
}

func (s VenueSet) With(id string) VenueSet {
	return NewVenueSet(append(slices.Clone(s.ids), id)...)
}

func (s VenueSet) Without(id string) VenueSet {
	return VenueSet{ids: slices.DeleteFunc(slices.Clone(s.ids), func(v string) bool { return v == id })}
}

// Toggle flips one venue. Toggling from the unrestricted empty set first
// expands to every known venue, so the first toggle disables just that one.
func (s VenueSet) Toggle(id string, known []string) VenueSet {
	if s.Len() == 0 {
		s = NewVenueSet(known...)
	}
	if s.Contains(id) {
		return s.Without(id)
	}
	return s.With(id)
}

func (s VenueSet) Equal(o VenueSet) bool {
	return slices.Equal(s.ids, o.ids)
}

func (s VenueSet) String() string {
	return strings.Join(s.ids, ",")
}
