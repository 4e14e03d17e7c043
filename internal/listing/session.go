package listing

import (
	"sync"
	"time"

	"omahashows/internal/dates"
)

// Options configures a Session.
type Options struct {
	EventsPageSize  int
	HistoryPageSize int
	WeekStart       time.Weekday
	Location        *time.Location
	Debounce        time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Session owns one FilterState plus presentation state (reveal count,
// calendar month, selected date, collapse toggles) and recomputes the View
// on every change. A filter change always resets the reveal window in the
// same recomputation.
//
// The mutex only serializes the debouncer's timer goroutine against the
// owner; a Session is otherwise meant for a single caller.
type Session struct {
	mu sync.Mutex

	opts      Options
	snap      Snapshot
	filter    FilterState
	revealed  int
	month     string
	selected  string
	collapsed map[string]bool
	typed     string
	view      View

	onChange func(View)
	search   *Debouncer
	// queryGen invalidates debounced commits older than the last keystroke
	// or direct SetQuery.
	queryGen uint64
}

func NewSession(snap Snapshot, opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	s := &Session{
		opts:      opts,
		snap:      snap,
		filter:    DefaultFilterState(),
		collapsed: map[string]bool{},
		search:    NewDebouncer(opts.Debounce),
	}
	s.recomputeLocked()
	return s
}

// OnChange registers a callback run after every recomputation, outside the
// session lock.
func (s *Session) OnChange(fn func(View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Session) Filter() FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Month returns the displayed calendar month and the selected date.
func (s *Session) Month() (month, selected string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentMonth(), s.selected
}

// Typed returns the raw search text, which may not be committed yet.
func (s *Session) Typed() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typed
}

// SetSnapshot swaps in freshly loaded data. Filters are kept; the reveal
// window starts over.
func (s *Session) SetSnapshot(snap Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.revealed = 0
	s.finish()
}

// Update applies fn to the filter state. When the state changes, the reveal
// window resets and the view is recomputed.
func (s *Session) Update(fn func(FilterState) FilterState) {
	s.mu.Lock()
	next := fn(s.filter)
	if next.Equal(s.filter) {
		s.mu.Unlock()
		return
	}
	s.filter = next
	s.revealed = 0
	s.finish()
}

func (s *Session) SetMode(m Mode) {
	s.Update(func(f FilterState) FilterState { f.Mode = m; return f })
}

// CycleMode advances to the next mode in display order.
func (s *Session) CycleMode() {
	s.Update(func(f FilterState) FilterState {
		modes := Modes()
		f.Mode = modes[(int(f.Mode)+1)%len(modes)]
		return f
	})
}

func (s *Session) SetDirection(d Direction) {
	s.Update(func(f FilterState) FilterState { f.Direction = d; return f })
}

func (s *Session) ToggleVenue(id string) {
	known := s.Snapshot().KnownVenues()
	s.Update(func(f FilterState) FilterState { f.Venues = f.Venues.Toggle(id, known); return f })
}

func (s *Session) SetVenues(set VenueSet) {
	s.Update(func(f FilterState) FilterState { f.Venues = set; return f })
}

func (s *Session) SetTimeFilter(t TimeFilter) {
	s.Update(func(f FilterState) FilterState { f.Time = t; return f })
}

func (s *Session) SetHistoryTimeFilter(t HistoryTimeFilter) {
	s.Update(func(f FilterState) FilterState { f.HistoryTime = t; return f })
}

// CycleTimeFilter steps the time filter of the current mode.
func (s *Session) CycleTimeFilter() {
	s.Update(func(f FilterState) FilterState {
		if f.Mode == ModeHistory {
			fs := HistoryTimeFilters()
			f.HistoryTime = fs[(indexOf(fs, f.HistoryTime)+1)%len(fs)]
			return f
		}
		fs := TimeFilters()
		f.Time = fs[(indexOf(fs, f.Time)+1)%len(fs)]
		return f
	})
}

// SetQuery commits search text immediately and drops any pending keystroke.
func (s *Session) SetQuery(q string) {
	s.search.Stop()
	s.mu.Lock()
	s.typed = q
	s.queryGen++
	gen := s.queryGen
	s.mu.Unlock()
	s.commitQuery(q, gen)
}

// TypeQuery records a keystroke; the query is committed after the debounce
// delay unless another keystroke arrives first.
func (s *Session) TypeQuery(q string) {
	s.mu.Lock()
	s.typed = q
	s.queryGen++
	gen := s.queryGen
	s.mu.Unlock()
	s.search.Schedule(func() { s.commitQuery(q, gen) })
}

// FlushQuery commits a pending keystroke now.
func (s *Session) FlushQuery() bool {
	return s.search.Flush()
}

// commitQuery applies q unless a newer keystroke or SetQuery superseded it.
func (s *Session) commitQuery(q string, gen uint64) {
	s.mu.Lock()
	if gen != s.queryGen || s.filter.Query == q {
		s.mu.Unlock()
		return
	}
	s.filter.Query = q
	s.revealed = 0
	s.finish()
}

// LoadMore reveals one more page. It is a no-op when fully revealed.
func (s *Session) LoadMore() bool {
	s.mu.Lock()
	r := s.view.Reveal
	if !r.LoadMore() {
		s.mu.Unlock()
		return false
	}
	s.revealed = r.Count
	s.finish()
	return true
}

// SetMonth changes the displayed calendar month. Filters are untouched.
func (s *Session) SetMonth(month string) {
	s.mu.Lock()
	s.month = month
	s.finish()
}

// ShiftMonth moves the calendar by delta months.
func (s *Session) ShiftMonth(delta int) {
	s.mu.Lock()
	cur, err := time.Parse(dates.MonthLayout, s.currentMonth())
	if err != nil {
		cur, _ = time.Parse(dates.MonthLayout, dates.MonthKey(s.clock().Today))
	}
	s.month = cur.AddDate(0, delta, 0).Format(dates.MonthLayout)
	s.finish()
}

// SelectDate opens a date's detail. Dates without events are inert.
func (s *Session) SelectDate(date string) bool {
	s.mu.Lock()
	b := s.calendarBuckets()
	if b.Count(date) == 0 {
		s.mu.Unlock()
		return false
	}
	s.selected = date
	s.month = dates.MonthKey(date)
	s.finish()
	return true
}

// ClearSelection closes the date detail.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	s.selected = ""
	s.finish()
}

// SelectAdjacent jumps to the previous (dir < 0) or next date with events.
// Without a selection, "next" starts at today itself.
func (s *Session) SelectAdjacent(dir int) bool {
	s.mu.Lock()
	b := s.calendarBuckets()
	anchor := s.selectionAnchor()
	if s.selected == "" && dir > 0 && b.Count(anchor) > 0 {
		s.mu.Unlock()
		return s.SelectDate(anchor)
	}
	prev, next := b.Neighbors(anchor)
	s.mu.Unlock()

	target := next
	if dir < 0 {
		target = prev
	}
	if target == "" {
		return false
	}
	return s.SelectDate(target)
}

// ToggleCollapsed flips a history month ("YYYY-MM") or day group.
func (s *Session) ToggleCollapsed(key string) {
	s.mu.Lock()
	cur, ok := s.view.collapsedState(key)
	if !ok {
		cur, ok = s.collapsed[key]
	}
	if !ok && dates.MonthKey(key) == "" {
		// A month outside the revealed window.
		c := s.clock()
		shows := FilterHistory(s.snap.historyItems(c), s.filter, s.snap.KnownVenues(), c)
		cur = MonthCollapsedByDefault(shows, key, c)
	}
	s.collapsed[key] = !cur
	s.finish()
}

// Close cancels any pending debounced update.
func (s *Session) Close() {
	s.search.Stop()
}

func (s *Session) clock() Clock {
	return NewClock(s.opts.Now(), s.opts.Location)
}

func (s *Session) calendarBuckets() CalendarBuckets {
	c := s.clock()
	return BucketByDay(CalendarEvents(s.snap.Events, s.filter.Venues, s.snap.KnownVenues(), c))
}

func (s *Session) currentMonth() string {
	switch {
	case s.view.Calendar != nil:
		return s.view.Calendar.Grid.Month
	case s.month != "":
		return s.month
	case s.selected != "":
		return dates.MonthKey(s.selected)
	}
	return dates.MonthKey(s.clock().Today)
}

func (s *Session) selectionAnchor() string {
	if s.selected != "" {
		return s.selected
	}
	return s.clock().Today
}

func (s *Session) recomputeLocked() {
	s.view = Compute(s.snap, Request{
		Filter:          s.filter,
		Clock:           s.clock(),
		Revealed:        s.revealed,
		EventsPageSize:  s.opts.EventsPageSize,
		HistoryPageSize: s.opts.HistoryPageSize,
		Month:           s.month,
		Selected:        s.selected,
		WeekStart:       s.opts.WeekStart,
		Collapsed:       s.collapsed,
	})
}

// finish recomputes, releases the lock taken by the caller and notifies.
func (s *Session) finish() {
	s.recomputeLocked()
	v, cb := s.view, s.onChange
	s.mu.Unlock()
	if cb != nil {
		cb(v)
	}
}

func (v View) collapsedState(key string) (bool, bool) {
	for _, m := range v.History {
		if m.Key == key {
			return m.Collapsed, true
		}
		for _, d := range m.Days {
			if d.Date == key {
				return d.Collapsed, true
			}
		}
	}
	return false, false
}

func indexOf[T comparable](xs []T, x T) int {
	for i, v := range xs {
		if v == x {
			return i
		}
	}
	return -1
}
