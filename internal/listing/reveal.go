package listing

// Page sizes used when the caller does not configure one.
const (
	DefaultEventsPageSize  = 15
	DefaultHistoryPageSize = 25
)

// Reveal tracks how many of Total filtered items are materialized. It is
// either collapsed to Count < Total, or fully revealed.
type Reveal struct {
	PageSize int `json:"pageSize"`
	Count    int `json:"count"`
	Total    int `json:"total"`
}

// NewReveal starts collapsed to the first page.
func NewReveal(pageSize, total int) Reveal {
	r := Reveal{PageSize: pageSize}
	r.Reset(total)
	return r
}

// Reset is applied on every filter change.
func (r *Reveal) Reset(total int) {
	if r.PageSize <= 0 {
		r.PageSize = DefaultEventsPageSize
	}
	r.Total = max(total, 0)
	r.Count = min(r.PageSize, r.Total)
}

// LoadMore grows by one page, clamped to Total. It is a no-op once fully
// revealed, so a level-triggered caller may fire it repeatedly.
func (r *Reveal) LoadMore() bool {
	if r.FullyRevealed() {
		return false
	}
	r.Count = min(r.Count+r.PageSize, r.Total)
	return true
}

// ShowAtLeast restores a previously revealed count, clamped to
// [first page, Total].
func (r *Reveal) ShowAtLeast(n int) {
	first := min(r.PageSize, r.Total)
	r.Count = min(max(n, first), r.Total)
}

func (r Reveal) FullyRevealed() bool { return r.Count >= r.Total }

func (r Reveal) HasMore() bool { return !r.FullyRevealed() }

func (r Reveal) Remaining() int { return max(r.Total-r.Count, 0) }

// Window returns the revealed prefix of items.
func Window[T any](items []T, r Reveal) []T {
	n := min(max(r.Count, 0), len(items))
	return items[:n:n]
}
