// Package venue holds the authoritative enumeration of venue ids. Every
// filterable venue key in the app comes from a Registry; names that cannot
// be resolved are reported rather than silently dropped.
package venue

import (
	"errors"
	"fmt"
	"strings"

	"omahashows/internal/config"
	"omahashows/internal/model"
)

// OtherID is the catch-all bucket for events whose source is not registered
// and for history shows whose venue name is unmapped.
const OtherID = "other"

var (
	ErrDuplicateID   = errors.New("venue: duplicate id")
	ErrAliasConflict = errors.New("venue: alias claimed by two venues")
	ErrUnmapped      = errors.New("venue: unmapped name")
)

type Venue struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Color   string   `json:"color,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
}

// Registry is immutable after construction and safe for concurrent reads.
type Registry struct {
	venues  []Venue
	byID    map[string]int
	byAlias map[string]string
}

// New builds a registry. The "other" bucket is appended when missing.
// Building fails on duplicate ids or on a name/alias that two different
// venues claim.
func New(venues []Venue) (*Registry, error) {
	r := &Registry{
		byID:    make(map[string]int, len(venues)+1),
		byAlias: make(map[string]string),
	}
	for _, v := range venues {
		if err := r.add(v); err != nil {
			return nil, err
		}
	}
	if _, ok := r.byID[OtherID]; !ok {
		if err := r.add(Venue{ID: OtherID, Name: "Other"}); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(v Venue) error {
	v.ID = strings.TrimSpace(v.ID)
	if v.ID == "" {
		return fmt.Errorf("venue: empty id (name %q)", v.Name)
	}
	if _, dup := r.byID[v.ID]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateID, v.ID)
	}
	if v.Name == "" {
		v.Name = v.ID
	}

	names := append([]string{v.ID, v.Name}, v.Aliases...)
	for _, n := range names {
		key := normalize(n)
		if key == "" {
			continue
		}
		if owner, ok := r.byAlias[key]; ok && owner != v.ID {
			return fmt.Errorf("%w: %q (%s, %s)", ErrAliasConflict, n, owner, v.ID)
		}
	}
	for _, n := range names {
		if key := normalize(n); key != "" {
			r.byAlias[key] = v.ID
		}
	}

	r.byID[v.ID] = len(r.venues)
	r.venues = append(r.venues, v)
	return nil
}

// FromConfig builds the registry from configured venues plus the ids the
// events feed declares in its sources list. A feed source already present in
// config only contributes its display name as an extra alias.
func FromConfig(cfgs []config.VenueConfig, sources []model.SourceStatus) (*Registry, error) {
	venues := make([]Venue, 0, len(cfgs)+len(sources))
	index := make(map[string]int, len(cfgs))
	for _, c := range cfgs {
		index[strings.TrimSpace(c.ID)] = len(venues)
		venues = append(venues, Venue{
			ID:      c.ID,
			Name:    c.Name,
			Color:   c.Color,
			Aliases: append([]string(nil), c.Aliases...),
		})
	}
	for _, s := range sources {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			continue
		}
		if i, ok := index[id]; ok {
			if s.Name != "" && !strings.EqualFold(s.Name, venues[i].Name) {
				venues[i].Aliases = append(venues[i].Aliases, s.Name)
			}
			continue
		}
		index[id] = len(venues)
		venues = append(venues, Venue{ID: id, Name: s.Name})
	}
	return New(venues)
}

// IDs returns every registered id in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.venues))
	for i, v := range r.venues {
		ids[i] = v.ID
	}
	return ids
}

func (r *Registry) Venues() []Venue {
	return append([]Venue(nil), r.venues...)
}

func (r *Registry) Len() int { return len(r.venues) }

func (r *Registry) Known(id string) bool {
	_, ok := r.byID[id]
	return ok
}

func (r *Registry) Get(id string) (Venue, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Venue{}, false
	}
	return r.venues[i], true
}

// EventKey maps an event's source to a filterable venue key. Unknown sources
// land in the "other" bucket.
func (r *Registry) EventKey(source string) string {
	source = strings.TrimSpace(source)
	if r.Known(source) {
		return source
	}
	return OtherID
}

// Resolve maps a display name (as found in history.json) to a venue id.
// Matching is case-insensitive and whitespace-insensitive.
func (r *Registry) Resolve(name string) (string, error) {
	if id, ok := r.byAlias[normalize(name)]; ok {
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnmapped, name)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
