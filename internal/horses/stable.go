package horses

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// DefaultGroup is the group name of the ungrouped stable.
const DefaultGroup = ""

// Stable is the collection of horses one owner keeps in one group. It is not
// safe for concurrent use; callers serialize access.
type Stable struct {
	owner Owner
	group string

	horses     map[string]*Horse
	active     *Horse
	lastActive *Horse

	dirty bool
}

func NewStable(owner Owner, group string) *Stable {
	return &Stable{
		owner:  owner,
		group:  group,
		horses: map[string]*Horse{},
	}
}

func (s *Stable) Owner() Owner {
	return s.owner
}

func (s *Stable) Group() string {
	return s.group
}

// FindHorse looks a horse up by name, ignoring case and formatting codes.
// Unless exactOnly is set, a name that matches no horse exactly falls back to
// a prefix match, which only succeeds if it is unambiguous.
func (s *Stable) FindHorse(name string, exactOnly bool) *Horse {
	key := foldKey(name)
	if key == "" {
		return nil
	}

	if h, ok := s.horses[key]; ok {
		return h
	}
	if exactOnly {
		return nil
	}

	var found *Horse
	for k, h := range s.horses {
		if !strings.HasPrefix(k, key) {
			continue
		}
		if found != nil {
			return nil
		}
		found = h
	}
	return found
}

// AddHorse inserts h and takes ownership of it.
func (s *Stable) AddHorse(h *Horse) error {
	key := foldKey(h.name)
	if key == "" {
		return ErrInvalidName
	}
	if _, exists := s.horses[key]; exists {
		return fmt.Errorf("%w: %s", ErrHorseExists, h.name)
	}

	h.stable = s
	s.horses[key] = h
	s.dirty = true
	return nil
}

// CreateHorse adds a new horse with the variant's baseline attributes.
func (s *Stable) CreateHorse(displayName string, typ HorseType, maxHealth float64) (*Horse, error) {
	h := NewHorse(displayName, typ, maxHealth, maxHealth, typ.DefaultSpeed(), typ.DefaultJumpStrength())
	if err := s.AddHorse(h); err != nil {
		return nil, err
	}
	return h, nil
}

// RemoveHorse removes h, clearing the active and last active pointers if they
// referenced it. It reports whether h was part of the stable.
func (s *Stable) RemoveHorse(h *Horse) bool {
	key := foldKey(h.name)
	if cur, ok := s.horses[key]; !ok || cur != h {
		return false
	}

	if s.active == h {
		h.Dematerialize()
		s.active = nil
	}
	if s.lastActive == h {
		s.lastActive = nil
	}

	delete(s.horses, key)
	h.stable = nil
	s.dirty = true
	return true
}

func (s *Stable) ActiveHorse() *Horse {
	return s.active
}

// SetActiveHorse makes h the single active horse, dematerializing the
// previous one first. A nil h only clears the pointer.
func (s *Stable) SetActiveHorse(h *Horse) {
	if prev := s.active; prev != nil && prev != h {
		s.active = nil
		prev.Dematerialize()
	}
	s.active = h
}

func (s *Stable) LastActiveHorse() *Horse {
	return s.lastActive
}

func (s *Stable) SetLastActiveHorse(h *Horse) {
	if s.lastActive != h {
		s.dirty = true
	}
	s.lastActive = h
}

func (s *Stable) HorseCount() int {
	return len(s.horses)
}

// Horses returns the stable's horses ordered by name.
func (s *Stable) Horses() []*Horse {
	out := make([]*Horse, 0, len(s.horses))
	for _, h := range s.horses {
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b *Horse) int {
		return strings.Compare(foldKey(a.name), foldKey(b.name))
	})
	return out
}

// Dirty reports whether the stable changed since it was last loaded or saved.
func (s *Stable) Dirty() bool {
	return s.dirty
}

func (s *Stable) MarkDirty() {
	s.dirty = true
}

func (s *Stable) MarkClean() {
	s.dirty = false
}

// foldKey normalizes a name for case-insensitive comparison. A Caser holds
// state, so a fresh one is made per call.
func foldKey(name string) string {
	return cases.Fold().String(StripColour(TranslateColourCodes(name)))
}
