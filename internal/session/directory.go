package session

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/pixil98/go-horses/internal/horses"
	"github.com/pixil98/go-horses/internal/summon"
)

// Session is a live connection of an owner to the world.
type Session struct {
	ID          summon.SessionID `json:"id"`
	Owner       horses.Owner     `json:"owner"`
	Group       string           `json:"group"`
	Permissions []string         `json:"permissions"`
	Location    horses.Location  `json:"location"`
}

// MoveHook observes a session changing location.
type MoveHook func(ctx context.Context, s Session, from, to horses.Location)

// LeaveHook observes a session ending.
type LeaveHook func(ctx context.Context, s Session)

// Directory tracks live sessions and fans their events out to hooks. Hooks
// run on the caller's goroutine, after the directory has been updated.
type Directory struct {
	mu       sync.RWMutex
	sessions map[summon.SessionID]*Session

	onMove     []MoveHook
	onTeleport []MoveHook
	onLeave    []LeaveHook
}

func NewDirectory() *Directory {
	return &Directory{
		sessions: map[summon.SessionID]*Session{},
	}
}

// OnMove registers a hook for every location change, teleports included.
func (d *Directory) OnMove(h MoveHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onMove = append(d.onMove, h)
}

// OnTeleport registers a hook for teleports only.
func (d *Directory) OnTeleport(h MoveHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onTeleport = append(d.onTeleport, h)
}

func (d *Directory) OnLeave(h LeaveHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onLeave = append(d.onLeave, h)
}

func (d *Directory) Join(s Session) error {
	if s.ID == "" {
		return fmt.Errorf("joining: %w: empty id", ErrUnknownSession)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.sessions[s.ID]; ok {
		return fmt.Errorf("joining %s: %w", s.ID, ErrSessionExists)
	}
	s.Permissions = slices.Clone(s.Permissions)
	d.sessions[s.ID] = &s
	return nil
}

// Leave removes the session and runs the leave hooks.
func (d *Directory) Leave(ctx context.Context, id summon.SessionID) error {
	d.mu.Lock()
	s, ok := d.sessions[id]
	delete(d.sessions, id)
	hooks := slices.Clone(d.onLeave)
	d.mu.Unlock()

	if !ok {
		return fmt.Errorf("leaving %s: %w", id, ErrUnknownSession)
	}
	for _, h := range hooks {
		h(ctx, *s)
	}
	return nil
}

// Move records a walk to a new location and runs the move hooks.
func (d *Directory) Move(ctx context.Context, id summon.SessionID, to horses.Location) error {
	s, from, err := d.relocate(id, to)
	if err != nil {
		return fmt.Errorf("moving %s: %w", id, err)
	}
	d.fire(ctx, d.moveHooks(), s, from, to)
	return nil
}

// Teleport records a jump to a new location. Teleport hooks run first, then
// the move hooks.
func (d *Directory) Teleport(ctx context.Context, id summon.SessionID, to horses.Location) error {
	s, from, err := d.relocate(id, to)
	if err != nil {
		return fmt.Errorf("teleporting %s: %w", id, err)
	}

	d.mu.RLock()
	hooks := slices.Clone(d.onTeleport)
	d.mu.RUnlock()

	d.fire(ctx, hooks, s, from, to)
	d.fire(ctx, d.moveHooks(), s, from, to)
	return nil
}

func (d *Directory) relocate(id summon.SessionID, to horses.Location) (Session, horses.Location, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[id]
	if !ok {
		return Session{}, horses.Location{}, ErrUnknownSession
	}
	from := s.Location
	s.Location = to
	return *s, from, nil
}

func (d *Directory) moveHooks() []MoveHook {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.onMove)
}

func (d *Directory) fire(ctx context.Context, hooks []MoveHook, s Session, from, to horses.Location) {
	for _, h := range hooks {
		h(ctx, s, from, to)
	}
}

// Get returns a copy of the session.
func (d *Directory) Get(id summon.SessionID) (Session, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}

func (d *Directory) SessionValid(id summon.SessionID) bool {
	_, ok := d.Get(id)
	return ok
}

func (d *Directory) SessionLocation(id summon.SessionID) (horses.Location, bool) {
	s, ok := d.Get(id)
	return s.Location, ok
}

func (d *Directory) HasPermission(id summon.SessionID, perm string) bool {
	s, ok := d.Get(id)
	return ok && slices.Contains(s.Permissions, perm)
}
