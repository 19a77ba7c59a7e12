package summon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pixil98/go-horses/internal/display"
	"github.com/pixil98/go-horses/internal/horses"
)

// SessionID identifies a live session.
type SessionID string

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Timer runs fn once after d has elapsed.
type Timer interface {
	ScheduleAfter(d time.Duration, fn func())
}

// Sessions reports on live sessions.
type Sessions interface {
	SessionValid(id SessionID) bool
	SessionLocation(id SessionID) (horses.Location, bool)
}

// Notifier delivers a message to a session.
type Notifier interface {
	Notify(ctx context.Context, id SessionID, msg string)
}

// StableSource looks up the stable for an owner and group.
type StableSource interface {
	GetStable(ctx context.Context, owner horses.Owner, group string) *horses.Stable
}

// Request asks for a horse to be summoned to a session. An empty Horse means
// the stable's last active horse.
type Request struct {
	Session SessionID
	Owner   horses.Owner
	Group   string
	Horse   string
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

type pending struct {
	start      time.Time
	seq        uint64
	generation uint64
	horse      *horses.Horse
}

// Scheduler runs delayed, cancellable summons. Each session has at most one
// pending summon. A completion only fires if its entry is still the pending
// one for the session and the scheduler has not been invalidated since.
type Scheduler struct {
	stables  StableSource
	spawner  horses.Spawner
	sessions Sessions
	timer    Timer

	clock    Clock
	policies PolicyResolver
	regions  RegionAuthorizer
	notifier Notifier
	messages *display.Templates

	mu         sync.Mutex
	pending    map[SessionID]pending
	seq        uint64
	generation uint64
}

type SchedulerOpt func(*Scheduler)

func WithClock(c Clock) SchedulerOpt {
	return func(s *Scheduler) {
		s.clock = c
	}
}

func WithPolicies(p PolicyResolver) SchedulerOpt {
	return func(s *Scheduler) {
		s.policies = p
	}
}

func WithRegions(r RegionAuthorizer) SchedulerOpt {
	return func(s *Scheduler) {
		s.regions = r
	}
}

func WithNotifier(n Notifier) SchedulerOpt {
	return func(s *Scheduler) {
		s.notifier = n
	}
}

func WithMessages(t *display.Templates) SchedulerOpt {
	return func(s *Scheduler) {
		s.messages = t
	}
}

func NewScheduler(stables StableSource, spawner horses.Spawner, sessions Sessions, timer Timer, opts ...SchedulerOpt) *Scheduler {
	s := &Scheduler{
		stables:  stables,
		spawner:  spawner,
		sessions: sessions,
		timer:    timer,
		clock:    systemClock{},
		policies: FixedPolicy{AllowSummon: true},
		pending:  map[SessionID]pending{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.messages == nil {
		// The built in templates always parse.
		s.messages, _ = Messages(nil)
	}
	return s
}

// Request resolves and gates a summon. Gates run in order: pending summon,
// target horse, permission, death cooldown, region. The first failing gate
// decides the result. With no delay the horse is summoned immediately,
// otherwise a completion is scheduled and StatusInProgress returned.
func (s *Scheduler) Request(ctx context.Context, req Request) Result {
	id := req.Session
	policy := s.policies.Policy(id)
	now := s.clock.Now()

	if s.stillPending(id, now, policy.SummonDelay) {
		return s.report(ctx, id, Result{Status: StatusAlreadyInProgress})
	}

	st := s.stables.GetStable(ctx, req.Owner, req.Group)
	var h *horses.Horse
	if req.Horse == "" {
		h = st.LastActiveHorse()
		if h == nil {
			return s.report(ctx, id, Result{Status: StatusNoLastActive})
		}
	} else {
		h = st.FindHorse(req.Horse, true)
		if h == nil {
			return s.report(ctx, id, Result{Status: StatusNoSuchHorse, Name: req.Horse})
		}
	}
	res := Result{Horse: h, Name: h.DisplayName()}

	if !policy.AllowSummon {
		res.Status = StatusPermissionDenied
		return s.report(ctx, id, res)
	}

	if h.LastDeath() != 0 {
		since := now.Sub(time.UnixMilli(h.LastDeath()))
		if since < policy.DeathCooldown {
			res.Status = StatusDeathCooldown
			res.Remaining = policy.DeathCooldown - since
			return s.report(ctx, id, res)
		}
	}

	if s.regions != nil {
		loc, ok := s.sessions.SessionLocation(id)
		if !ok || !s.regions.AllowSummon(id, loc) {
			res.Status = StatusRegionDenied
			return s.report(ctx, id, res)
		}
	}

	if policy.SummonDelay <= 0 {
		return s.report(ctx, id, s.materialize(ctx, id, h))
	}

	s.mu.Lock()
	if cur, ok := s.pending[id]; ok && now.Sub(cur.start) < policy.SummonDelay {
		s.mu.Unlock()
		return s.report(ctx, id, Result{Status: StatusAlreadyInProgress})
	}
	s.seq++
	entry := pending{
		start:      now,
		seq:        s.seq,
		generation: s.generation,
		horse:      h,
	}
	s.pending[id] = entry
	s.mu.Unlock()

	cbCtx := context.WithoutCancel(ctx)
	s.timer.ScheduleAfter(policy.SummonDelay, func() {
		s.complete(cbCtx, id, entry)
	})

	res.Status = StatusInProgress
	res.Delay = policy.SummonDelay
	return s.report(ctx, id, res)
}

// stillPending reports whether id has a pending summon younger than delay.
// An older entry is dropped.
func (s *Scheduler) stillPending(id SessionID, now time.Time, delay time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.pending[id]
	if !ok {
		return false
	}
	if now.Sub(cur.start) < delay {
		return true
	}
	delete(s.pending, id)
	return false
}

func (s *Scheduler) complete(ctx context.Context, id SessionID, entry pending) {
	s.mu.Lock()
	cur, ok := s.pending[id]
	if !ok || cur.seq != entry.seq || !cur.start.Equal(entry.start) || entry.generation != s.generation {
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	s.mu.Unlock()

	// Only summon if the session is still around and the horse still belongs
	// to a stable.
	if !s.sessions.SessionValid(id) || entry.horse.Stable() == nil {
		return
	}
	s.report(ctx, id, s.materialize(ctx, id, entry.horse))
}

func (s *Scheduler) materialize(ctx context.Context, id SessionID, h *horses.Horse) Result {
	res := Result{Horse: h, Name: h.DisplayName()}

	loc, ok := s.sessions.SessionLocation(id)
	if !ok {
		slog.WarnContext(ctx, "failed to summon horse: session has no location", "session", id, "horse", h.Name())
		res.Status = StatusSpawnFailed
		return res
	}
	if err := h.Materialize(ctx, s.spawner, loc); err != nil {
		slog.WarnContext(ctx, "failed to summon horse", "session", id, "horse", h.Name(), "error", err)
		res.Status = StatusSpawnFailed
		return res
	}

	res.Status = StatusSummoned
	return res
}

// Cancel drops the pending summon for id and tells the session. It reports
// whether a summon was pending.
func (s *Scheduler) Cancel(ctx context.Context, id SessionID) bool {
	if !s.remove(id) {
		return false
	}
	s.report(ctx, id, Result{Status: StatusCancelled})
	return true
}

// Forget drops the pending summon for id without notifying anyone. It is used
// when the session ends.
func (s *Scheduler) Forget(id SessionID) {
	s.remove(id)
}

func (s *Scheduler) remove(id SessionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[id]; !ok {
		return false
	}
	delete(s.pending, id)
	return true
}

func (s *Scheduler) IsPending(id SessionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.pending[id]
	return ok
}

// Invalidate drops every pending summon and turns completions scheduled so
// far into no-ops. It is called when the service reloads.
func (s *Scheduler) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	clear(s.pending)
}

func (s *Scheduler) report(ctx context.Context, id SessionID, res Result) Result {
	if s.notifier != nil {
		s.notifier.Notify(ctx, id, render(s.messages, res))
	}
	return res
}
