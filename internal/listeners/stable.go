package listeners

import (
	"context"
	"log/slog"

	"github.com/pixil98/go-horses/internal/display"
	"github.com/pixil98/go-horses/internal/horses"
	"github.com/pixil98/go-horses/internal/session"
	"github.com/pixil98/go-horses/internal/summon"
)

// MaxFollowDistanceSquared is how far, squared, an owner may teleport before
// a horse that can not follow is dismissed.
const MaxFollowDistanceSquared = 32 * 32

const dismissedMessage = "{{ .Name }} was dismissed because you moved too far away"

// Stables loads and persists stables.
type Stables interface {
	GetStable(ctx context.Context, owner horses.Owner, group string) *horses.Stable
	Save(ctx context.Context, st *horses.Stable)
}

// StableListener keeps an owner's live horse in step with the owner's
// session.
type StableListener struct {
	stables  Stables
	policies summon.PolicyResolver
	notifier summon.Notifier
}

func NewStableListener(stables Stables, policies summon.PolicyResolver, notifier summon.Notifier) *StableListener {
	return &StableListener{
		stables:  stables,
		policies: policies,
		notifier: notifier,
	}
}

func (l *StableListener) Register(d *session.Directory) {
	d.OnTeleport(l.onTeleport)
	d.OnLeave(l.onLeave)
}

// onTeleport takes the active horse along, or dismisses it when the policy
// says so and the owner left the world or went too far.
func (l *StableListener) onTeleport(ctx context.Context, s session.Session, from, to horses.Location) {
	h := l.stables.GetStable(ctx, s.Owner, s.Group).ActiveHorse()
	if h == nil {
		return
	}
	actor := h.Actor()
	if actor == nil {
		return
	}

	if !l.policies.Policy(s.ID).DismissOnTeleport {
		if err := actor.Teleport(to); err != nil {
			slog.WarnContext(ctx, "failed to teleport horse", "session", s.ID, "horse", h.Name(), "error", err)
		}
		return
	}

	// Different worlds are infinitely far apart.
	if from.DistanceSquared(to) <= MaxFollowDistanceSquared {
		return
	}

	msg, err := display.Expand(dismissedMessage, struct{ Name string }{Name: h.DisplayName()})
	if err != nil {
		slog.WarnContext(ctx, "failed to render message", "error", err)
	} else if l.notifier != nil {
		l.notifier.Notify(ctx, s.ID, msg)
	}
	h.Dematerialize()
}

func (l *StableListener) onLeave(ctx context.Context, s session.Session) {
	st := l.stables.GetStable(ctx, s.Owner, s.Group)
	if h := st.ActiveHorse(); h != nil {
		h.Dematerialize()
	}
	l.stables.Save(ctx, st)
}

// HorseDied records the death of a horse reported by the world engine.
func (l *StableListener) HorseDied(ctx context.Context, owner horses.Owner, group string, name string, ts int64) bool {
	st := l.stables.GetStable(ctx, owner, group)
	h := st.FindHorse(name, true)
	if h == nil {
		slog.WarnContext(ctx, "death reported for unknown horse", "owner", owner, "group", group, "horse", name)
		return false
	}
	h.RecordDeath(ts)
	l.stables.Save(ctx, st)
	return true
}
