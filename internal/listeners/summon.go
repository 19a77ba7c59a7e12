package listeners

import (
	"context"

	"github.com/pixil98/go-horses/internal/horses"
	"github.com/pixil98/go-horses/internal/session"
	"github.com/pixil98/go-horses/internal/summon"
)

// Summons is the part of the summon scheduler driven by session events.
type Summons interface {
	IsPending(id summon.SessionID) bool
	Cancel(ctx context.Context, id summon.SessionID) bool
	Forget(id summon.SessionID)
}

// SummonListener cancels a pending summon when its session moves to another
// block and forgets it when the session ends.
type SummonListener struct {
	summons Summons
}

func NewSummonListener(s Summons) *SummonListener {
	return &SummonListener{summons: s}
}

func (l *SummonListener) Register(d *session.Directory) {
	d.OnMove(l.onMove)
	d.OnLeave(l.onLeave)
}

func (l *SummonListener) onMove(ctx context.Context, s session.Session, from, to horses.Location) {
	// Looking around fires moves without changing block.
	if from.SameBlock(to) || !l.summons.IsPending(s.ID) {
		return
	}
	l.summons.Cancel(ctx, s.ID)
}

func (l *SummonListener) onLeave(_ context.Context, s session.Session) {
	l.summons.Forget(s.ID)
}
