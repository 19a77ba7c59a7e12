package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pixil98/go-horses/internal/horses"
	"github.com/pixil98/go-horses/internal/session"
	"github.com/pixil98/go-horses/internal/summon"
)

// Dispatcher runs work on the driver goroutine.
type Dispatcher interface {
	ScheduleAfter(d time.Duration, fn func())
}

// Summoner is the scheduler surface the gateway drives.
type Summoner interface {
	Request(ctx context.Context, req summon.Request) summon.Result
	Invalidate()
}

// DeathRecorder records horse deaths reported by the world engine.
type DeathRecorder interface {
	HorseDied(ctx context.Context, owner horses.Owner, group string, name string, ts int64) bool
}

type sessionEvent struct {
	ID       summon.SessionID `json:"id"`
	Location horses.Location  `json:"location"`
}

type summonEvent struct {
	Session summon.SessionID `json:"session"`
	Horse   string           `json:"horse"`
}

type deathEvent struct {
	Owner horses.Owner `json:"owner"`
	Group string       `json:"group"`
	Horse string       `json:"horse"`
	// Time is epoch millis.
	Time int64 `json:"time"`
}

type handlerFunc func(ctx context.Context, data []byte) error

// Gateway turns bus messages into session and summon calls. Every message is
// handled on the driver goroutine.
type Gateway struct {
	bus      Bus
	dispatch Dispatcher
	sessions *session.Directory
	summons  Summoner
	deaths   DeathRecorder
}

func NewGateway(bus Bus, dispatch Dispatcher, sessions *session.Directory, summons Summoner, deaths DeathRecorder) *Gateway {
	return &Gateway{
		bus:      bus,
		dispatch: dispatch,
		sessions: sessions,
		summons:  summons,
		deaths:   deaths,
	}
}

func (g *Gateway) routes() map[string]handlerFunc {
	return map[string]handlerFunc{
		SubjectSessionJoin:     g.handleJoin,
		SubjectSessionLeave:    g.handleLeave,
		SubjectSessionMove:     g.handleMove,
		SubjectSessionTeleport: g.handleTeleport,
		SubjectSummon:          g.handleSummon,
		SubjectDeath:           g.handleDeath,
		SubjectReload:          g.handleReload,
	}
}

func (g *Gateway) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-g.bus.Ready():
	}

	var unsubs []func()
	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()

	for subject, handle := range g.routes() {
		unsub, err := g.bus.Subscribe(subject, func(data []byte) {
			g.dispatch.ScheduleAfter(0, func() {
				if err := handle(ctx, data); err != nil {
					slog.WarnContext(ctx, "failed to handle message", "subject", subject, "error", err)
				}
			})
		})
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", subject, err)
		}
		unsubs = append(unsubs, unsub)
	}

	slog.InfoContext(ctx, "gateway subscribed", "subjects", len(unsubs))
	<-ctx.Done()
	return nil
}

func (g *Gateway) handleJoin(_ context.Context, data []byte) error {
	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unmarshalling join: %w", err)
	}
	return g.sessions.Join(s)
}

func (g *Gateway) handleLeave(ctx context.Context, data []byte) error {
	var ev sessionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("unmarshalling leave: %w", err)
	}
	return g.sessions.Leave(ctx, ev.ID)
}

func (g *Gateway) handleMove(ctx context.Context, data []byte) error {
	var ev sessionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("unmarshalling move: %w", err)
	}
	return g.sessions.Move(ctx, ev.ID, ev.Location)
}

func (g *Gateway) handleTeleport(ctx context.Context, data []byte) error {
	var ev sessionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("unmarshalling teleport: %w", err)
	}
	return g.sessions.Teleport(ctx, ev.ID, ev.Location)
}

func (g *Gateway) handleSummon(ctx context.Context, data []byte) error {
	var ev summonEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("unmarshalling summon: %w", err)
	}

	s, ok := g.sessions.Get(ev.Session)
	if !ok {
		return fmt.Errorf("summoning for %s: %w", ev.Session, session.ErrUnknownSession)
	}

	g.summons.Request(ctx, summon.Request{
		Session: s.ID,
		Owner:   s.Owner,
		Group:   s.Group,
		Horse:   ev.Horse,
	})
	return nil
}

func (g *Gateway) handleDeath(ctx context.Context, data []byte) error {
	var ev deathEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("unmarshalling death: %w", err)
	}
	g.deaths.HorseDied(ctx, ev.Owner, ev.Group, ev.Horse, ev.Time)
	return nil
}

func (g *Gateway) handleReload(ctx context.Context, _ []byte) error {
	g.summons.Invalidate()
	slog.InfoContext(ctx, "pending summons invalidated")
	return nil
}
