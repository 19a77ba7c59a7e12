package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pixil98/go-horses/internal/horses"
)

type horseSpec struct {
	Name         string           `json:"name"`
	DisplayName  string           `json:"display_name"`
	Type         horses.HorseType `json:"type"`
	MaxHealth    float64          `json:"max_health"`
	Health       float64          `json:"health"`
	Speed        float64          `json:"speed"`
	JumpStrength float64          `json:"jump_strength"`
	HasChest     bool             `json:"has_chest"`
	Items        []horses.Item    `json:"items"`
}

type spawnRequest struct {
	Owner    horses.Owner    `json:"owner"`
	Group    string          `json:"group"`
	Horse    horseSpec       `json:"horse"`
	Location horses.Location `json:"location"`
}

type spawnReply struct {
	ActorID string `json:"actor_id"`
	Error   string `json:"error,omitempty"`
}

type actorGone struct {
	ActorID string `json:"actor_id"`
}

// RemoteSpawner asks the world engine on the bus to spawn horses. It tracks
// the actors it created so that removals reported by the engine invalidate
// them.
type RemoteSpawner struct {
	bus Bus

	mu     sync.Mutex
	actors map[string]*remoteActor
}

func NewRemoteSpawner(bus Bus) *RemoteSpawner {
	return &RemoteSpawner{
		bus:    bus,
		actors: map[string]*remoteActor{},
	}
}

func (s *RemoteSpawner) Spawn(ctx context.Context, h *horses.Horse, at horses.Location) (horses.Actor, error) {
	req := spawnRequest{
		Horse: horseSpec{
			Name:         h.Name(),
			DisplayName:  h.DisplayName(),
			Type:         h.Type(),
			MaxHealth:    h.MaxHealth(),
			Health:       h.Health(),
			Speed:        h.Speed(),
			JumpStrength: h.JumpStrength(),
			HasChest:     h.HasChest(),
			Items:        h.Items(),
		},
		Location: at,
	}
	if st := h.Stable(); st != nil {
		req.Owner = st.Owner()
		req.Group = st.Group()
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshalling spawn request: %w", err)
	}

	resp, err := s.bus.Request(ctx, SubjectSpawn, data)
	if err != nil {
		return nil, err
	}

	var reply spawnReply
	if err := json.Unmarshal(resp, &reply); err != nil {
		return nil, fmt.Errorf("unmarshalling spawn reply: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("world engine: %s", reply.Error)
	}
	if reply.ActorID == "" {
		return nil, fmt.Errorf("world engine returned no actor id")
	}

	a := &remoteActor{id: reply.ActorID, spawner: s}
	a.valid.Store(true)

	s.mu.Lock()
	s.actors[a.id] = a
	s.mu.Unlock()

	return a, nil
}

// Start listens for actors the world engine removed on its own.
func (s *RemoteSpawner) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-s.bus.Ready():
	}

	unsub, err := s.bus.Subscribe(SubjectActorGone, func(data []byte) {
		var msg actorGone
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.WarnContext(ctx, "invalid actor gone message", "error", err)
			return
		}
		s.forget(msg.ActorID)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", SubjectActorGone, err)
	}

	<-ctx.Done()
	unsub()
	return nil
}

func (s *RemoteSpawner) forget(id string) {
	s.mu.Lock()
	a, ok := s.actors[id]
	delete(s.actors, id)
	s.mu.Unlock()

	if ok {
		a.valid.Store(false)
	}
}

// Live returns the number of actors believed to exist.
func (s *RemoteSpawner) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actors)
}

type remoteActor struct {
	id      string
	spawner *RemoteSpawner
	valid   atomic.Bool
}

func (a *remoteActor) Valid() bool {
	return a.valid.Load()
}

func (a *remoteActor) Remove() {
	if !a.valid.Load() {
		return
	}
	a.spawner.forget(a.id)
	if err := a.spawner.bus.Publish(actorSubject(a.id, "remove"), nil); err != nil {
		slog.Warn("failed to remove actor", "actor", a.id, "error", err)
	}
}

func (a *remoteActor) Teleport(to horses.Location) error {
	if !a.valid.Load() {
		return fmt.Errorf("actor %s is gone", a.id)
	}
	data, err := json.Marshal(to)
	if err != nil {
		return fmt.Errorf("marshalling location: %w", err)
	}
	return a.spawner.bus.Publish(actorSubject(a.id, "teleport"), data)
}
