package messaging

import (
	"context"
	"fmt"

	"github.com/pixil98/go-horses/internal/summon"
)

// Subjects consumed from the session transport and world engine.
const (
	SubjectSessionJoin     = "session.join"
	SubjectSessionLeave    = "session.leave"
	SubjectSessionMove     = "session.move"
	SubjectSessionTeleport = "session.teleport"
	SubjectSummon          = "horses.summon"
	SubjectDeath           = "horses.death"
	SubjectReload          = "horses.reload"
	SubjectActorGone       = "world.actor.gone"
)

// Subjects this service publishes or sends requests on.
const (
	SubjectSpawn    = "world.spawn"
	SubjectIdentity = "identity.resolve"
)

func sessionSubject(id summon.SessionID) string {
	return fmt.Sprintf("session.%s", id)
}

func actorSubject(id string, action string) string {
	return fmt.Sprintf("world.actor.%s.%s", id, action)
}

// Publisher sends fire and forget messages.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Requester sends a message and waits for a single reply.
type Requester interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

// Subscriber provides the ability to subscribe to message subjects
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (unsubscribe func(), err error)
}

// Bus is the full message bus surface, as provided by NatsServer.
type Bus interface {
	Publisher
	Requester
	Subscriber
	Ready() <-chan struct{}
}
