package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/pixil98/go-horses/internal/database"
)

type identityRequest struct {
	Name string `json:"name"`
}

type identityReply struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// IdentityClient resolves owner names to canonical ids through the identity
// service on the bus.
type IdentityClient struct {
	req Requester
}

func NewIdentityClient(req Requester) *IdentityClient {
	return &IdentityClient{req: req}
}

func (c *IdentityClient) ResolveID(ctx context.Context, name string) (uuid.UUID, error) {
	data, err := json.Marshal(identityRequest{Name: name})
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshalling identity request: %w", err)
	}

	resp, err := c.req.Request(ctx, SubjectIdentity, data)
	if err != nil {
		return uuid.Nil, err
	}

	var reply identityReply
	if err := json.Unmarshal(resp, &reply); err != nil {
		return uuid.Nil, fmt.Errorf("unmarshalling identity reply: %w", err)
	}
	if reply.Error != "" {
		return uuid.Nil, fmt.Errorf("resolving %q: %s", name, reply.Error)
	}
	if reply.ID == "" {
		return uuid.Nil, fmt.Errorf("%w: %s", database.ErrNoCanonicalID, name)
	}

	id, err := uuid.Parse(reply.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing id for %q: %w", name, err)
	}
	return id, nil
}
