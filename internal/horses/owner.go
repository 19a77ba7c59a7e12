package horses

import "github.com/google/uuid"

// Owner identifies the account a stable belongs to. ID is the canonical
// identifier; Name is the legacy display name used before IDs existed.
type Owner struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Key returns the canonical id when known, falling back to the legacy name.
func (o Owner) Key() string {
	if o.ID != uuid.Nil {
		return o.ID.String()
	}
	return o.Name
}

func (o Owner) String() string {
	if o.Name != "" {
		return o.Name
	}
	return o.Key()
}
