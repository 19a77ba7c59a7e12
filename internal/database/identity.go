package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/pixil98/go-horses/internal/horses"
)

// IdentityResolver maps a legacy owner name to its canonical id. It returns
// an error wrapping ErrNoCanonicalID when the name is unknown.
type IdentityResolver interface {
	ResolveID(ctx context.Context, name string) (uuid.UUID, error)
}

// IsCanonicalID reports whether s is a canonical id in its hyphenated form.
func IsCanonicalID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// ownerFromKey rebuilds an owner from a document's base name.
func ownerFromKey(key string) horses.Owner {
	if IsCanonicalID(key) {
		return horses.Owner{ID: uuid.MustParse(key)}
	}
	return horses.Owner{Name: key}
}
