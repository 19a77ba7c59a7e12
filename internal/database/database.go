package database

import (
	"context"
	"errors"

	"github.com/pixil98/go-horses/internal/horses"
)

var (
	ErrNoCanonicalID = errors.New("no canonical id for owner")
	ErrCollision     = errors.New("owner has both legacy and canonical documents")

	ErrInvalidDocumentName = errors.New("invalid document name")
)

// Database loads and saves stables. Implementations never surface I/O
// failures from these calls; they log them and degrade.
type Database interface {
	LoadStable(ctx context.Context, owner horses.Owner, group string) *horses.Stable
	LoadEverything(ctx context.Context) []*horses.Stable
	SaveStable(ctx context.Context, st *horses.Stable)
}
