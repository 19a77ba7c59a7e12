package database

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/google/uuid"
	"github.com/pixil98/go-errors"
)

// MigrationReport lists the document names handled by MigrateToUUID.
type MigrationReport struct {
	Migrated   []string
	Failed     []string
	Collisions []string
}

// MigrateToUUID renames every top level document still keyed by an owner name
// to the owner's canonical id. Group directories are not descended into.
// Documents that cannot be resolved, or whose canonical document already
// exists, are left untouched and reported; the returned error aggregates them.
func (d *YamlDatabase) MigrateToUUID(ctx context.Context, resolver IdentityResolver) (MigrationReport, error) {
	var report MigrationReport

	docs, _, err := d.store.List("")
	if err != nil {
		if isNotExist(err) {
			return report, nil
		}
		return report, fmt.Errorf("listing stables: %w", err)
	}

	el := errors.NewErrorList()
	for _, name := range docs {
		if IsCanonicalID(name) {
			continue
		}

		id, err := resolver.ResolveID(ctx, name)
		if err == nil && id == uuid.Nil {
			err = ErrNoCanonicalID
		}
		if err != nil {
			report.Failed = append(report.Failed, name)
			el.Add(fmt.Errorf("resolving %q: %w", name, err))
			continue
		}

		target := path.Join(path.Dir(name), id.String())
		if d.store.Exists(target) {
			slog.InfoContext(ctx, "owner has two stable documents", "legacy", name, "canonical", target)
			report.Collisions = append(report.Collisions, name)
			el.Add(fmt.Errorf("%w: %q and %q", ErrCollision, name, target))
			continue
		}

		if err := d.store.Rename(name, target); err != nil {
			report.Failed = append(report.Failed, name)
			el.Add(err)
			continue
		}
		report.Migrated = append(report.Migrated, name)
	}

	return report, el.Err()
}
