package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/pixil98/go-horses/internal/horses"
	"github.com/pixil98/go-horses/internal/storage"
)

const (
	playerDataFolder = "playerdata"

	keyHorses       = "Horses"
	keyLastActive   = "lastactive"
	keyType         = "type"
	keyLastDeath    = "lastdeath"
	keyMaxHealth    = "maxhealth"
	keyHealth       = "health"
	keySpeed        = "speed"
	keyJumpStrength = "jumpstrength"
	keyChest        = "chest"
	keyInventory    = "inventory"
	keySlot         = "slot"

	// Legacy flat equipment fields. Read, never written.
	keyLegacySaddle = "saddle"
	keyLegacyArmour = "armour"

	defaultSpeed        = 0.225
	defaultJumpStrength = 0.7
)

// YamlDatabase keeps one YAML document per owner per group beneath
// <dataDir>/playerdata. The default group lives at the top level and named
// groups in a sub-directory of the same name.
type YamlDatabase struct {
	store      *storage.DocumentStore
	onlineMode bool
}

type YamlOpt func(*YamlDatabase)

// WithOnlineMode controls whether documents are keyed by canonical id
// (online) or by owner name (offline). Online mode is the default.
func WithOnlineMode(online bool) YamlOpt {
	return func(d *YamlDatabase) {
		d.onlineMode = online
	}
}

func NewYamlDatabase(dataDir string, opts ...YamlOpt) *YamlDatabase {
	d := &YamlDatabase{
		store:      storage.NewDocumentStore(filepath.Join(dataDir, playerDataFolder)),
		onlineMode: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Root returns the directory holding the owner documents.
func (d *YamlDatabase) Root() string {
	return d.store.Root()
}

// LoadStable reads the stable for owner in group. A missing or unreadable
// document yields an empty stable. Corrupt horses and inventory entries are
// skipped with a warning.
func (d *YamlDatabase) LoadStable(ctx context.Context, owner horses.Owner, group string) *horses.Stable {
	st := horses.NewStable(owner, group)

	name, err := d.resolveDocument(ctx, owner, group)
	if err != nil {
		slog.WarnContext(ctx, "failed to load stable", "owner", owner, "group", group, "error", err)
		return st
	}

	doc, err := d.store.Load(name)
	if err != nil {
		if !isNotExist(err) {
			slog.WarnContext(ctx, "failed to load stable", "owner", owner, "group", group, "document", name, "error", err)
		}
		return st
	}

	d.loadHorses(ctx, st, doc)
	st.MarkClean()
	return st
}

func (d *YamlDatabase) loadHorses(ctx context.Context, st *horses.Stable, doc storage.Document) {
	sect, _ := doc.Child(keyHorses)
	for _, key := range sect.Keys() {
		hs, ok := sect.Child(key)
		if !ok {
			slog.WarnContext(ctx, "stable data is corrupt: horse entry is not a section", "owner", st.Owner(), "group", st.Group(), "horse", key)
			continue
		}

		h := d.parseHorse(ctx, st, key, hs)
		if err := st.AddHorse(h); err != nil {
			slog.WarnContext(ctx, "stable data is corrupt: skipping horse", "owner", st.Owner(), "group", st.Group(), "horse", key, "error", err)
		}
	}

	if doc.IsString(keyLastActive) {
		st.SetLastActiveHorse(st.FindHorse(doc.String(keyLastActive, ""), true))
	}
}

func (d *YamlDatabase) parseHorse(ctx context.Context, st *horses.Stable, key string, hs storage.Document) *horses.Horse {
	typ, ok := horses.ParseHorseType(hs.String(keyType, string(horses.DefaultHorseType)))
	if !ok {
		slog.WarnContext(ctx, "unknown horse type, using default", "owner", st.Owner(), "horse", key, "type", hs[keyType], "default", horses.DefaultHorseType)
		typ = horses.DefaultHorseType
	}

	h := horses.NewHorse(
		key,
		typ,
		hs.Float64(keyMaxHealth, 0),
		hs.Float64(keyHealth, 0),
		hs.Float64(keySpeed, defaultSpeed),
		hs.Float64(keyJumpStrength, defaultJumpStrength),
	)
	h.SetLastDeath(hs.Int64(keyLastDeath, 0) * 1000)
	h.SetItems(d.parseInventory(ctx, st, key, hs))

	if typ.CanCarryChest() {
		h.SetHasChest(hs.Bool(keyChest, false))
	}

	// The current format keeps equipment in the inventory. Legacy flat fields
	// only fill slots the inventory left empty.
	if hs.IsBool(keyLegacySaddle) && hs.Bool(keyLegacySaddle, false) && h.Item(horses.SaddleSlot) == nil {
		h.SetSaddle(horses.MaterialSaddle)
	}
	if hs.IsString(keyLegacyArmour) && h.Item(horses.ArmourSlot) == nil {
		name := hs.String(keyLegacyArmour, "")
		if m, ok := horses.ParseArmour(name); ok {
			h.SetArmour(m)
		} else {
			slog.WarnContext(ctx, "ignoring unknown legacy armour", "owner", st.Owner(), "horse", key, "armour", name)
		}
	}

	return h
}

func (d *YamlDatabase) parseInventory(ctx context.Context, st *horses.Stable, key string, hs storage.Document) []horses.Item {
	var items []horses.Item
	for _, entry := range hs.MapList(keyInventory) {
		raw, ok := entry[keySlot]
		if !ok {
			slog.WarnContext(ctx, "stable data is corrupt: inventory slot number was missing", "owner", st.Owner(), "horse", key)
			continue
		}
		slot, ok := slotNumber(raw)
		if !ok {
			slog.WarnContext(ctx, "stable data is corrupt: inventory slot number was not a number", "owner", st.Owner(), "horse", key, "slot", raw)
			continue
		}

		item := horses.Item{}
		for k, v := range entry {
			if k != keySlot {
				item[k] = v
			}
		}

		for len(items) <= slot {
			items = append(items, nil)
		}
		items[slot] = item
	}
	return items
}

func slotNumber(v any) (int, bool) {
	var n int
	switch t := v.(type) {
	case int:
		n = t
	case int64:
		n = int(t)
	case uint64:
		n = int(t)
	default:
		return 0, false
	}
	return n, n >= 0
}

// LoadEverything loads every stable in the default group and in each named
// group directory. Only one level of group directories is walked. A missing
// root is a fresh install and yields no stables.
func (d *YamlDatabase) LoadEverything(ctx context.Context) []*horses.Stable {
	docs, dirs, err := d.store.List("")
	if err != nil {
		if !isNotExist(err) {
			slog.WarnContext(ctx, "failed to list stables", "path", d.store.Root(), "error", err)
		}
		return nil
	}

	var stables []*horses.Stable
	for _, name := range docs {
		stables = append(stables, d.LoadStable(ctx, ownerFromKey(name), horses.DefaultGroup))
	}

	for _, dir := range dirs {
		groupDocs, _, err := d.store.List(dir)
		if err != nil {
			slog.WarnContext(ctx, "failed to list stable group", "group", dir, "error", err)
			continue
		}
		for _, name := range groupDocs {
			stables = append(stables, d.LoadStable(ctx, ownerFromKey(path.Base(name)), dir))
		}
	}

	return stables
}

// SaveStable writes st, replacing its document. A stable without horses has
// its document removed. Failures are logged and leave the stable dirty.
func (d *YamlDatabase) SaveStable(ctx context.Context, st *horses.Stable) {
	name, err := d.resolveDocument(ctx, st.Owner(), st.Group())
	if err != nil {
		slog.ErrorContext(ctx, "failed to save stable", "owner", st.Owner(), "group", st.Group(), "error", err)
		return
	}

	if st.HorseCount() == 0 {
		if err := d.store.Delete(name); err != nil {
			slog.ErrorContext(ctx, "failed to delete empty stable", "owner", st.Owner(), "group", st.Group(), "document", name, "error", err)
			return
		}
		st.MarkClean()
		return
	}

	doc := storage.NewDocument()
	if la := st.LastActiveHorse(); la != nil {
		doc.Set(keyLastActive, la.Name())
	}

	sect := doc.Section(keyHorses)
	for _, h := range st.Horses() {
		hs := sect.Section(horses.EscapeColourCodes(h.DisplayName()))
		hs.Set(keyType, string(h.Type()))
		hs.Set(keyLastDeath, h.LastDeath()/1000)
		hs.Set(keyMaxHealth, h.MaxHealth())
		hs.Set(keyHealth, h.Health())
		hs.Set(keySpeed, h.Speed())
		hs.Set(keyJumpStrength, h.JumpStrength())
		if h.Type().CanCarryChest() {
			hs.Set(keyChest, h.HasChest())
		}

		inventory := []map[string]any{}
		for slot, it := range h.Items() {
			if it == nil {
				continue
			}
			entry := map[string]any(it)
			entry[keySlot] = slot
			inventory = append(inventory, entry)
		}
		hs.Set(keyInventory, inventory)
	}

	if err := d.store.Save(name, doc); err != nil {
		slog.ErrorContext(ctx, "failed to save stable", "owner", st.Owner(), "group", st.Group(), "document", name, "error", err)
		return
	}
	st.MarkClean()
}

// SaveHorse persists the stable h belongs to.
func (d *YamlDatabase) SaveHorse(ctx context.Context, h *horses.Horse) {
	if st := h.Stable(); st != nil {
		d.SaveStable(ctx, st)
	}
}

// DeleteHorse removes h from its stable and persists the result. It reports
// whether h belonged to a stable.
func (d *YamlDatabase) DeleteHorse(ctx context.Context, h *horses.Horse) bool {
	st := h.Stable()
	if st == nil || !st.RemoveHorse(h) {
		return false
	}
	d.SaveStable(ctx, st)
	return true
}

// Import saves each stable into this database.
func (d *YamlDatabase) Import(ctx context.Context, stables []*horses.Stable) {
	for _, st := range stables {
		d.SaveStable(ctx, st)
	}
}

// ImportFrom copies every stable held by src into this database.
func (d *YamlDatabase) ImportFrom(ctx context.Context, src Database) int {
	stables := src.LoadEverything(ctx)
	d.Import(ctx, stables)
	return len(stables)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// documentName maps an owner key and group onto a document below the root.
// Keys and groups are single path segments.
func documentName(key string, group string) (string, error) {
	if !validSegment(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDocumentName, key)
	}
	if group == horses.DefaultGroup {
		return key, nil
	}
	if !validSegment(group) {
		return "", fmt.Errorf("%w: group %q", ErrInvalidDocumentName, group)
	}
	return path.Join(group, key), nil
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, "/\\\x00")
}

// resolveDocument picks the document backing owner's stable. In online mode a
// document still keyed by the owner's name is renamed to the canonical id; if
// that fails the legacy document is used in place.
func (d *YamlDatabase) resolveDocument(ctx context.Context, owner horses.Owner, group string) (string, error) {
	if !d.onlineMode || owner.ID == uuid.Nil {
		name := owner.Name
		if name == "" {
			name = owner.Key()
		}
		return documentName(name, group)
	}

	canonical, err := documentName(owner.ID.String(), group)
	if err != nil {
		return "", err
	}
	if owner.Name == "" || d.store.Exists(canonical) {
		return canonical, nil
	}

	legacy, err := documentName(owner.Name, group)
	if err != nil || !d.store.Exists(legacy) {
		return canonical, nil
	}

	if err := d.store.Rename(legacy, canonical); err != nil {
		slog.WarnContext(ctx, "failed to migrate stable to canonical id", "owner", owner, "group", group, "error", err)
		return legacy, nil
	}
	slog.InfoContext(ctx, "migrated stable to canonical id", "owner", owner, "group", group, "document", canonical)
	return canonical, nil
}
