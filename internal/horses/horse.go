package horses

import (
	"context"
	"fmt"
)

// Horse is one persisted mount belonging to a Stable.
type Horse struct {
	stable *Stable

	name        string
	displayName string
	typ         HorseType

	maxHealth    float64
	health       float64
	speed        float64
	jumpStrength float64

	// lastDeath is epoch millis, 0 if the horse never died.
	lastDeath int64
	hasChest  bool

	// items is sparse; nil entries are empty slots.
	items []Item

	actor Actor
}

// NewHorse builds a detached horse. displayName may carry colour codes in
// either form; &-codes are stored as internal markers and the lookup name is
// derived by stripping them.
func NewHorse(displayName string, typ HorseType, maxHealth, health, speed, jumpStrength float64) *Horse {
	displayName = TranslateColourCodes(displayName)
	return &Horse{
		name:         StripColour(displayName),
		displayName:  displayName,
		typ:          typ,
		maxHealth:    maxHealth,
		health:       health,
		speed:        speed,
		jumpStrength: jumpStrength,
	}
}

func (h *Horse) Stable() *Stable {
	return h.stable
}

// Name returns the name without formatting codes.
func (h *Horse) Name() string {
	return h.name
}

// DisplayName returns the name including internal formatting codes.
func (h *Horse) DisplayName() string {
	return h.displayName
}

func (h *Horse) Type() HorseType {
	return h.typ
}

func (h *Horse) MaxHealth() float64 {
	return h.maxHealth
}

func (h *Horse) Health() float64 {
	return h.health
}

func (h *Horse) Speed() float64 {
	return h.speed
}

func (h *Horse) JumpStrength() float64 {
	return h.jumpStrength
}

func (h *Horse) LastDeath() int64 {
	return h.lastDeath
}

func (h *Horse) HasChest() bool {
	return h.hasChest
}

func (h *Horse) SetType(t HorseType) {
	h.typ = t
	h.touch()
}

func (h *Horse) SetHealth(health, maxHealth float64) {
	h.health = health
	h.maxHealth = maxHealth
	h.touch()
}

func (h *Horse) SetSpeed(speed float64) {
	h.speed = speed
	h.touch()
}

func (h *Horse) SetJumpStrength(jumpStrength float64) {
	h.jumpStrength = jumpStrength
	h.touch()
}

func (h *Horse) SetLastDeath(ts int64) {
	h.lastDeath = ts
	h.touch()
}

func (h *Horse) SetHasChest(hasChest bool) {
	h.hasChest = hasChest
	h.touch()
}

// RecordDeath stamps the death time and drops the live actor, which the world
// engine has already removed.
func (h *Horse) RecordDeath(ts int64) {
	h.lastDeath = ts
	h.actor = nil
	if h.stable != nil && h.stable.active == h {
		h.stable.active = nil
	}
	h.touch()
}

// Items returns a copy of the sparse inventory.
func (h *Horse) Items() []Item {
	out := make([]Item, len(h.items))
	for i, it := range h.items {
		out[i] = it.Clone()
	}
	return out
}

// Item returns the item in slot, or nil when the slot is empty.
func (h *Horse) Item(slot int) Item {
	if slot < 0 || slot >= len(h.items) {
		return nil
	}
	return h.items[slot]
}

// SetItems replaces the inventory. Trailing empty slots are trimmed.
func (h *Horse) SetItems(items []Item) {
	out := make([]Item, len(items))
	for i, it := range items {
		if len(it) > 0 {
			out[i] = it.Clone()
		}
	}
	h.items = trimItems(out)
	h.touch()
}

// SetItem places it in slot, growing the inventory as needed. A nil item
// empties the slot.
func (h *Horse) SetItem(slot int, it Item) {
	if slot < 0 {
		return
	}
	for len(h.items) <= slot {
		h.items = append(h.items, nil)
	}
	h.items[slot] = it.Clone()
	h.items = trimItems(h.items)
	h.touch()
}

// Saddle returns the saddle material, if one is fitted.
func (h *Horse) Saddle() (Material, bool) {
	it := h.Item(SaddleSlot)
	if it == nil {
		return "", false
	}
	return it.Material(), true
}

// SetSaddle fits a saddle of material m, or removes it when m is empty.
func (h *Horse) SetSaddle(m Material) {
	if m == "" {
		h.SetItem(SaddleSlot, nil)
		return
	}
	h.SetItem(SaddleSlot, NewItem(m, 1))
}

// Armour returns the armour material, if any is fitted.
func (h *Horse) Armour() (Material, bool) {
	it := h.Item(ArmourSlot)
	if it == nil {
		return "", false
	}
	return it.Material(), true
}

// SetArmour fits armour of material m, or removes it when m is empty.
func (h *Horse) SetArmour(m Material) {
	if m == "" {
		h.SetItem(ArmourSlot, nil)
		return
	}
	h.SetItem(ArmourSlot, NewItem(m, 1))
}

// Actor returns the live counterpart, or nil when none exists.
func (h *Horse) Actor() Actor {
	if h.actor != nil && !h.actor.Valid() {
		h.actor = nil
	}
	return h.actor
}

func (h *Horse) IsMaterialized() bool {
	return h.Actor() != nil
}

// Materialize asks the spawner for a live actor at the given location and
// makes this horse the stable's active and last active horse. It is a no-op
// if the horse is already materialized.
func (h *Horse) Materialize(ctx context.Context, sp Spawner, at Location) error {
	if h.IsMaterialized() {
		return nil
	}

	actor, err := sp.Spawn(ctx, h, at)
	if err != nil {
		return fmt.Errorf("spawning %s: %w", h.name, err)
	}

	if h.stable != nil {
		h.stable.SetActiveHorse(h)
		h.stable.SetLastActiveHorse(h)
	}
	h.actor = actor
	return nil
}

// Dematerialize removes the live actor if there is one.
func (h *Horse) Dematerialize() {
	if h.actor != nil {
		h.actor.Remove()
		h.actor = nil
	}
	if h.stable != nil && h.stable.active == h {
		h.stable.active = nil
	}
}

func (h *Horse) touch() {
	if h.stable != nil {
		h.stable.MarkDirty()
	}
}

func trimItems(items []Item) []Item {
	n := len(items)
	for n > 0 && items[n-1] == nil {
		n--
	}
	return items[:n]
}
