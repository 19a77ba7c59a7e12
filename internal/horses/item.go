package horses

import "maps"

// Inventory slots reserved for equipment.
const (
	SaddleSlot = 0
	ArmourSlot = 1
)

// Material names an item kind in the world engine.
type Material string

const (
	MaterialSaddle         Material = "SADDLE"
	MaterialIronBarding    Material = "IRON_BARDING"
	MaterialGoldBarding    Material = "GOLD_BARDING"
	MaterialDiamondBarding Material = "DIAMOND_BARDING"
)

// ParseArmour returns the armour material named s, if it is one.
func ParseArmour(s string) (Material, bool) {
	m := Material(s)
	switch m {
	case MaterialIronBarding, MaterialGoldBarding, MaterialDiamondBarding:
		return m, true
	}
	return "", false
}

// Item is an opaque item payload as understood by the world engine. Only the
// "type" and "amount" keys are interpreted here.
type Item map[string]any

func NewItem(m Material, amount int) Item {
	return Item{"type": string(m), "amount": amount}
}

func (i Item) Material() Material {
	s, _ := i["type"].(string)
	return Material(s)
}

func (i Item) Clone() Item {
	if i == nil {
		return nil
	}
	return maps.Clone(i)
}
