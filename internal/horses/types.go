package horses

// HorseType is the variant of a horse. The string value is what gets persisted.
type HorseType string

const (
	HorseTypeWhite     HorseType = "White"
	HorseTypeCreamy    HorseType = "Creamy"
	HorseTypeChestnut  HorseType = "Chestnut"
	HorseTypeBrown     HorseType = "Brown"
	HorseTypeBlack     HorseType = "Black"
	HorseTypeGray      HorseType = "Gray"
	HorseTypeDarkBrown HorseType = "DarkBrown"
	HorseTypeDonkey    HorseType = "Donkey"
	HorseTypeMule      HorseType = "Mule"
	HorseTypeUndead    HorseType = "Undead"
	HorseTypeSkeleton  HorseType = "Skeleton"

	DefaultHorseType = HorseTypeWhite
)

type baseline struct {
	speed        float64
	jumpStrength float64
	chest        bool
}

var horseTypes = map[HorseType]baseline{
	HorseTypeWhite:     {speed: 0.225, jumpStrength: 0.7},
	HorseTypeCreamy:    {speed: 0.225, jumpStrength: 0.7},
	HorseTypeChestnut:  {speed: 0.225, jumpStrength: 0.7},
	HorseTypeBrown:     {speed: 0.225, jumpStrength: 0.7},
	HorseTypeBlack:     {speed: 0.225, jumpStrength: 0.7},
	HorseTypeGray:      {speed: 0.225, jumpStrength: 0.7},
	HorseTypeDarkBrown: {speed: 0.225, jumpStrength: 0.7},
	HorseTypeDonkey:    {speed: 0.175, jumpStrength: 0.5, chest: true},
	HorseTypeMule:      {speed: 0.175, jumpStrength: 0.5, chest: true},
	HorseTypeUndead:    {speed: 0.2, jumpStrength: 0.4},
	HorseTypeSkeleton:  {speed: 0.2, jumpStrength: 0.4},
}

// ParseHorseType matches s exactly against the known variants.
func ParseHorseType(s string) (HorseType, bool) {
	t := HorseType(s)
	_, ok := horseTypes[t]
	return t, ok
}

func (t HorseType) Valid() bool {
	_, ok := horseTypes[t]
	return ok
}

// CanCarryChest reports whether the variant supports a storage attachment.
func (t HorseType) CanCarryChest() bool {
	return horseTypes[t].chest
}

func (t HorseType) DefaultSpeed() float64 {
	if b, ok := horseTypes[t]; ok {
		return b.speed
	}
	return horseTypes[DefaultHorseType].speed
}

func (t HorseType) DefaultJumpStrength() float64 {
	if b, ok := horseTypes[t]; ok {
		return b.jumpStrength
	}
	return horseTypes[DefaultHorseType].jumpStrength
}

func (t HorseType) String() string {
	return string(t)
}
