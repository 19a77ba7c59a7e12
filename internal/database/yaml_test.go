package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/pixil98/go-testutil"

	"github.com/pixil98/go-horses/internal/horses"
	"github.com/pixil98/go-horses/internal/storage"
)

var steveID = uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5")

func newTestDatabase(t *testing.T, opts ...YamlOpt) *YamlDatabase {
	t.Helper()
	return NewYamlDatabase(t.TempDir(), opts...)
}

func writeDocument(t *testing.T, db *YamlDatabase, name string, content string) {
	t.Helper()

	p := filepath.Join(db.Root(), filepath.FromSlash(name)+".yml")
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}
}

// blockDocument puts a directory where the named document would be written.
func blockDocument(t *testing.T, db *YamlDatabase, name string) {
	t.Helper()

	p := filepath.Join(db.Root(), filepath.FromSlash(name)+".yml")
	if err := os.MkdirAll(p, 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
}

func documentExists(db *YamlDatabase, name string) bool {
	_, err := os.Stat(filepath.Join(db.Root(), filepath.FromSlash(name)+".yml"))
	return err == nil
}

func TestYamlDatabase_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	owner := horses.Owner{ID: steveID, Name: "Steve"}

	st := horses.NewStable(owner, horses.DefaultGroup)
	bob, err := st.CreateHorse("Bob", horses.HorseTypeMule, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bob.SetHealth(15.5, 20)
	bob.SetSpeed(0.3)
	bob.SetJumpStrength(0.8)
	bob.SetLastDeath(1700000000000)
	bob.SetHasChest(true)
	bob.SetSaddle(horses.MaterialSaddle)
	bob.SetItem(3, horses.NewItem("WHEAT", 3))

	if _, err := st.CreateHorse("§aBolt", horses.HorseTypeBlack, 30); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st.SetLastActiveHorse(bob)

	db.SaveStable(ctx, st)
	testutil.AssertEqual(t, "clean after save", st.Dirty(), false)
	testutil.AssertEqual(t, "canonical document", documentExists(db, steveID.String()), true)

	got := db.LoadStable(ctx, owner, horses.DefaultGroup)
	testutil.AssertEqual(t, "count", got.HorseCount(), 2)
	testutil.AssertEqual(t, "clean after load", got.Dirty(), false)

	gotBob := got.FindHorse("Bob", true)
	if gotBob == nil {
		t.Fatal("expected Bob to be loaded")
	}
	testutil.AssertEqual(t, "type", gotBob.Type(), horses.HorseTypeMule)
	testutil.AssertEqual(t, "health", gotBob.Health(), 15.5)
	testutil.AssertEqual(t, "max health", gotBob.MaxHealth(), float64(20))
	testutil.AssertEqual(t, "speed", gotBob.Speed(), 0.3)
	testutil.AssertEqual(t, "jump", gotBob.JumpStrength(), 0.8)
	testutil.AssertEqual(t, "last death", gotBob.LastDeath(), int64(1700000000000))
	testutil.AssertEqual(t, "chest", gotBob.HasChest(), true)

	saddle, ok := gotBob.Saddle()
	testutil.AssertEqual(t, "has saddle", ok, true)
	testutil.AssertEqual(t, "saddle", saddle, horses.MaterialSaddle)

	items := gotBob.Items()
	testutil.AssertEqual(t, "inventory length", len(items), 4)
	testutil.AssertEqual(t, "slot 1 empty", items[1] == nil, true)
	testutil.AssertEqual(t, "slot 2 empty", items[2] == nil, true)
	testutil.AssertEqual(t, "slot 3", items[3].Material(), horses.Material("WHEAT"))
	testutil.AssertEqual(t, "slot 3 amount", items[3]["amount"], any(3))
	testutil.AssertEqual(t, "slot key stripped", items[3]["slot"] == nil, true)

	gotBolt := got.FindHorse("bolt", true)
	if gotBolt == nil {
		t.Fatal("expected Bolt to be loaded")
	}
	testutil.AssertEqual(t, "display name", gotBolt.DisplayName(), "§aBolt")
	testutil.AssertEqual(t, "no chest", gotBolt.HasChest(), false)

	testutil.AssertEqual(t, "last active", got.LastActiveHorse(), gotBob)
}

func TestYamlDatabase_SavedLayout(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	st := horses.NewStable(horses.Owner{ID: steveID}, "nether")
	if _, err := st.CreateHorse("§cRed", horses.HorseTypeBrown, 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	db.SaveStable(ctx, st)

	doc, err := storage.NewDocumentStore(db.Root()).Load("nether/" + steveID.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "no last active", doc.IsSet("lastactive"), false)

	sect, _ := doc.Child("Horses")
	hs, ok := sect.Child("&cRed")
	if !ok {
		t.Fatalf("expected escaped key, got %v", sect.Keys())
	}
	testutil.AssertEqual(t, "chest omitted", hs.IsSet("chest"), false)
	testutil.AssertEqual(t, "saddle omitted", hs.IsSet("saddle"), false)
	testutil.AssertEqual(t, "armour omitted", hs.IsSet("armour"), false)
	testutil.AssertEqual(t, "speed", hs.Float64("speed", 0), horses.HorseTypeBrown.DefaultSpeed())
}

func TestYamlDatabase_SaveEmptyDeletes(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	owner := horses.Owner{ID: steveID}

	st := horses.NewStable(owner, horses.DefaultGroup)
	bob, err := st.CreateHorse("Bob", horses.HorseTypeBrown, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	db.SaveStable(ctx, st)
	testutil.AssertEqual(t, "saved", documentExists(db, steveID.String()), true)

	testutil.AssertEqual(t, "deleted", db.DeleteHorse(ctx, bob), true)
	testutil.AssertEqual(t, "document removed", documentExists(db, steveID.String()), false)

	got := db.LoadStable(ctx, owner, horses.DefaultGroup)
	testutil.AssertEqual(t, "empty", got.HorseCount(), 0)
	testutil.AssertEqual(t, "detached horse", db.DeleteHorse(ctx, bob), false)
}

func TestYamlDatabase_LoadAttributes(t *testing.T) {
	tests := map[string]struct {
		yaml      string
		expType   horses.HorseType
		expSpeed  float64
		expJump   float64
		expHealth float64
		expDeath  int64
		expChest  bool
	}{
		"missing fields use defaults": {
			yaml:     "Horses:\n  Bob: {}\n",
			expType:  horses.HorseTypeWhite,
			expSpeed: 0.225,
			expJump:  0.7,
		},
		"unknown type falls back": {
			yaml:     "Horses:\n  Bob:\n    type: Zebra\n    speed: 0.3\n",
			expType:  horses.HorseTypeWhite,
			expSpeed: 0.3,
			expJump:  0.7,
		},
		"last death in seconds": {
			yaml:      "Horses:\n  Bob:\n    type: Black\n    lastdeath: 30\n    health: 4\n    maxhealth: 2\n",
			expType:   horses.HorseTypeBlack,
			expSpeed:  0.225,
			expJump:   0.7,
			expHealth: 4,
			expDeath:  30000,
		},
		"chest ignored for horses": {
			yaml:     "Horses:\n  Bob:\n    type: Brown\n    chest: true\n",
			expType:  horses.HorseTypeBrown,
			expSpeed: 0.225,
			expJump:  0.7,
		},
		"chest kept for donkeys": {
			yaml:     "Horses:\n  Bob:\n    type: Donkey\n    chest: true\n",
			expType:  horses.HorseTypeDonkey,
			expSpeed: 0.225,
			expJump:  0.7,
			expChest: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			db := newTestDatabase(t, WithOnlineMode(false))
			writeDocument(t, db, "Steve", tt.yaml)

			st := db.LoadStable(context.Background(), horses.Owner{Name: "Steve"}, horses.DefaultGroup)
			h := st.FindHorse("Bob", true)
			if h == nil {
				t.Fatal("expected Bob to be loaded")
			}

			testutil.AssertEqual(t, "type", h.Type(), tt.expType)
			testutil.AssertEqual(t, "speed", h.Speed(), tt.expSpeed)
			testutil.AssertEqual(t, "jump", h.JumpStrength(), tt.expJump)
			testutil.AssertEqual(t, "health", h.Health(), tt.expHealth)
			testutil.AssertEqual(t, "last death", h.LastDeath(), tt.expDeath)
			testutil.AssertEqual(t, "chest", h.HasChest(), tt.expChest)
		})
	}
}

func TestYamlDatabase_LoadLegacyEquipment(t *testing.T) {
	tests := map[string]struct {
		yaml      string
		expSaddle horses.Material
		expArmour horses.Material
	}{
		"legacy saddle and armour": {
			yaml:      "saddle: true\n    armour: IRON_BARDING\n",
			expSaddle: horses.MaterialSaddle,
			expArmour: horses.MaterialIronBarding,
		},
		"legacy saddle false": {
			yaml: "saddle: false\n",
		},
		"unknown legacy armour": {
			yaml: "armour: WOOL\n",
		},
		"inventory wins over legacy": {
			yaml:      "armour: IRON_BARDING\n    inventory:\n    - slot: 1\n      type: GOLD_BARDING\n      amount: 1\n",
			expArmour: horses.MaterialGoldBarding,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			db := newTestDatabase(t, WithOnlineMode(false))
			writeDocument(t, db, "Steve", "Horses:\n  Bob:\n    type: Brown\n    "+tt.yaml)
			owner := horses.Owner{Name: "Steve"}

			st := db.LoadStable(ctx, owner, horses.DefaultGroup)
			h := st.FindHorse("Bob", true)
			if h == nil {
				t.Fatal("expected Bob to be loaded")
			}

			saddle, _ := h.Saddle()
			armour, _ := h.Armour()
			testutil.AssertEqual(t, "saddle", saddle, tt.expSaddle)
			testutil.AssertEqual(t, "armour", armour, tt.expArmour)

			// Legacy fields never survive a save.
			db.SaveStable(ctx, st)
			doc, err := storage.NewDocumentStore(db.Root()).Load("Steve")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			sect, _ := doc.Child("Horses")
			hs, _ := sect.Child("Bob")
			testutil.AssertEqual(t, "saddle field", hs.IsSet("saddle"), false)
			testutil.AssertEqual(t, "armour field", hs.IsSet("armour"), false)

			again := db.LoadStable(ctx, owner, horses.DefaultGroup).FindHorse("Bob", true)
			saddle, _ = again.Saddle()
			armour, _ = again.Armour()
			testutil.AssertEqual(t, "saddle after save", saddle, tt.expSaddle)
			testutil.AssertEqual(t, "armour after save", armour, tt.expArmour)
		})
	}
}

func TestYamlDatabase_LoadCorruptInventory(t *testing.T) {
	db := newTestDatabase(t, WithOnlineMode(false))
	writeDocument(t, db, "Steve", `Horses:
  Bob:
    type: Mule
    inventory:
    - slot: 2
      type: APPLE
      amount: 1
    - type: WHEAT
      amount: 5
    - slot: two
      type: CARROT
      amount: 2
    - slot: -1
      type: BREAD
      amount: 1
`)

	st := db.LoadStable(context.Background(), horses.Owner{Name: "Steve"}, horses.DefaultGroup)
	h := st.FindHorse("Bob", true)
	if h == nil {
		t.Fatal("expected Bob to be loaded")
	}

	count := 0
	for _, it := range h.Items() {
		if it != nil {
			count++
		}
	}
	testutil.AssertEqual(t, "items", count, 1)
	testutil.AssertEqual(t, "slot 2", h.Item(2).Material(), horses.Material("APPLE"))
}

func TestYamlDatabase_LoadDuplicateAndUnresolvedKeys(t *testing.T) {
	db := newTestDatabase(t, WithOnlineMode(false))
	writeDocument(t, db, "Steve", `lastactive: Shadowfax
Horses:
  Bob:
    type: Black
  BOB:
    type: Brown
  Broken: 7
`)

	st := db.LoadStable(context.Background(), horses.Owner{Name: "Steve"}, horses.DefaultGroup)

	testutil.AssertEqual(t, "count", st.HorseCount(), 1)
	testutil.AssertEqual(t, "last active unset", st.LastActiveHorse() == nil, true)
}

func TestYamlDatabase_LoadInvalidDocument(t *testing.T) {
	db := newTestDatabase(t, WithOnlineMode(false))
	writeDocument(t, db, "Steve", "Horses: [unclosed\n")

	st := db.LoadStable(context.Background(), horses.Owner{Name: "Steve"}, horses.DefaultGroup)

	testutil.AssertEqual(t, "empty", st.HorseCount(), 0)
}

func TestYamlDatabase_ResolveDocument(t *testing.T) {
	tests := map[string]struct {
		online      bool
		existing    []string
		blockRename bool
		expDocument string
		expRenamed  bool
	}{
		"online prefers canonical": {
			online:      true,
			existing:    []string{"Steve", steveID.String()},
			expDocument: steveID.String(),
		},
		"online migrates legacy": {
			online:      true,
			existing:    []string{"Steve"},
			expDocument: steveID.String(),
			expRenamed:  true,
		},
		"online fresh owner": {
			online:      true,
			expDocument: steveID.String(),
		},
		"offline uses name": {
			online:      false,
			existing:    []string{"Steve"},
			expDocument: "Steve",
		},
		"failed rename uses legacy in place": {
			online:      true,
			existing:    []string{"Steve"},
			blockRename: true,
			expDocument: "Steve",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			db := newTestDatabase(t, WithOnlineMode(tt.online))
			for _, doc := range tt.existing {
				writeDocument(t, db, doc, "Horses: {}\n")
			}
			if tt.blockRename {
				blockDocument(t, db, steveID.String())
			}

			got, err := db.resolveDocument(context.Background(), horses.Owner{ID: steveID, Name: "Steve"}, horses.DefaultGroup)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			testutil.AssertEqual(t, "document", got, tt.expDocument)
			if tt.expRenamed {
				testutil.AssertEqual(t, "legacy removed", documentExists(db, "Steve"), false)
				testutil.AssertEqual(t, "canonical present", documentExists(db, steveID.String()), true)
			}
		})
	}
}

func TestYamlDatabase_LoadMigratesGroupedLegacy(t *testing.T) {
	db := newTestDatabase(t)
	writeDocument(t, db, "nether/Steve", "Horses:\n  Bob:\n    type: Black\n")

	st := db.LoadStable(context.Background(), horses.Owner{ID: steveID, Name: "Steve"}, "nether")

	testutil.AssertEqual(t, "count", st.HorseCount(), 1)
	testutil.AssertEqual(t, "legacy removed", documentExists(db, "nether/Steve"), false)
	testutil.AssertEqual(t, "canonical present", documentExists(db, "nether/"+steveID.String()), true)
}

func TestYamlDatabase_LoadEverything(t *testing.T) {
	ctx := context.Background()

	t.Run("missing root", func(t *testing.T) {
		db := newTestDatabase(t)
		testutil.AssertEqual(t, "stables", len(db.LoadEverything(ctx)), 0)
	})

	t.Run("default and grouped", func(t *testing.T) {
		db := newTestDatabase(t)
		writeDocument(t, db, steveID.String(), "Horses:\n  Bob: {}\n")
		writeDocument(t, db, "Alex", "Horses:\n  Bolt: {}\n")
		writeDocument(t, db, "nether/Alex", "Horses:\n  Ash: {}\n")
		writeDocument(t, db, "nether/deeper/Alex", "Horses:\n  Hidden: {}\n")

		stables := db.LoadEverything(ctx)

		testutil.AssertEqual(t, "stables", len(stables), 3)
		found := map[string]*horses.Stable{}
		for _, st := range stables {
			found[st.Group()+"/"+st.Owner().Key()] = st
		}

		testutil.AssertEqual(t, "canonical owner", found["/"+steveID.String()].Owner().ID, steveID)
		testutil.AssertEqual(t, "legacy owner", found["/Alex"].Owner().Name, "Alex")
		testutil.AssertEqual(t, "grouped", found["nether/Alex"].FindHorse("Ash", true) != nil, true)
	})
}

func TestYamlDatabase_ImportFrom(t *testing.T) {
	ctx := context.Background()
	src := newTestDatabase(t, WithOnlineMode(false))
	dst := newTestDatabase(t, WithOnlineMode(false))
	writeDocument(t, src, "Steve", "Horses:\n  Bob: {}\n")
	writeDocument(t, src, "nether/Alex", "Horses:\n  Ash: {}\n")

	n := dst.ImportFrom(ctx, src)

	testutil.AssertEqual(t, "imported", n, 2)
	testutil.AssertEqual(t, "default", documentExists(dst, "Steve"), true)
	testutil.AssertEqual(t, "grouped", documentExists(dst, "nether/Alex"), true)

	empty := newTestDatabase(t)
	testutil.AssertEqual(t, "absent source", dst.ImportFrom(ctx, empty), 0)
}

func TestYamlDatabase_LoadFallsBackToLegacy(t *testing.T) {
	db := newTestDatabase(t)
	writeDocument(t, db, "Steve", "Horses:\n  Bob:\n    type: Black\n")
	blockDocument(t, db, steveID.String())

	st := db.LoadStable(context.Background(), horses.Owner{ID: steveID, Name: "Steve"}, horses.DefaultGroup)

	testutil.AssertEqual(t, "count", st.HorseCount(), 1)
	testutil.AssertEqual(t, "legacy kept", documentExists(db, "Steve"), true)
}

func TestYamlDatabase_SaveFailure(t *testing.T) {
	tests := map[string]struct {
		horses []string
	}{
		"write fails":  {horses: []string{"Bob"}},
		"delete fails": {},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			// A plain file where the data folder belongs makes every write fail.
			if err := os.WriteFile(filepath.Join(dir, playerDataFolder), []byte("x"), 0644); err != nil {
				t.Fatalf("failed to write file: %v", err)
			}
			db := NewYamlDatabase(dir)

			st := horses.NewStable(horses.Owner{ID: steveID, Name: "Steve"}, horses.DefaultGroup)
			for _, n := range tt.horses {
				if _, err := st.CreateHorse(n, horses.HorseTypeBrown, 20); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
			st.MarkDirty()

			db.SaveStable(context.Background(), st)

			testutil.AssertEqual(t, "still dirty", st.Dirty(), true)
		})
	}
}

func TestYamlDatabase_InvalidOwnerNames(t *testing.T) {
	tests := map[string]struct {
		owner horses.Owner
		group string
	}{
		"parent directory": {owner: horses.Owner{Name: ".."}},
		"path separator":   {owner: horses.Owner{Name: "../../etc/passwd"}},
		"backslash":        {owner: horses.Owner{Name: `..\Steve`}},
		"bad group":        {owner: horses.Owner{Name: "Steve"}, group: "../nether"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dataDir := t.TempDir()
			db := NewYamlDatabase(dataDir, WithOnlineMode(false))

			_, err := db.resolveDocument(context.Background(), tt.owner, tt.group)
			if !errors.Is(err, ErrInvalidDocumentName) {
				t.Fatalf("expected %v, got %v", ErrInvalidDocumentName, err)
			}

			st := horses.NewStable(tt.owner, tt.group)
			if _, err := st.CreateHorse("Bob", horses.HorseTypeBrown, 20); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			db.SaveStable(context.Background(), st)

			testutil.AssertEqual(t, "not saved", st.Dirty(), true)
			entries, err := os.ReadDir(dataDir)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "nothing written", len(entries), 0)

			loaded := db.LoadStable(context.Background(), tt.owner, tt.group)
			testutil.AssertEqual(t, "empty", loaded.HorseCount(), 0)
		})
	}
}

func TestYamlDatabase_RoundTripColourCodes(t *testing.T) {
	tests := map[string]struct {
		name       string
		expName    string
		expDisplay string
	}{
		"ampersand code":     {name: "R&B", expName: "R", expDisplay: "R§B"},
		"format code":        {name: "&lSpeedy", expName: "Speedy", expDisplay: "§lSpeedy"},
		"literal ampersand":  {name: "Salt & Pepper", expName: "Salt & Pepper", expDisplay: "Salt & Pepper"},
		"internal marker":    {name: "§aBolt", expName: "Bolt", expDisplay: "§aBolt"},
		"ampersand non-code": {name: "Tom&Jerry", expName: "Tom&Jerry", expDisplay: "Tom&Jerry"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			db := newTestDatabase(t)
			owner := horses.Owner{ID: steveID, Name: "Steve"}

			st := horses.NewStable(owner, horses.DefaultGroup)
			h, err := st.CreateHorse(tt.name, horses.HorseTypeBrown, 20)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			st.SetLastActiveHorse(h)
			testutil.AssertEqual(t, "name", h.Name(), tt.expName)
			testutil.AssertEqual(t, "display", h.DisplayName(), tt.expDisplay)

			db.SaveStable(ctx, st)
			got := db.LoadStable(ctx, owner, horses.DefaultGroup)

			testutil.AssertEqual(t, "count", got.HorseCount(), 1)
			loaded := got.FindHorse(tt.expName, true)
			if loaded == nil {
				t.Fatalf("expected %q to be loaded", tt.expName)
			}
			testutil.AssertEqual(t, "loaded name", loaded.Name(), h.Name())
			testutil.AssertEqual(t, "loaded display", loaded.DisplayName(), h.DisplayName())
			testutil.AssertEqual(t, "last active", got.LastActiveHorse(), loaded)
		})
	}
}
