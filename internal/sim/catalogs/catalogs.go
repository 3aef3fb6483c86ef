package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

type Catalogs struct {
	Blocks BlockCatalog
	Biomes BiomeCatalog
	Items  ItemCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID      string      `json:"id"`
	Solid   bool        `json:"solid"`
	Passage string      `json:"passage,omitempty"` // "door","gate","hatch"
	Open    bool        `json:"open,omitempty"`
	Thermal *ThermalDef `json:"thermal,omitempty"`
}

// ThermalDef is the data form of a constant thermal source; the server
// translates it into the engine's descriptor at registry-seeding time.
type ThermalDef struct {
	DeltaC    float64 `json:"delta_c"`
	Range     int     `json:"range"`
	Occlusion string  `json:"occlusion,omitempty"` // "flood" (default) or "los"
	Dropoff   int     `json:"dropoff"`
	Face      string  `json:"face,omitempty"`
}

type BiomeCatalog struct {
	Defs   []BiomeDef
	ByName map[string]BiomeDef
	Digest string
}

type BiomeDef struct {
	Biome       string  `json:"biome"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

type ItemCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]ItemDef
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID     string `json:"id"`
	Slot   string `json:"slot,omitempty"` // "head","chest","legs","feet"
	Resist string `json:"resist,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadBiomes(filepath.Join(configDir, "biomes.json"), &c.Biomes); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}

	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Ensure AIR exists and is palette id 0.
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

// DefaultBiomes is the built-in table; biomes.json entries override by name.
var DefaultBiomes = []BiomeDef{
	{Biome: "PLAINS", Temperature: 14, Humidity: 40},
	{Biome: "FOREST", Temperature: 12, Humidity: 55},
	{Biome: "DESERT", Temperature: 32, Humidity: 8},
	{Biome: "TUNDRA", Temperature: -12, Humidity: 30},
	{Biome: "TAIGA", Temperature: -2, Humidity: 45},
	{Biome: "SWAMP", Temperature: 16, Humidity: 85},
	{Biome: "JUNGLE", Temperature: 26, Humidity: 90},
	{Biome: "MOUNTAIN", Temperature: 2, Humidity: 35},
	{Biome: "CAVERN", Temperature: 8, Humidity: 60},
}

// loadBiomes merges biomes.json over the built-in defaults. A missing file
// is not an error: the defaults apply and a commented sample is written so
// operators can discover the knob.
func loadBiomes(path string, out *BiomeCatalog) error {
	merged := map[string]BiomeDef{}
	for _, d := range DefaultBiomes {
		merged[d.Biome] = d
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		var defs []BiomeDef
		if err := json.Unmarshal(raw, &defs); err != nil {
			return fmt.Errorf("biomes.json: %w", err)
		}
		for _, d := range defs {
			if d.Biome == "" {
				return fmt.Errorf("biomes.json: empty biome name")
			}
			merged[d.Biome] = d
		}
		out.Digest = sha256Hex(raw)
	case os.IsNotExist(err):
		writeSampleBiomes(path)
		out.Digest = sha256Hex(nil)
	default:
		return err
	}

	names := make([]string, 0, len(merged))
	for n := range merged {
		names = append(names, n)
	}
	sort.Strings(names)
	out.Defs = out.Defs[:0]
	out.ByName = make(map[string]BiomeDef, len(merged))
	for _, n := range names {
		out.Defs = append(out.Defs, merged[n])
		out.ByName[n] = merged[n]
	}
	return nil
}

func writeSampleBiomes(path string) {
	sample, _ := json.MarshalIndent(DefaultBiomes[:2], "", "  ")
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	_ = os.WriteFile(path, sample, 0o644)
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			out.Defs = map[string]ItemDef{}
			out.Index = map[string]uint16{}
			out.DefsDigest = sha256Hex(nil)
			out.PaletteDigest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func filterOut(ids []string, drop string) []string {
	outIdx := 0
	res := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == drop {
			continue
		}
		res = append(res, id)
		outIdx++
	}
	return res
}
