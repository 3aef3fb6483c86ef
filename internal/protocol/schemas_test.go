package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"thermocraft.ai/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	s, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", name))
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func mustValidate(t *testing.T, s *jsonschema.Schema, raw string) {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("sample json: %v", err)
	}
	if err := s.Validate(v); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func mustReject(t *testing.T, s *jsonschema.Schema, raw string) {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("sample json: %v", err)
	}
	if err := s.Validate(v); err == nil {
		t.Fatalf("sample should not validate: %s", raw)
	}
}

// roundTrip marshals a Go message and validates the bytes the wire actually
// sees, so struct tags and schemas cannot drift apart.
func roundTrip(t *testing.T, s *jsonschema.Schema, msg any) {
	t.Helper()
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatal(err)
	}
	if err := s.Validate(v); err != nil {
		t.Fatalf("validate %s: %v", b, err)
	}
}

func TestSchemasMatchGoMessages(t *testing.T) {
	steps := 4
	roundTrip(t, compile(t, "hello.schema.json"), protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       "probe",
		WorldID:         "OVERWORLD",
		MaxQueue:        16,
	})
	roundTrip(t, compile(t, "welcome.schema.json"), protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		AgentID:         "A1",
		WorldID:         "OVERWORLD",
		Tick:            12,
		Day:             0,
		Diurnal:         protocol.DiurnalParams{PeakC: 4.5, LowC: -3.5},
		WorldParams: protocol.WorldParams{
			TickRateHz: 20, DayTicks: 24000, Height: 64, Sky: true, Seed: 1337,
		},
		Catalogs: protocol.CatalogDigests{
			BlockPalette: "d", BlockDefs: "d", Biomes: "d", Items: "d",
		},
	})
	roundTrip(t, compile(t, "query.schema.json"), protocol.QueryMsg{
		Type:            protocol.TypeQuery,
		ProtocolVersion: protocol.Version,
		ID:              "q1",
		Kind:            protocol.QueryStepsToOutside,
		X:               1, Y: 30, Z: -4,
		Budget: 32,
	})
	roundTrip(t, compile(t, "result.schema.json"), protocol.ResultMsg{
		Type: protocol.TypeResult, ID: "q1", OK: true, Value: 4, Steps: &steps,
	})
	roundTrip(t, compile(t, "act.schema.json"), protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		ID:              "a1",
		Kind:            protocol.ActSetBlock,
		X:               1, Y: 30, Z: -4,
		Block: "CAMPFIRE",
	})
	roundTrip(t, compile(t, "ack.schema.json"), protocol.AckMsg{
		Type: protocol.TypeAck, ID: "a1", OK: false, Code: protocol.ErrUnknownBlock,
	})
	roundTrip(t, compile(t, "diurnal.schema.json"), protocol.DiurnalMsg{
		Type: protocol.TypeDiurnal, WorldID: "OVERWORLD", Day: 3, PeakC: 0.5, LowC: -6.99,
	})
	roundTrip(t, compile(t, "vitals.schema.json"), protocol.VitalsMsg{
		Type: protocol.TypeVitals, Tick: 400, BodyC: 36.4, SoakedS: 0,
		AmbientC: 13.2, Season: "WINTER", Weather: "SNOW",
	})
	roundTrip(t, compile(t, "error.schema.json"), protocol.ErrorMsg{
		Type: protocol.TypeError, Code: protocol.ErrBadMessage, Message: "bad json",
	})
}

func TestSchemasRejectBadSamples(t *testing.T) {
	mustReject(t, compile(t, "hello.schema.json"),
		`{"type":"HELLO","protocol_version":"1.0"}`)
	mustReject(t, compile(t, "query.schema.json"),
		`{"type":"QUERY","protocol_version":"1.0","id":"q","kind":"wind_chill"}`)
	mustReject(t, compile(t, "act.schema.json"),
		`{"type":"ACT","protocol_version":"1.0","kind":"teleport"}`)
	mustReject(t, compile(t, "error.schema.json"),
		`{"type":"ERROR","code":"E_MADE_UP","message":"x"}`)
}

// Every code the server can emit must be in the schemas' enums, and the
// schemas must not invent codes the server does not know.
func TestErrorCodeEnumMatchesKnownCodes(t *testing.T) {
	errSchema := compile(t, "error.schema.json")
	ackSchema := compile(t, "ack.schema.json")

	codes := []string{
		protocol.ErrBadMessage,
		protocol.ErrBadVersion,
		protocol.ErrUnknownWorld,
		protocol.ErrUnknownKind,
		protocol.ErrUnknownBlock,
		protocol.ErrRateLimit,
		protocol.ErrInternal,
	}
	for _, code := range codes {
		if !protocol.IsKnownCode(code) {
			t.Fatalf("%s missing from known codes", code)
		}
		mustValidate(t, errSchema,
			`{"type":"ERROR","code":"`+code+`","message":"m"}`)
		mustValidate(t, ackSchema,
			`{"type":"ACK","ok":false,"code":"`+code+`"}`)
	}
	if protocol.IsKnownCode("E_MADE_UP") {
		t.Fatal("unknown code accepted")
	}
}

func TestCatalogSchemas(t *testing.T) {
	blocks := compile(t, "blocks.schema.json")
	mustValidate(t, blocks, `[
	  {"id":"AIR"},
	  {"id":"LAVA","solid":true,"thermal":{"delta_c":12,"range":3,"dropoff":5}},
	  {"id":"VENT","solid":true,"thermal":{"delta_c":5,"range":2,"dropoff":4,"occlusion":"flood","face":"up"}},
	  {"id":"WOOD_DOOR","solid":true,"passage":"door","open":true}
	]`)
	mustReject(t, blocks, `[{"id":"lowercase"}]`)
	mustReject(t, blocks, `[{"id":"X","thermal":{"delta_c":1}}]`)
	mustReject(t, blocks, `[{"id":"X","thermal":{"delta_c":1,"range":2,"dropoff":40}}]`)

	biomes := compile(t, "biomes.schema.json")
	mustValidate(t, biomes, `[
	  {"biome":"PLAINS","temperature":14,"humidity":40},
	  {"biome":"TUNDRA","temperature":-12,"humidity":30}
	]`)
	mustReject(t, biomes, `[{"biome":"PLAINS"}]`)
	mustReject(t, biomes, `[{"biome":"PLAINS","temperature":500}]`)
}
