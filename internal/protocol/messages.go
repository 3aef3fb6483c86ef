package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentName       string `json:"agent_name"`
	WorldID         string `json:"world_id,omitempty"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	AgentID         string         `json:"agent_id"`
	WorldID         string         `json:"world_id"`
	Tick            uint64         `json:"tick"`
	Day             uint64         `json:"day"`
	Diurnal         DiurnalParams  `json:"diurnal"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type WorldParams struct {
	TickRateHz int   `json:"tick_rate_hz"`
	DayTicks   int   `json:"day_ticks"`
	Height     int   `json:"height"`
	Sky        bool  `json:"sky"`
	Seed       int64 `json:"seed"`
}

type CatalogDigests struct {
	BlockPalette string `json:"block_palette_digest"`
	BlockDefs    string `json:"block_defs_digest"`
	Biomes       string `json:"biomes_digest"`
	Items        string `json:"items_digest"`
}

type DiurnalParams struct {
	PeakC float64 `json:"peak_c"`
	LowC  float64 `json:"low_c"`
}

// Query kinds.
const (
	QueryAmbient        = "ambient"
	QueryOffset         = "offset"
	QueryExposure       = "exposure"
	QueryStepsToOutside = "steps_to_outside"
	QueryBody           = "body"
)

// QUERY (client -> server)
type QueryMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Kind            string `json:"kind"`
	X               int    `json:"x"`
	Y               int    `json:"y"`
	Z               int    `json:"z"`
	Budget          int    `json:"budget,omitempty"`
}

// RESULT (server -> client)
type ResultMsg struct {
	Type   string  `json:"type"`
	ID     string  `json:"id"`
	OK     bool    `json:"ok"`
	Value  float64 `json:"value"`
	Steps  *int    `json:"steps,omitempty"`
	Detail string  `json:"detail,omitempty"`
}

// Act kinds.
const (
	ActSetBlock = "set_block"
	ActMove     = "move"
)

// ACT (client -> server)
type ActMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Kind            string `json:"kind"`
	X               int    `json:"x"`
	Y               int    `json:"y"`
	Z               int    `json:"z"`
	Block           string `json:"block,omitempty"`
}

// ACK (server -> client)
type AckMsg struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	OK     bool   `json:"ok"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// DIURNAL (server push, on join and day rollover)
type DiurnalMsg struct {
	Type    string  `json:"type"`
	WorldID string  `json:"world_id"`
	Day     uint64  `json:"day"`
	PeakC   float64 `json:"peak_c"`
	LowC    float64 `json:"low_c"`
}

// VITALS (server push, once per second to each joined agent)
type VitalsMsg struct {
	Type     string  `json:"type"`
	Tick     uint64  `json:"tick"`
	BodyC    float64 `json:"body_c"`
	SoakedS  float64 `json:"soaked_s"`
	AmbientC float64 `json:"ambient_c"`
	Season   string  `json:"season"`
	Weather  string  `json:"weather"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
