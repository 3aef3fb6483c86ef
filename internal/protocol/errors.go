package protocol

const (
	// Protocol/transport validation.
	ErrBadMessage = "E_BAD_MESSAGE"
	ErrBadVersion = "E_BAD_VERSION"

	// Routing.
	ErrUnknownWorld = "E_UNKNOWN_WORLD"
	ErrUnknownKind  = "E_UNKNOWN_KIND"
	ErrUnknownBlock = "E_UNKNOWN_BLOCK"

	// Throttling and internal failures.
	ErrRateLimit = "E_RATE_LIMIT"
	ErrInternal  = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadMessage:   {},
	ErrBadVersion:   {},
	ErrUnknownWorld: {},
	ErrUnknownKind:  {},
	ErrUnknownBlock: {},
	ErrRateLimit:    {},
	ErrInternal:     {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
