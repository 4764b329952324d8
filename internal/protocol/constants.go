package protocol

// Magic bytes identify a buffer as a Hot Rod request or response header.
const (
	MagicRequest  byte = 0xA0
	MagicResponse byte = 0xA1
)

// ProtocolVersion is the Hot Rod wire version this client speaks.
const ProtocolVersion byte = 25

// Opcode identifies a request or response message kind. Requests and their
// matching responses are numbered one apart.
type Opcode byte

const (
	OpPutRequest         Opcode = 0x01
	OpPutResponse        Opcode = 0x02
	OpGetRequest         Opcode = 0x03
	OpGetResponse        Opcode = 0x04
	OpPutIfAbsentRequest  Opcode = 0x05
	OpPutIfAbsentResponse Opcode = 0x06
	OpReplaceRequest      Opcode = 0x07
	OpReplaceResponse     Opcode = 0x08
	OpRemoveRequest       Opcode = 0x0B
	OpRemoveResponse      Opcode = 0x0C
	OpContainsKeyRequest  Opcode = 0x0F
	OpContainsKeyResponse Opcode = 0x10
	OpPingRequest         Opcode = 0x17
	OpPingResponse        Opcode = 0x18
	OpErrorResponse       Opcode = 0x50
)

// requestOpcodeName returns a human-readable name for a request opcode, used
// in error messages and logging.
func requestOpcodeName(op Opcode) string {
	switch op {
	case OpPutRequest:
		return "put"
	case OpGetRequest:
		return "get"
	case OpPutIfAbsentRequest:
		return "putIfAbsent"
	case OpReplaceRequest:
		return "replace"
	case OpRemoveRequest:
		return "remove"
	case OpContainsKeyRequest:
		return "containsKey"
	case OpPingRequest:
		return "ping"
	}
	return "unknown"
}

// Status is the one-byte result code carried by every response header.
type Status byte

const (
	StatusOK                      Status = 0x00
	StatusNotExecuted             Status = 0x01
	StatusKeyNotExists            Status = 0x02
	StatusOKWithPrevious          Status = 0x03
	StatusNotExecutedWithPrevious Status = 0x04
	// StatusOKCompatEnabled, StatusOKPreviousCompatEnabled and
	// StatusNotExecutedPreviousCompatEnabled are reserved statuses for
	// servers negotiating a compatibility mode this client does not
	// implement (see DESIGN.md); defined here only so IsClientError/
	// IsServerError/OK never silently mishandle them.
	StatusOKCompatEnabled                  Status = 0x06
	StatusOKPreviousCompatEnabled          Status = 0x07
	StatusNotExecutedPreviousCompatEnabled Status = 0x08
	StatusInvalidMagicOrMsgID              Status = 0x81
	StatusUnknownCommand                   Status = 0x82
	StatusUnknownVersion                   Status = 0x83
	StatusParseError                       Status = 0x84
	StatusServerError                      Status = 0x85
	StatusCommandTimedOut                  Status = 0x86
)

// OK reports whether the status represents a successful operation (with or
// without a previous value attached).
func (s Status) OK() bool {
	switch s {
	case StatusOK, StatusOKWithPrevious:
		return true
	default:
		return false
	}
}

// IsClientError reports whether the status is attributable to the request
// itself rather than the server.
func (s Status) IsClientError() bool {
	switch s {
	case StatusInvalidMagicOrMsgID, StatusUnknownCommand, StatusUnknownVersion, StatusParseError:
		return true
	default:
		return false
	}
}

// IsServerError reports whether the status is attributable to the server.
func (s Status) IsServerError() bool {
	return s == StatusServerError || s == StatusCommandTimedOut
}

// ClientIntelligence advertises what topology information the client wants
// pushed back with responses.
type ClientIntelligence byte

const (
	IntelligenceBasic           ClientIntelligence = 0x01
	IntelligenceTopology        ClientIntelligence = 0x02
	IntelligenceHashDistribution ClientIntelligence = 0x03
)

// TimeUnit encodes one half of a lifespan/max-idle unit nibble pair, carried
// by the tunits split byte on requests that accept an expiration (Put,
// PutIfAbsent, Replace).
type TimeUnit byte

const (
	UnitSeconds      TimeUnit = 0
	UnitMilliseconds TimeUnit = 1
	UnitNanoseconds  TimeUnit = 2
	UnitMicroseconds TimeUnit = 3
	UnitMinutes      TimeUnit = 4
	UnitHours        TimeUnit = 5
	UnitDays         TimeUnit = 6
	UnitDefault      TimeUnit = 7
	UnitInfinite     TimeUnit = 8
)

// Flag bits modify request semantics; OR together and encode as a uvarint.
type Flag uint64

const (
	FlagForceReturnValue Flag = 0x0001
	FlagDefaultLifespan  Flag = 0x0002
	FlagDefaultMaxIdle   Flag = 0x0004
	FlagSkipCacheLoad    Flag = 0x0008
	FlagSkipIndexing     Flag = 0x0010
)
