package protocol

// RequestHeader precedes every request body on the wire: magic, message id,
// version, opcode, cache name, flags, client intelligence and topology id.
// Expiration (lifespan/max-idle) is not part of the shared header; it is
// carried by the individual request types that accept one.
type RequestHeader struct {
	Magic              byte
	MessageID          uint64
	Version            byte
	Opcode             Opcode
	CacheName          string
	Flags              uint64
	ClientIntelligence ClientIntelligence
	TopologyID         uint64
}

var requestHeaderFields = []FieldOp[RequestHeader]{
	byteField("magic", func(m *RequestHeader) byte { return m.Magic }, func(m *RequestHeader, v byte) { m.Magic = v }),
	uvarlongField("messageId", func(m *RequestHeader) uint64 { return m.MessageID }, func(m *RequestHeader, v uint64) { m.MessageID = v }),
	byteField("version", func(m *RequestHeader) byte { return m.Version }, func(m *RequestHeader, v byte) { m.Version = v }),
	byteField("opcode", func(m *RequestHeader) byte { return byte(m.Opcode) }, func(m *RequestHeader, v byte) { m.Opcode = Opcode(v) }),
	stringField("cacheName", func(m *RequestHeader) string { return m.CacheName }, func(m *RequestHeader, v string) { m.CacheName = v }),
	uvarintField("flags", func(m *RequestHeader) uint64 { return m.Flags }, func(m *RequestHeader, v uint64) { m.Flags = v }),
	byteField("clientIntelligence", func(m *RequestHeader) byte { return byte(m.ClientIntelligence) }, func(m *RequestHeader, v byte) { m.ClientIntelligence = ClientIntelligence(v) }),
	uvarintField("topologyId", func(m *RequestHeader) uint64 { return m.TopologyID }, func(m *RequestHeader, v uint64) { m.TopologyID = v }),
}

// expiration holds the lifespan/max-idle fields shared by every request that
// can set an entry's expiration (Put, PutIfAbsent, Replace). LifespanUnit and
// MaxIdleUnit travel as a single split byte; the matching duration only
// follows on the wire when its unit is neither default nor infinite.
type expiration struct {
	LifespanUnit TimeUnit
	MaxIdleUnit  TimeUnit
	Lifespan     uint64
	MaxIdle      uint64
}

func hasExplicitLifespan[T any](get func(*T) *expiration) func(*T) bool {
	return func(m *T) bool {
		u := get(m).LifespanUnit
		return u != UnitDefault && u != UnitInfinite
	}
}

func hasExplicitMaxIdle[T any](get func(*T) *expiration) func(*T) bool {
	return func(m *T) bool {
		u := get(m).MaxIdleUnit
		return u != UnitDefault && u != UnitInfinite
	}
}

func expirationFields[T any](get func(*T) *expiration) []FieldOp[T] {
	return []FieldOp[T]{
		splitByteField("tunits",
			func(m *T) byte { return byte(get(m).LifespanUnit) }, func(m *T) byte { return byte(get(m).MaxIdleUnit) },
			func(m *T, v byte) { get(m).LifespanUnit = TimeUnit(v) }, func(m *T, v byte) { get(m).MaxIdleUnit = TimeUnit(v) }),
		conditionalUvarintField("lifespan",
			func(m *T) uint64 { return get(m).Lifespan }, func(m *T, v uint64) { get(m).Lifespan = v },
			hasExplicitLifespan(get)),
		conditionalUvarintField("maxIdle",
			func(m *T) uint64 { return get(m).MaxIdle }, func(m *T, v uint64) { get(m).MaxIdle = v },
			hasExplicitMaxIdle(get)),
	}
}

// ResponseHeader precedes every response body: magic, message id, opcode,
// status, the flag announcing a topology change and, when that flag is set,
// the topology change itself.
type ResponseHeader struct {
	Magic           byte
	MessageID       uint64
	Opcode          Opcode
	Status          Status
	TopologyChanged bool
	Topology        TopologyChangeHeader
}

var responseHeaderFields = []FieldOp[ResponseHeader]{
	byteField("magic", func(m *ResponseHeader) byte { return m.Magic }, func(m *ResponseHeader, v byte) { m.Magic = v }),
	uvarlongField("messageId", func(m *ResponseHeader) uint64 { return m.MessageID }, func(m *ResponseHeader, v uint64) { m.MessageID = v }),
	byteField("opcode", func(m *ResponseHeader) byte { return byte(m.Opcode) }, func(m *ResponseHeader, v byte) { m.Opcode = Opcode(v) }),
	byteField("status", func(m *ResponseHeader) byte { return byte(m.Status) }, func(m *ResponseHeader, v byte) { m.Status = Status(v) }),
	byteField("topologyChanged", func(m *ResponseHeader) byte {
		if m.TopologyChanged {
			return 1
		}
		return 0
	}, func(m *ResponseHeader, v byte) { m.TopologyChanged = v != 0 }),
	conditionalCompositeField("topology",
		func(m *ResponseHeader) *TopologyChangeHeader { return &m.Topology },
		topologyChangeHeaderFields,
		func(m *ResponseHeader) bool { return m.TopologyChanged }),
}

// Host is a single member entry inside a TopologyChangeHeader's server list.
type Host struct {
	Address string
	Port    uint16
}

var hostFields = []FieldOp[Host]{
	stringField("address", func(h *Host) string { return h.Address }, func(h *Host, v string) { h.Address = v }),
	ushortField("port", func(h *Host) uint16 { return h.Port }, func(h *Host, v uint16) { h.Port = v }),
}

// TopologyChangeHeader carries a fresh member list; present on a response
// whenever ResponseHeader.TopologyChanged is true.
type TopologyChangeHeader struct {
	TopologyID uint64
	NumServers uint64
	Servers    []Host
}

var topologyChangeHeaderFields = []FieldOp[TopologyChangeHeader]{
	uvarintField("topologyId", func(m *TopologyChangeHeader) uint64 { return m.TopologyID }, func(m *TopologyChangeHeader, v uint64) { m.TopologyID = v }),
	uvarintField("numServers", func(m *TopologyChangeHeader) uint64 { return m.NumServers }, func(m *TopologyChangeHeader, v uint64) { m.NumServers = v }),
	listField("servers",
		func(m *TopologyChangeHeader) *[]Host { return &m.Servers },
		func(m *TopologyChangeHeader) int { return int(m.NumServers) },
		hostFields,
		func() Host { return Host{} }),
}

// Request is implemented by every concrete request message.
type Request interface {
	Header() *RequestHeader
}

// Response is implemented by every concrete response message.
type Response interface {
	Header() *ResponseHeader
	Topology() *TopologyChangeHeader
}

// GetRequest fetches the value stored for Key.
type GetRequest struct {
	RequestHeader
	Key []byte
}

func (r *GetRequest) Header() *RequestHeader { return &r.RequestHeader }

var getRequestFields = []FieldOp[GetRequest]{
	compositeField("header", func(m *GetRequest) *RequestHeader { return &m.RequestHeader }, requestHeaderFields),
	bytesField("key", func(m *GetRequest) []byte { return m.Key }, func(m *GetRequest, v []byte) { m.Key = v }),
}

// GetResponse carries the value found for a GetRequest's key, or no value at
// all when Status is StatusKeyNotExists.
type GetResponse struct {
	ResponseHeader
	Value []byte
}

func (r *GetResponse) Header() *ResponseHeader        { return &r.ResponseHeader }
func (r *GetResponse) Topology() *TopologyChangeHeader { return &r.ResponseHeader.Topology }

var getResponseFields = []FieldOp[GetResponse]{
	conditionalBytesField("value", func(m *GetResponse) []byte { return m.Value }, func(m *GetResponse, v []byte) { m.Value = v }, func(m *GetResponse) bool { return m.Status == StatusOK }),
}

// PutRequest stores Value under Key, overwriting any existing entry. Lifespan
// and MaxIdle are only meaningful when their matching unit is neither
// UnitDefault nor UnitInfinite.
type PutRequest struct {
	RequestHeader
	Key   []byte
	expiration
	Value []byte
}

func (r *PutRequest) Header() *RequestHeader { return &r.RequestHeader }

// SetLifespan overrides the entry's lifespan. Passing UnitDefault defers to
// the server's configured default, matching tunits=[DEFAULT,*].
func (r *PutRequest) SetLifespan(unit TimeUnit, amount uint64) {
	r.LifespanUnit, r.Lifespan = unit, amount
}

// SetMaxIdle overrides the entry's max-idle duration, analogous to
// SetLifespan.
func (r *PutRequest) SetMaxIdle(unit TimeUnit, amount uint64) {
	r.MaxIdleUnit, r.MaxIdle = unit, amount
}

var putRequestFields = append(append([]FieldOp[PutRequest]{
	compositeField("header", func(m *PutRequest) *RequestHeader { return &m.RequestHeader }, requestHeaderFields),
	bytesField("key", func(m *PutRequest) []byte { return m.Key }, func(m *PutRequest, v []byte) { m.Key = v }),
},
	expirationFields(func(m *PutRequest) *expiration { return &m.expiration })...),
	bytesField("value", func(m *PutRequest) []byte { return m.Value }, func(m *PutRequest, v []byte) { m.Value = v }),
)

// PutResponse acknowledges a PutRequest, carrying the value that was
// previously stored under the key only when ForceReturnValue was set and an
// old value existed (Status == StatusOKWithPrevious).
type PutResponse struct {
	ResponseHeader
	PreviousValue []byte
}

func (r *PutResponse) Header() *ResponseHeader        { return &r.ResponseHeader }
func (r *PutResponse) Topology() *TopologyChangeHeader { return &r.ResponseHeader.Topology }

var putResponseFields = []FieldOp[PutResponse]{
	conditionalBytesField("previousValue", func(m *PutResponse) []byte { return m.PreviousValue }, func(m *PutResponse, v []byte) { m.PreviousValue = v }, func(m *PutResponse) bool { return m.Status == StatusOKWithPrevious }),
}

// PutIfAbsentRequest stores Value under Key only if Key is not already
// present.
type PutIfAbsentRequest struct {
	RequestHeader
	Key []byte
	expiration
	Value []byte
}

func (r *PutIfAbsentRequest) Header() *RequestHeader { return &r.RequestHeader }

// SetLifespan overrides the entry's lifespan, applied only if the request
// ends up storing a value.
func (r *PutIfAbsentRequest) SetLifespan(unit TimeUnit, amount uint64) {
	r.LifespanUnit, r.Lifespan = unit, amount
}

// SetMaxIdle overrides the entry's max-idle duration, analogous to
// SetLifespan.
func (r *PutIfAbsentRequest) SetMaxIdle(unit TimeUnit, amount uint64) {
	r.MaxIdleUnit, r.MaxIdle = unit, amount
}

var putIfAbsentRequestFields = append(append([]FieldOp[PutIfAbsentRequest]{
	compositeField("header", func(m *PutIfAbsentRequest) *RequestHeader { return &m.RequestHeader }, requestHeaderFields),
	bytesField("key", func(m *PutIfAbsentRequest) []byte { return m.Key }, func(m *PutIfAbsentRequest, v []byte) { m.Key = v }),
},
	expirationFields(func(m *PutIfAbsentRequest) *expiration { return &m.expiration })...),
	bytesField("value", func(m *PutIfAbsentRequest) []byte { return m.Value }, func(m *PutIfAbsentRequest, v []byte) { m.Value = v }),
)

// PutIfAbsentResponse reports StatusOK when the value was stored. When it
// wasn't (the key was already present), the previously-present value is only
// carried when Status is StatusNotExecutedWithPrevious: unlike Put, the
// "previous value" here is returned on the failure path, not the success one.
type PutIfAbsentResponse struct {
	ResponseHeader
	PreviousValue []byte
}

func (r *PutIfAbsentResponse) Header() *ResponseHeader        { return &r.ResponseHeader }
func (r *PutIfAbsentResponse) Topology() *TopologyChangeHeader { return &r.ResponseHeader.Topology }

var putIfAbsentResponseFields = []FieldOp[PutIfAbsentResponse]{
	conditionalBytesField("previousValue", func(m *PutIfAbsentResponse) []byte { return m.PreviousValue }, func(m *PutIfAbsentResponse, v []byte) { m.PreviousValue = v }, func(m *PutIfAbsentResponse) bool { return m.Status == StatusNotExecutedWithPrevious }),
}

// ReplaceRequest stores Value under Key only if Key is already present. Not
// part of the retrieved reference protocol dump; modeled on PutRequest by
// analogy, since real-world Hot Rod servers accept the same expiration
// fields on replace as on put.
type ReplaceRequest struct {
	RequestHeader
	Key []byte
	expiration
	Value []byte
}

func (r *ReplaceRequest) Header() *RequestHeader { return &r.RequestHeader }

// SetLifespan overrides the entry's lifespan, analogous to PutRequest's.
func (r *ReplaceRequest) SetLifespan(unit TimeUnit, amount uint64) {
	r.LifespanUnit, r.Lifespan = unit, amount
}

// SetMaxIdle overrides the entry's max-idle duration, analogous to
// SetLifespan.
func (r *ReplaceRequest) SetMaxIdle(unit TimeUnit, amount uint64) {
	r.MaxIdleUnit, r.MaxIdle = unit, amount
}

var replaceRequestFields = append(append([]FieldOp[ReplaceRequest]{
	compositeField("header", func(m *ReplaceRequest) *RequestHeader { return &m.RequestHeader }, requestHeaderFields),
	bytesField("key", func(m *ReplaceRequest) []byte { return m.Key }, func(m *ReplaceRequest, v []byte) { m.Key = v }),
},
	expirationFields(func(m *ReplaceRequest) *expiration { return &m.expiration })...),
	bytesField("value", func(m *ReplaceRequest) []byte { return m.Value }, func(m *ReplaceRequest, v []byte) { m.Value = v }),
)

// ReplaceResponse reports StatusOK (or StatusOKWithPrevious, carrying the
// replaced value) when the entry existed and was replaced, or
// StatusKeyNotExists when it didn't. Modeled on PutResponse by analogy, for
// the same reason as ReplaceRequest.
type ReplaceResponse struct {
	ResponseHeader
	PreviousValue []byte
}

func (r *ReplaceResponse) Header() *ResponseHeader        { return &r.ResponseHeader }
func (r *ReplaceResponse) Topology() *TopologyChangeHeader { return &r.ResponseHeader.Topology }

var replaceResponseFields = []FieldOp[ReplaceResponse]{
	conditionalBytesField("previousValue", func(m *ReplaceResponse) []byte { return m.PreviousValue }, func(m *ReplaceResponse, v []byte) { m.PreviousValue = v }, func(m *ReplaceResponse) bool { return m.Status == StatusOKWithPrevious }),
}

// RemoveRequest deletes the entry stored under Key, if any.
type RemoveRequest struct {
	RequestHeader
	Key []byte
}

func (r *RemoveRequest) Header() *RequestHeader { return &r.RequestHeader }

var removeRequestFields = []FieldOp[RemoveRequest]{
	compositeField("header", func(m *RemoveRequest) *RequestHeader { return &m.RequestHeader }, requestHeaderFields),
	bytesField("key", func(m *RemoveRequest) []byte { return m.Key }, func(m *RemoveRequest, v []byte) { m.Key = v }),
}

// RemoveResponse reports whether an entry was removed (StatusOK vs
// StatusKeyNotExists), carrying the removed value only when Status is
// StatusOKWithPrevious.
type RemoveResponse struct {
	ResponseHeader
	PreviousValue []byte
}

func (r *RemoveResponse) Header() *ResponseHeader        { return &r.ResponseHeader }
func (r *RemoveResponse) Topology() *TopologyChangeHeader { return &r.ResponseHeader.Topology }

var removeResponseFields = []FieldOp[RemoveResponse]{
	conditionalBytesField("previousValue", func(m *RemoveResponse) []byte { return m.PreviousValue }, func(m *RemoveResponse, v []byte) { m.PreviousValue = v }, func(m *RemoveResponse) bool { return m.Status == StatusOKWithPrevious }),
}

// ContainsKeyRequest checks whether Key is present without fetching its
// value.
type ContainsKeyRequest struct {
	RequestHeader
	Key []byte
}

func (r *ContainsKeyRequest) Header() *RequestHeader { return &r.RequestHeader }

var containsKeyRequestFields = []FieldOp[ContainsKeyRequest]{
	compositeField("header", func(m *ContainsKeyRequest) *RequestHeader { return &m.RequestHeader }, requestHeaderFields),
	bytesField("key", func(m *ContainsKeyRequest) []byte { return m.Key }, func(m *ContainsKeyRequest, v []byte) { m.Key = v }),
}

// ContainsKeyResponse reports StatusOK (present) or StatusKeyNotExists
// (absent). No body fields beyond the shared header.
type ContainsKeyResponse struct {
	ResponseHeader
}

func (r *ContainsKeyResponse) Header() *ResponseHeader        { return &r.ResponseHeader }
func (r *ContainsKeyResponse) Topology() *TopologyChangeHeader { return &r.ResponseHeader.Topology }

var containsKeyResponseFields = []FieldOp[ContainsKeyResponse]{}

// PingRequest carries no body beyond the common header; it is used as a
// liveness check, and its response, like any other, may carry a topology
// change.
type PingRequest struct {
	RequestHeader
}

func (r *PingRequest) Header() *RequestHeader { return &r.RequestHeader }

var pingRequestFields = []FieldOp[PingRequest]{
	compositeField("header", func(m *PingRequest) *RequestHeader { return &m.RequestHeader }, requestHeaderFields),
}

// PingResponse carries no body beyond the common header and whatever
// topology change the header itself carried.
type PingResponse struct {
	ResponseHeader
}

func (r *PingResponse) Header() *ResponseHeader        { return &r.ResponseHeader }
func (r *PingResponse) Topology() *TopologyChangeHeader { return &r.ResponseHeader.Topology }

var pingResponseFields = []FieldOp[PingResponse]{}

// ErrorResponse (opcode OpErrorResponse) is returned in place of the
// expected response when the server fails the request; its Status carries
// the error code. Non-error outcomes such as StatusKeyNotExists arrive on
// the regular response type instead. Message is a human-readable server
// diagnostic.
type ErrorResponse struct {
	ResponseHeader
	Message string
}

func (r *ErrorResponse) Header() *ResponseHeader        { return &r.ResponseHeader }
func (r *ErrorResponse) Topology() *TopologyChangeHeader { return &r.ResponseHeader.Topology }

var errorResponseFields = []FieldOp[ErrorResponse]{
	stringField("message", func(m *ErrorResponse) string { return m.Message }, func(m *ErrorResponse, v string) { m.Message = v }),
}
