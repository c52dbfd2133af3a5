package foundation

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the four message shapes the router understands.
type Kind string

const (
	KindCommand  Kind = "command"
	KindQuery    Kind = "query"
	KindEvent    Kind = "event"
	KindResponse Kind = "response"
)

// Well-known meta keys. Meta is an open map so collaborators can carry
// additional application data; the kernel only interprets these.
const (
	MetaCorrelationID       = "correlationId"
	MetaReplyPath           = "replyPath"
	MetaSenderPKR           = "senderPKR"
	MetaTraceID             = "traceId"
	MetaPriority            = "priority"
	MetaTimeoutMs           = "timeoutMs"
	MetaCreatedAt           = "createdAt"
	MetaProcessImmediately  = "processImmediately"
	MetaRequiredScopes      = "requiredScopes"
)

// Meta is the open metadata bag carried by every Message.
type Meta map[string]interface{}

func (m Meta) clone() Meta {
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m Meta) CorrelationID() string {
	v, _ := m[MetaCorrelationID].(string)
	return v
}

func (m Meta) ReplyPath() string {
	v, _ := m[MetaReplyPath].(string)
	return v
}

func (m Meta) SenderPKR() string {
	v, _ := m[MetaSenderPKR].(string)
	return v
}

func (m Meta) TraceID() string {
	v, _ := m[MetaTraceID].(string)
	return v
}

func (m Meta) Priority() int {
	v, _ := m[MetaPriority].(int)
	return v
}

func (m Meta) TimeoutMs() int {
	v, _ := m[MetaTimeoutMs].(int)
	return v
}

func (m Meta) CreatedAt() time.Time {
	v, _ := m[MetaCreatedAt].(time.Time)
	return v
}

func (m Meta) ProcessImmediately() bool {
	v, _ := m[MetaProcessImmediately].(bool)
	return v
}

func (m Meta) RequiredScopes() []string {
	v, _ := m[MetaRequiredScopes].([]string)
	return v
}

// Message is an immutable envelope. Every mutator method returns a new
// Message with a cloned Meta map; the receiver is never modified.
type Message struct {
	ID   string
	Path Path
	Kind Kind
	Body interface{}
	Meta Meta
}

// NewMessage constructs a message with a fresh ID and createdAt stamp.
func NewMessage(path Path, kind Kind, body interface{}) Message {
	return Message{
		ID:   uuid.NewString(),
		Path: path,
		Kind: kind,
		Body: body,
		Meta: Meta{MetaCreatedAt: time.Now()},
	}
}

// WithMeta returns a copy of the message with key set to value in Meta.
func (m Message) WithMeta(key string, value interface{}) Message {
	next := m
	next.Meta = m.Meta.clone()
	next.Meta[key] = value
	return next
}

// WithBody returns a copy of the message with a different body.
func (m Message) WithBody(body interface{}) Message {
	next := m
	next.Body = body
	next.Meta = m.Meta.clone()
	return next
}

// NewCorrelationID mints a fresh correlation identifier for request/response
// pairing.
func NewCorrelationID() string {
	return uuid.NewString()
}

// Result is the uniform outcome of message handling.
type Result struct {
	Success bool
	Data    interface{}
	Error   error
}

// Ok builds a successful Result.
func Ok(data interface{}) *Result {
	return &Result{Success: true, Data: data}
}

// Fail builds a failed Result, never unwinding the subsystem that produced
// it — handler errors become data, not panics.
func Fail(err error) *Result {
	return &Result{Success: false, Error: err}
}
