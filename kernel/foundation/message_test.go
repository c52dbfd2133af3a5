package foundation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewMessage_StampsIDAndCreatedAt(t *testing.T) {
	path := Path{Scheme: "users", Segments: []string{"query", "getUser"}}
	msg := NewMessage(path, KindQuery, map[string]string{"id": "u1"})

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, KindQuery, msg.Kind)
	assert.WithinDuration(t, time.Now(), msg.Meta.CreatedAt(), time.Second)
}

func TestMessage_WithMetaClonesAndLeavesOriginalUntouched(t *testing.T) {
	msg := NewMessage(Path{Scheme: "users"}, KindCommand, nil)
	next := msg.WithMeta(MetaCorrelationID, "corr-1")

	assert.Equal(t, "corr-1", next.Meta.CorrelationID())
	assert.Equal(t, "", msg.Meta.CorrelationID())
}

func TestMessage_WithBodyClonesMetaAndReplacesBody(t *testing.T) {
	msg := NewMessage(Path{Scheme: "users"}, KindCommand, "old").WithMeta(MetaTraceID, "t1")
	next := msg.WithBody("new")

	assert.Equal(t, "new", next.Body)
	assert.Equal(t, "old", msg.Body)
	assert.Equal(t, "t1", next.Meta.TraceID())
}

func TestMeta_AccessorsDefaultOnWrongType(t *testing.T) {
	m := Meta{
		MetaPriority:  "not-an-int",
		MetaTimeoutMs: 500,
	}
	assert.Equal(t, 0, m.Priority())
	assert.Equal(t, 500, m.TimeoutMs())
	assert.False(t, m.ProcessImmediately())
	assert.Nil(t, m.RequiredScopes())
}

func TestNewCorrelationID_IsUnique(t *testing.T) {
	assert.NotEqual(t, NewCorrelationID(), NewCorrelationID())
}

func TestResult_OkAndFail(t *testing.T) {
	ok := Ok("data")
	assert.True(t, ok.Success)
	assert.Equal(t, "data", ok.Data)
	assert.NoError(t, ok.Error)

	failErr := assert.AnError
	fail := Fail(failErr)
	assert.False(t, fail.Success)
	assert.Equal(t, failErr, fail.Error)
}
