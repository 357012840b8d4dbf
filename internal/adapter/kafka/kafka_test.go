package kafka

import (
	"testing"
	"time"

	"github.com/couchcryptid/sfpd-cad-cot/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestToMessage(t *testing.T) {
	now := time.Date(2022, 6, 14, 15, 5, 0, 0, time.UTC)
	event := domain.OutputEvent{
		UID:     "SFPDCAD.221650608",
		Type:    "a-u-G",
		Payload: []byte(`<event uid="SFPDCAD.221650608"></event>`),
	}

	msg := toMessage(event, now)

	assert.Equal(t, []byte("SFPDCAD.221650608"), msg.Key)
	assert.Equal(t, event.Payload, msg.Value)
	assert.Len(t, msg.Headers, 3)
	assert.Equal(t, "cot_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("a-u-G"), msg.Headers[0].Value)
	assert.Equal(t, "content_type", msg.Headers[1].Key)
	assert.Equal(t, []byte("application/xml"), msg.Headers[1].Value)
	assert.Equal(t, "submitted_at", msg.Headers[2].Key)
	assert.Equal(t, []byte("2022-06-14T15:05:00Z"), msg.Headers[2].Value)
}

func TestNewWriter(t *testing.T) {
	w := NewWriter([]string{"broker1:9092", "broker2:9092"}, "cot-events", nil)

	assert.Equal(t, "cot-events", w.writer.Topic)
	assert.NotNil(t, w.writer.Addr)
	assert.NoError(t, w.Close())
}
