package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_NilHub(t *testing.T) {
	var h *Hub
	assert.NotPanics(t, func() { h.Publish(Event{Type: "package", Action: "created"}) })
}

func TestPublish_EncodesEvent(t *testing.T) {
	h := NewHub()
	h.Publish(Event{Type: "package", Action: "created", Data: map[string]string{"batch_number": "BATCH-ABC"}})

	msg := <-h.Broadcast
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, "package", got["type"])
	assert.Equal(t, "created", got["action"])
	assert.Equal(t, "BATCH-ABC", got["data"].(map[string]interface{})["batch_number"])
}

func TestPublish_DropsWhenFull(t *testing.T) {
	h := NewHub()
	for i := 0; i < broadcastBuffer+10; i++ {
		h.Publish(Event{Type: "stock", Action: "updated"})
	}
	assert.Len(t, h.Broadcast, broadcastBuffer)
	assert.Equal(t, 0, h.ClientCount())
}
