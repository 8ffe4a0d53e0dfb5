package nats

import (
	"encoding/json"
	"testing"
	"time"

	"ai-critic-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_RestoresEnvelope(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	raw, err := json.Marshal(envelope{
		Type:       events.AnalysisCompleted,
		OccurredAt: at,
		Data:       map[string]interface{}{"analysis_id": "a-1"},
	})
	require.NoError(t, err)

	ev, err := decode(raw)
	require.NoError(t, err)
	assert.Equal(t, events.AnalysisCompleted, ev.EventType())
	assert.True(t, at.Equal(ev.Timestamp()))
	assert.Equal(t, "a-1", ev.Payload()["analysis_id"])
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, err := decode([]byte("not json"))
	assert.Error(t, err)
}
