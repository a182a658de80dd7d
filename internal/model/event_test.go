package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayEvent_JSON(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 30, 0, 0, time.Local)
	event := RelayEvent{
		RequestID:    "req-1",
		MessageCount: 3,
		Status:       200,
		CacheHit:     true,
		LatencyMs:    42,
		Timestamp:    LocalTime(at),
	}

	b, err := json.Marshal(event)
	require.NoError(t, err)
	assert.JSONEq(t, `{"request_id":"req-1","message_count":3,"status":200,"cache_hit":true,"latency_ms":42,"timestamp":"2026-03-02 09:30:00"}`, string(b))

	var decoded RelayEvent
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, event.RequestID, decoded.RequestID)
	assert.Equal(t, "", decoded.ErrorKind)
	assert.True(t, time.Time(decoded.Timestamp).Equal(at))
}
