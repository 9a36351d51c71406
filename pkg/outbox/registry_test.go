package outbox

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codigo-learn/lms-backend/pkg/enums"
	"github.com/codigo-learn/lms-backend/pkg/outbox/payloads"
)

func TestDecoderRegistryDecodesRegisteredVersion(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventEnrollmentActivated, 1, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.EnrollmentActivatedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	})

	enrollmentID := uuid.New()
	raw, err := json.Marshal(payloads.EnrollmentActivatedEvent{
		EnrollmentID: enrollmentID,
		UserID:       uuid.New(),
		CourseID:     uuid.New(),
		Source:       enums.EnrollmentSourceSelf,
	})
	require.NoError(t, err)

	decoded, err := reg.Decode(enums.EventEnrollmentActivated, 1, raw)
	require.NoError(t, err)
	event, ok := decoded.(payloads.EnrollmentActivatedEvent)
	require.True(t, ok, "expected EnrollmentActivatedEvent, got %T", decoded)
	assert.Equal(t, enrollmentID, event.EnrollmentID)
}

func TestDecoderRegistryUnknownVersion(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventEnrollmentActivated, 1, func(payload json.RawMessage) (interface{}, error) {
		return nil, nil
	})

	_, err := reg.Decode(enums.EventEnrollmentActivated, 2, json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoder not registered")
}
