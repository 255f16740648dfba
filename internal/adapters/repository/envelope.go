package repository

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/okian/evaldash/internal/domain/model"
	"github.com/okian/evaldash/pkg/metrics"
)

// envelopeVersion is written on every save. Version 1 is the original bare
// JSON array and is migrated on read.
const envelopeVersion = 2

type envelope struct {
	Version int                `json:"version"`
	Events  []model.AuditEvent `json:"events"`
}

type rawEnvelope struct {
	Version *int              `json:"version"`
	Events  []json.RawMessage `json:"events"`
}

func encodeEnvelope(events []model.AuditEvent) ([]byte, error) {
	if events == nil {
		events = []model.AuditEvent{}
	}
	return json.Marshal(envelope{Version: envelopeVersion, Events: events})
}

// decodeEnvelope parses a stored value. It reports whether the value used the
// v1 layout. Individual malformed events are skipped.
func decodeEnvelope(raw []byte) ([]model.AuditEvent, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false, nil
	}

	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, false, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		return decodeEvents(items), true, nil
	case '{':
		var env rawEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, false, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if env.Version == nil {
			return nil, false, fmt.Errorf("%w: missing version", ErrCorrupt)
		}
		if *env.Version != envelopeVersion {
			return nil, false, fmt.Errorf("%w: %d", ErrUnsupportedVersion, *env.Version)
		}
		return decodeEvents(env.Events), false, nil
	}
	return nil, false, fmt.Errorf("%w: unexpected content", ErrCorrupt)
}

func decodeEvents(items []json.RawMessage) []model.AuditEvent {
	out := make([]model.AuditEvent, 0, len(items))
	for _, item := range items {
		var ev model.AuditEvent
		if err := json.Unmarshal(item, &ev); err != nil || ev.Type == "" {
			metrics.RecordAuditReadFailure("malformed_event")
			continue
		}
		out = append(out, ev)
	}
	return out
}
