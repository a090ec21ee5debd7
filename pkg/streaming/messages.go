package streaming

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/turbofuel/fueltwin/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartRun = "start_run"
	TypeEndRun   = "end_run"
	TypeFrame    = "frame"
	TypeLogEntry = "log_entry"
	TypeSnapshot = "snapshot"
	TypeAck      = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartRunPayload describes the run that following frames belong to.
type StartRunPayload struct {
	RunID       string    `json:"runId"`
	Name        string    `json:"name"`
	Tag         string    `json:"tag,omitempty"`
	AppVersion  string    `json:"appVersion,omitempty"`
	StartTime   time.Time `json:"startTime"`
	TickSeconds float64   `json:"tickSeconds"`
	Seed        uint64    `json:"seed"`
}

// NewStartRunPayload builds the start_run payload for run.
func NewStartRunPayload(run *core.Run) StartRunPayload {
	return StartRunPayload{
		RunID:       run.ID.String(),
		Name:        run.Name,
		Tag:         run.Tag,
		AppVersion:  run.AppVersion,
		StartTime:   run.StartTime,
		TickSeconds: run.TickInterval.Seconds(),
		Seed:        run.Seed,
	}
}

// EndRunPayload closes a run.
type EndRunPayload struct {
	RunID   string `json:"runId"`
	EndStep uint64 `json:"endStep"`
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// Decode parses an envelope and unmarshals its payload into v when v is non-nil.
func Decode(data []byte, v any) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if v != nil && len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, v); err != nil {
			return env, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
	}
	return env, nil
}
