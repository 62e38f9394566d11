package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Pub/Sub channel constants
const (
	EventsChannel = "channel:events"
)

// Type names a room event.
type Type string

const (
	ParticipantJoined Type = "participant_joined"
	ParticipantLeft   Type = "participant_left"
	MatchStarted      Type = "match_started"
	MovePlayed        Type = "move_played"
	MatchOver         Type = "match_over"
	ChatPosted        Type = "chat"
)

// Event represents a room event published to external observers.
type Event struct {
	ID      string          `json:"id"`
	Type    Type            `json:"event"`
	Port    int             `json:"port"`
	Time    time.Time       `json:"time"`
	Payload json.RawMessage `json:"payload"`
}

// New builds an event with a fresh id.
func New(port int, typ Type, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", typ, err)
	}
	return Event{
		ID:      uuid.New().String(),
		Type:    typ,
		Port:    port,
		Time:    time.Now().UTC(),
		Payload: data,
	}, nil
}

// ParticipantPayload is the payload for the "participant_joined" and
// "participant_left" events.
type ParticipantPayload struct {
	SessionID string `json:"session_id"`
	Endpoint  string `json:"endpoint"`
}

// MatchStartedPayload is the payload for the "match_started" event.
type MatchStartedPayload struct {
	Black string `json:"black"`
	White string `json:"white"`
}

// MovePlayedPayload is the payload for the "move_played" event.
type MovePlayedPayload struct {
	Role      string `json:"role"`
	Position  string `json:"position"`
	ElapsedMs uint64 `json:"elapsed_ms"`
	Round     int    `json:"round"`
}

// MatchOverPayload is the payload for the "match_over" event.
type MatchOverPayload struct {
	Winner  string `json:"winner"`
	WinType string `json:"win_type"`
	Record  string `json:"record"`
}

// ChatPayload is the payload for the "chat" event.
type ChatPayload struct {
	Endpoint string `json:"endpoint"`
	Text     string `json:"text"`
}
