package proto

import (
	"bytes"
	"ctchen222/nogo-server/internal/validator"
	"encoding/json"
	"errors"
	"fmt"
)

// OpCode identifies the operation carried by a Message.
type OpCode int

const (
	UpdateUIState    OpCode = 100000
	StartLocalGame   OpCode = 100001
	LocalGameTimeout OpCode = 100002

	Ready      OpCode = 200000
	Reject     OpCode = 200001
	Move       OpCode = 200002
	GiveUp     OpCode = 200003
	TimeoutEnd OpCode = 200004
	SuicideEnd OpCode = 200005
	GiveUpEnd  OpCode = 200006
	Leave      OpCode = 200007
	Chat       OpCode = 200008
)

var opNames = map[OpCode]string{
	UpdateUIState:    "UPDATE_UI_STATE",
	StartLocalGame:   "START_LOCAL_GAME",
	LocalGameTimeout: "LOCAL_GAME_TIMEOUT",
	Ready:            "READY",
	Reject:           "REJECT",
	Move:             "MOVE",
	GiveUp:           "GIVEUP",
	TimeoutEnd:       "TIMEOUT_END",
	SuicideEnd:       "SUICIDE_END",
	GiveUpEnd:        "GIVEUP_END",
	Leave:            "LEAVE",
	Chat:             "CHAT",
}

func (o OpCode) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("OpCode(%d)", int(o))
}

// Known reports whether o is part of the protocol.
func (o OpCode) Known() bool {
	_, ok := opNames[o]
	return ok
}

// ServerOnly reports whether only the server may send o.
func (o OpCode) ServerOnly() bool {
	switch o {
	case UpdateUIState, TimeoutEnd, SuicideEnd, GiveUpEnd:
		return true
	}
	return false
}

// ErrProtocolViolation marks input a peer should never have sent.
var ErrProtocolViolation = errors.New("protocol violation")

// Message is one line of the wire protocol.
type Message struct {
	Op    OpCode `json:"op" validate:"required"`
	Data1 string `json:"data1"`
	Data2 string `json:"data2"`
}

// NewMessage builds a message; missing data fields are empty.
func NewMessage(op OpCode, data ...string) Message {
	msg := Message{Op: op}
	if len(data) > 0 {
		msg.Data1 = data[0]
	}
	if len(data) > 1 {
		msg.Data2 = data[1]
	}
	return msg
}

func (m Message) String() string {
	return fmt.Sprintf("%s(%q, %q)", m.Op, m.Data1, m.Data2)
}

// Encode renders the message as a single line without the terminator.
func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", m.Op, err)
	}
	return data, nil
}

// Decode parses one line (terminator optional) into a Message. Unknown op
// codes and malformed lines are protocol violations.
func Decode(line []byte) (Message, error) {
	line = bytes.TrimRight(line, "\r\n")

	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: malformed message: %v", ErrProtocolViolation, err)
	}
	if err := validator.GetValidator().Struct(msg); err != nil {
		return Message{}, fmt.Errorf("%w: invalid message: %v", ErrProtocolViolation, err)
	}
	if !msg.Op.Known() {
		return Message{}, fmt.Errorf("%w: unknown op code %d", ErrProtocolViolation, int(msg.Op))
	}
	return msg, nil
}
