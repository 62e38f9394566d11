package player

import (
	"ctchen222/nogo-server/internal/game"
	"ctchen222/nogo-server/internal/validator"
	"ctchen222/nogo-server/pkg/proto"
)

// Participant is a connected peer as seen by a room.
type Participant interface {
	// Deliver queues msg for sending. It never blocks.
	Deliver(msg proto.Message)
	// Stop closes the connection. Safe to call more than once.
	Stop()
	// Endpoint is the stable identity of the peer.
	Endpoint() string
	// Local reports whether this peer controls both roles.
	Local() bool
}

// Kind tells local and remote human players apart.
type Kind int

const (
	LocalHuman Kind = iota
	RemoteHuman
)

func (k Kind) String() string {
	if k == LocalHuman {
		return "local"
	}
	return "remote"
}

// Player is an enrolled participant.
type Player struct {
	Participant Participant
	Name        string
	Role        game.Role
	Kind        Kind
}

// NewPlayer creates a new player.
func NewPlayer(p Participant, name string, role game.Role, kind Kind) Player {
	return Player{Participant: p, Name: name, Role: role, Kind: kind}
}

// Endpoint returns the participant endpoint, or "" when there is none.
func (p Player) Endpoint() string {
	if p.Participant == nil {
		return ""
	}
	return p.Participant.Endpoint()
}

// Equal compares connection identity and role.
func (p Player) Equal(other Player) bool {
	return p.Role == other.Role && SameParticipant(p.Participant, other.Participant)
}

// SameParticipant compares two participants by endpoint.
func SameParticipant(a, b Participant) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Endpoint() == b.Endpoint()
}

// IsValidName reports whether name is non-empty and made of letters, digits
// and underscores.
func IsValidName(name string) bool {
	return validator.GetValidator().Var(name, "playername") == nil
}
