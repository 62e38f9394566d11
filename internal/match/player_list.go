package match

import (
	"ctchen222/nogo-server/internal/game"
	"ctchen222/nogo-server/internal/player"
	"log/slog"
)

// PlayerList holds at most one player per role.
type PlayerList struct {
	players []player.Player
}

func matches(p player.Player, role game.Role, participant player.Participant) bool {
	if role != game.None && p.Role != role {
		return false
	}
	if participant != nil && !player.SameParticipant(p.Participant, participant) {
		return false
	}
	return true
}

// Find returns the player matching role and participant. None and nil act
// as wildcards.
func (l *PlayerList) Find(role game.Role, participant player.Participant) (player.Player, bool) {
	for _, p := range l.players {
		if matches(p, role, participant) {
			return p, true
		}
	}
	return player.Player{}, false
}

// At is Find that fails with ErrNotFound.
func (l *PlayerList) At(role game.Role, participant player.Participant) (player.Player, error) {
	p, ok := l.Find(role, participant)
	if !ok {
		endpoint := "any"
		if participant != nil {
			endpoint = participant.Endpoint()
		}
		return player.Player{}, illegal("find player", "no "+role.String()+" player for "+endpoint, ErrNotFound)
	}
	return p, nil
}

// Contains reports whether Find would succeed.
func (l *PlayerList) Contains(role game.Role, participant player.Participant) bool {
	_, ok := l.Find(role, participant)
	return ok
}

// Insert adds p to the roster. A player without a role gets the vacant one,
// Black first.
// It returns the player as stored.
func (l *PlayerList) Insert(p player.Player) (player.Player, error) {
	for _, existing := range l.players {
		if existing.Equal(p) {
			return player.Player{}, illegal("insert player", "player already in list", ErrRoster)
		}
	}

	if p.Role == game.None {
		switch {
		case !l.Contains(game.Black, nil):
			p.Role = game.Black
		case !l.Contains(game.White, nil):
			p.Role = game.White
		default:
			return player.Player{}, illegal("insert player", "no role for player", ErrRoster)
		}
		slog.Debug("Inferred role for player", "player.name", p.Name, "player.role", p.Role.String())
	}

	if l.Contains(p.Role, nil) {
		return player.Player{}, illegal("insert player", p.Role.String()+" already occupied", ErrRoster)
	}

	slog.Info("Insert player", "player.endpoint", p.Endpoint(), "player.name", p.Name, "player.role", p.Role.String(), "player.kind", p.Kind.String())
	l.players = append(l.players, p)
	return p, nil
}

// Len returns the number of enrolled players.
func (l *PlayerList) Len() int {
	return len(l.players)
}

// All returns a copy of the roster in enrollment order.
func (l *PlayerList) All() []player.Player {
	return append([]player.Player(nil), l.players...)
}
