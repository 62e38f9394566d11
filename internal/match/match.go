package match

import (
	"ctchen222/nogo-server/internal/game"
	"ctchen222/nogo-server/internal/player"
	"strings"
	"time"
)

// Status is the lifecycle stage of a match.
type Status int

const (
	NotPrepared Status = iota
	OnGoing
	GameOver
)

func (s Status) String() string {
	switch s {
	case NotPrepared:
		return "NOT_PREPARED"
	case OnGoing:
		return "ON_GOING"
	case GameOver:
		return "GAME_OVER"
	default:
		return "UNKNOWN"
	}
}

// WinKind tells how a match ended.
type WinKind int

const (
	WinNone WinKind = iota
	WinTimeout
	WinSuicide
	WinGiveUp
)

func (k WinKind) String() string {
	switch k {
	case WinTimeout:
		return "TIMEOUT"
	case WinSuicide:
		return "SUICIDE"
	case WinGiveUp:
		return "GIVEUP"
	default:
		return "NONE"
	}
}

// Result is the outcome of a finished match.
type Result struct {
	Winner    game.Role
	Kind      WinKind
	Confirmed bool
}

// Match is the turn-based state machine of one game between two players.
// It is not safe for concurrent use; a room owns it.
type Match struct {
	current      game.State
	moves        []game.Position
	players      PlayerList
	status       Status
	result       Result
	shouldGiveUp bool
	startedAt    time.Time
	endedAt      time.Time
	now          func() time.Time
}

// New returns a match waiting for players.
func New() *Match {
	return &Match{current: game.NewState(), now: time.Now}
}

// Reset clears board, moves, roster and result, returning to NotPrepared.
func (m *Match) Reset() {
	m.current = game.NewState()
	m.moves = nil
	m.players = PlayerList{}
	m.status = NotPrepared
	m.result = Result{}
	m.shouldGiveUp = false
	m.startedAt = time.Time{}
	m.endedAt = time.Time{}
}

func (m *Match) Current() game.State  { return m.current }
func (m *Match) Status() Status       { return m.status }
func (m *Match) Result() Result       { return m.result }
func (m *Match) StartedAt() time.Time { return m.startedAt }
func (m *Match) EndedAt() time.Time   { return m.endedAt }

// ShouldGiveUp is set when the side to move has no move left that avoids a
// capture. It is advisory only.
func (m *Match) ShouldGiveUp() bool { return m.shouldGiveUp }

// Moves returns the positions played so far.
func (m *Match) Moves() []game.Position {
	return append([]game.Position(nil), m.moves...)
}

// Round is the number of moves played.
func (m *Match) Round() int { return len(m.moves) }

// Players returns the roster in enrollment order.
func (m *Match) Players() []player.Player { return m.players.All() }

// Player looks up an enrolled player; None and nil act as wildcards.
func (m *Match) Player(role game.Role, participant player.Participant) (player.Player, error) {
	return m.players.At(role, participant)
}

// HasPlayer reports whether a matching player is enrolled.
func (m *Match) HasPlayer(role game.Role, participant player.Participant) bool {
	return m.players.Contains(role, participant)
}

// Confirm marks the result as acknowledged.
func (m *Match) Confirm() {
	m.result.Confirmed = true
}

// Reject drops a proposed roster before the match starts.
func (m *Match) Reject() error {
	if m.status != NotPrepared {
		return illegal("reject", "match is "+m.status.String(), nil)
	}
	m.players = PlayerList{}
	return nil
}

// Enroll adds a player; the match starts once both roles are filled.
// It returns the player as enrolled, with the role filled in.
func (m *Match) Enroll(p player.Player) (player.Player, error) {
	if m.status != NotPrepared {
		return player.Player{}, illegal("enroll", "match is "+m.status.String(), nil)
	}
	enrolled, err := m.players.Insert(p)
	if err != nil {
		return player.Player{}, err
	}
	if m.players.Contains(game.Black, nil) && m.players.Contains(game.White, nil) {
		m.status = OnGoing
		m.startedAt = m.now()
	}
	return enrolled, nil
}

// Play places a stone for p at pos. A move that captures anything ends the
// match in favour of the other side.
func (m *Match) Play(p player.Player, pos game.Position) error {
	if m.status != OnGoing {
		return illegal("play", "match is "+m.status.String(), nil)
	}
	if m.current.Turn != p.Role {
		return illegal("play", "in "+m.current.Turn.String()+"'s turn, "+p.Name+" not allowed to play", nil)
	}
	if !pos.Valid() {
		return illegal("play", "position "+pos.String()+" is off the board", game.ErrInvalidPosition)
	}
	if m.current.Board.At(pos) != game.None {
		return illegal("play", "position "+pos.String()+" is occupied", ErrOccupied)
	}

	m.current = m.current.Next(pos)
	m.moves = append(m.moves, pos)

	if winner := m.current.IsOver(); winner != game.None {
		m.finish(winner, WinSuicide)
	}
	if len(m.current.LegalMoves()) == 0 {
		m.shouldGiveUp = true
	}
	return nil
}

// Concede ends the match in favour of p's opponent. Only the player to move
// may concede.
func (m *Match) Concede(p player.Player) error {
	if err := m.checkMover("concede", p); err != nil {
		return err
	}
	m.finish(p.Role.Opponent(), WinGiveUp)
	return nil
}

// Timeout ends the match in favour of p's opponent because p ran out of time.
func (m *Match) Timeout(p player.Player) error {
	if err := m.checkMover("timeout", p); err != nil {
		return err
	}
	m.finish(p.Role.Opponent(), WinTimeout)
	return nil
}

func (m *Match) checkMover(op string, p player.Player) error {
	if m.status != OnGoing {
		return illegal(op, "match is "+m.status.String(), nil)
	}
	mover, err := m.players.At(m.current.Turn, nil)
	if err != nil {
		return err
	}
	if !mover.Equal(p) {
		return illegal(op, "not in "+p.Role.String()+"'s turn", nil)
	}
	return nil
}

func (m *Match) finish(winner game.Role, kind WinKind) {
	m.status = GameOver
	m.result = Result{Winner: winner, Kind: kind}
	m.endedAt = m.now()
}

// Encode renders the move record: space separated tokens followed by a
// terminator, "G" for give-up, "T" for timeout, nothing otherwise.
func (m *Match) Encode() string {
	tokens := make([]string, 0, len(m.moves)+1)
	for _, pos := range m.moves {
		tokens = append(tokens, pos.String())
	}
	switch m.result.Kind {
	case WinGiveUp:
		tokens = append(tokens, "G")
	case WinTimeout:
		tokens = append(tokens, "T")
	default:
		tokens = append(tokens, "")
	}
	return strings.Join(tokens, " ")
}
