package game

// State is an immutable snapshot of a match position: the board, the role
// to move and the last placed stone.
type State struct {
	Board    Board
	Turn     Role
	LastMove Position
}

// NewState returns the empty starting position. Black moves first.
func NewState() State {
	return State{Turn: Black, LastMove: NoPosition}
}

// Next places a stone for the role to move at p and hands the turn over.
// p must be empty; the receiver is left untouched.
func (s State) Next(p Position) State {
	next := State{Board: s.Board, Turn: s.Turn.Opponent(), LastMove: p}
	next.Board.Set(p, s.Turn)
	return next
}

// LegalMoves returns every empty cell where the role to move can play
// without capturing anything, its own stones included.
func (s State) LegalMoves() []Position {
	var moves []Position
	for _, p := range Positions() {
		if s.Board.At(p) != None {
			continue
		}
		next := s.Next(p)
		if !next.Board.CapturesAt(p) {
			moves = append(moves, p)
		}
	}
	return moves
}

// IsOver returns the winner when the last move captured something, None
// otherwise. Any capture loses for the player who made it, so the winner is
// the role now to move.
func (s State) IsOver() Role {
	if s.LastMove.Valid() && s.Board.CapturesAt(s.LastMove) {
		return s.Turn
	}
	return None
}
