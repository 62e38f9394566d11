package game

import (
	"errors"
	"fmt"
	"strconv"
)

// Size is the side length of the square board.
const Size = 9

// Role identifies who owns a stone or whose turn it is.
// None marks an empty cell and is never an assignable identity.
type Role int8

const (
	None  Role = 0
	Black Role = 1
	White Role = -1
)

// Opponent returns the opposing role. The opponent of None is None.
func (r Role) Opponent() Role {
	return -r
}

func (r Role) String() string {
	switch r {
	case Black:
		return "BLACK"
	case White:
		return "WHITE"
	default:
		return "NONE"
	}
}

// Code returns the short wire form of the role ("b", "w" or "").
func (r Role) Code() string {
	switch r {
	case Black:
		return "b"
	case White:
		return "w"
	default:
		return ""
	}
}

// ParseRole reads the short wire form. Anything unknown is None.
func ParseRole(s string) Role {
	switch s {
	case "b":
		return Black
	case "w":
		return White
	default:
		return None
	}
}

var ErrInvalidPosition = errors.New("invalid position")

// Position is a cell on the board. X is the column, Y the row.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// NoPosition stands for "no move yet".
var NoPosition = Position{X: -1, Y: -1}

// Valid reports whether both coordinates lie on the board.
func (p Position) Valid() bool {
	return p.X >= 0 && p.Y >= 0 && p.X < Size && p.Y < Size
}

// String returns the coordinate token, column letter then 1-based row, e.g. "E5".
func (p Position) String() string {
	if !p.Valid() {
		return "-"
	}
	return string(rune('A'+p.X)) + strconv.Itoa(p.Y+1)
}

// ParsePosition decodes a coordinate token produced by Position.String.
func ParsePosition(token string) (Position, error) {
	if len(token) < 2 {
		return NoPosition, fmt.Errorf("%w: %q", ErrInvalidPosition, token)
	}
	col := token[0]
	if col < 'A' || col > 'Z' {
		return NoPosition, fmt.Errorf("%w: bad column in %q", ErrInvalidPosition, token)
	}
	row, err := strconv.Atoi(token[1:])
	if err != nil {
		return NoPosition, fmt.Errorf("%w: bad row in %q", ErrInvalidPosition, token)
	}
	p := Position{X: int(col - 'A'), Y: row - 1}
	if !p.Valid() {
		return NoPosition, fmt.Errorf("%w: %q is off the board", ErrInvalidPosition, token)
	}
	// Signs and leading zeros would give a cell a second spelling.
	if p.String() != token {
		return NoPosition, fmt.Errorf("%w: %q is not canonical", ErrInvalidPosition, token)
	}
	return p, nil
}

var deltas = [4]Position{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// Neighbors returns the orthogonally adjacent cells that are on the board.
func Neighbors(p Position) []Position {
	out := make([]Position, 0, 4)
	for _, d := range deltas {
		n := Position{X: p.X + d.X, Y: p.Y + d.Y}
		if n.Valid() {
			out = append(out, n)
		}
	}
	return out
}

// Positions returns every cell of the board in index order.
func Positions() []Position {
	out := make([]Position, 0, Size*Size)
	for x := 0; x < Size; x++ {
		for y := 0; y < Size; y++ {
			out = append(out, Position{X: x, Y: y})
		}
	}
	return out
}
