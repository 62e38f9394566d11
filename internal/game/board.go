package game

// Board maps every cell to the role occupying it. It is a value type:
// copying a Board yields an independent snapshot.
type Board [Size * Size]Role

func index(p Position) int {
	return p.X*Size + p.Y
}

// At returns the occupant of p. It panics if p is off the board; callers
// validate positions first.
func (b Board) At(p Position) Role {
	return b[index(p)]
}

// Set places r at p.
func (b *Board) Set(p Position, r Role) {
	b[index(p)] = r
}

// HasLiberty reports whether the group of like-colored stones containing p
// touches at least one empty cell.
func (b Board) HasLiberty(p Position) bool {
	color := b.At(p)
	var visited [Size * Size]bool
	visited[index(p)] = true
	stack := []Position{p}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, n := range Neighbors(cur) {
			occupant := b.At(n)
			if occupant == None {
				return true
			}
			if occupant == color && !visited[index(n)] {
				visited[index(n)] = true
				stack = append(stack, n)
			}
		}
	}
	return false
}

// CapturesAt reports whether the stone at p leaves its own group, or any
// adjacent opposing group, without liberties. Capturing and self-capture
// are not told apart here.
func (b Board) CapturesAt(p Position) bool {
	if !b.HasLiberty(p) {
		return true
	}
	opponent := b.At(p).Opponent()
	for _, n := range Neighbors(p) {
		if b.At(n) == opponent && !b.HasLiberty(n) {
			return true
		}
	}
	return false
}

// Rows returns the board as rows of role ids, indexed [x][y].
func (b Board) Rows() [Size][Size]int {
	var out [Size][Size]int
	for x := 0; x < Size; x++ {
		for y := 0; y < Size; y++ {
			out[x][y] = int(b.At(Position{X: x, Y: y}))
		}
	}
	return out
}

func (b Board) String() string {
	buf := make([]byte, 0, Size*(Size+1))
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			switch b.At(Position{X: x, Y: y}) {
			case Black:
				buf = append(buf, 'B')
			case White:
				buf = append(buf, 'W')
			default:
				buf = append(buf, '-')
			}
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}
