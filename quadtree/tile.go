package quadtree

import (
	"fmt"
	"slices"

	"github.com/go-spatial/geom/slippy"

	"github.com/pdok/quadraster/morton"
)

// Tile identifies a node in the quadtree by its path from the root.
// Every digit picks a quadrant of its parent:
//
//	|-------|
//	| 1 | 2 |
//	|-------|
//	| 3 | 4 |
//	|-------|
//
// The root itself is Root (the empty path is treated the same).
type Tile string

const Root Tile = "root"

// MaxDepth is the deepest level a Tile can address with int indexes and 32 bit columns/rows.
const MaxDepth = 31

type step struct {
	next  byte
	carry bool // the parent has to move as well
}

var (
	rightSteps = map[byte]step{'1': {'2', false}, '2': {'1', true}, '3': {'4', false}, '4': {'3', true}}
	downSteps  = map[byte]step{'1': {'3', false}, '2': {'4', false}, '3': {'1', true}, '4': {'2', true}}
)

// ParseTile parses "root" or a string of quadrant digits.
func ParseTile(s string) (Tile, error) {
	if s == string(Root) {
		return Root, nil
	}
	if s == "" {
		return "", fmt.Errorf("%w: empty tile identity", ErrAddressing)
	}
	if len(s) > MaxDepth {
		return "", fmt.Errorf("%w: tile %q is deeper than %d", ErrAddressing, s, MaxDepth)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '1' || s[i] > '4' {
			return "", fmt.Errorf("%w: invalid quadrant digit %q in tile %q", ErrAddressing, s[i], s)
		}
	}
	return Tile(s), nil
}

// FromIndex turns a flat (breadth first) index into a Tile.
// Digits run from 1 to 4 instead of 0 to 3, so this is bijective base-4 numeration.
func FromIndex(n int) (Tile, error) {
	if n < 0 {
		return "", fmt.Errorf("%w: negative tile index %d", ErrAddressing, n)
	}
	if n == 0 {
		return Root, nil
	}
	digits := make([]byte, 0, MaxDepth)
	for n > 4 {
		d := n % 4
		n /= 4
		if d == 0 {
			d = 4
			n--
		}
		digits = append(digits, byte('0'+d))
	}
	digits = append(digits, byte('0'+n))
	slices.Reverse(digits)
	return Tile(digits), nil
}

func (t Tile) IsRoot() bool {
	return t == Root || t == ""
}

func (t Tile) String() string {
	if t.IsRoot() {
		return string(Root)
	}
	return string(t)
}

func (t Tile) Depth() int {
	if t.IsRoot() {
		return 0
	}
	return len(t)
}

// Index is the inverse of FromIndex.
func (t Tile) Index() (int, error) {
	if t.IsRoot() {
		return 0, nil
	}
	n := 0
	for i := 0; i < len(t); i++ {
		d := t[i]
		if d < '1' || d > '4' {
			return 0, fmt.Errorf("%w: invalid quadrant digit %q in tile %q", ErrAddressing, d, string(t))
		}
		n = n*4 + int(d-'0')
	}
	return n, nil
}

// Parent returns the tile one level up. ok is false for the root.
func (t Tile) Parent() (parent Tile, ok bool) {
	switch t.Depth() {
	case 0:
		return Root, false
	case 1:
		return Root, true
	default:
		return t[:len(t)-1], true
	}
}

// Children in quadrant order.
func (t Tile) Children() [4]Tile {
	prefix := string(t)
	if t.IsRoot() {
		prefix = ""
	}
	return [4]Tile{
		Tile(prefix + "1"),
		Tile(prefix + "2"),
		Tile(prefix + "3"),
		Tile(prefix + "4"),
	}
}

// Right returns the tile on the same level directly east of t.
func (t Tile) Right() (Tile, error) {
	return t.neighbour(rightSteps, "right")
}

// Down returns the tile on the same level directly south of t.
func (t Tile) Down() (Tile, error) {
	return t.neighbour(downSteps, "below")
}

func (t Tile) neighbour(steps map[byte]step, direction string) (Tile, error) {
	if t.IsRoot() {
		return "", fmt.Errorf("%w: root has no neighbour %s", ErrAddressing, direction)
	}
	digits := []byte(t)
	for i := len(digits) - 1; i >= 0; i-- {
		s, ok := steps[digits[i]]
		if !ok {
			return "", fmt.Errorf("%w: invalid quadrant digit %q in tile %q", ErrAddressing, digits[i], string(t))
		}
		digits[i] = s.next
		if !s.carry {
			return Tile(digits), nil
		}
	}
	return "", fmt.Errorf("%w: tile %v has no neighbour %s", ErrAddressing, t, direction)
}

// XY returns the column and row of t on its own level, counted from the upper left.
func (t Tile) XY() (col, row uint, err error) {
	if t.IsRoot() {
		return 0, 0, nil
	}
	if len(t) > MaxDepth {
		return 0, 0, fmt.Errorf("%w: tile %q is deeper than %d", ErrAddressing, string(t), MaxDepth)
	}
	var z morton.Z
	for i := 0; i < len(t); i++ {
		d := t[i]
		if d < '1' || d > '4' {
			return 0, 0, fmt.Errorf("%w: invalid quadrant digit %q in tile %q", ErrAddressing, d, string(t))
		}
		z = z<<2 | morton.Z(d-'1')
	}
	col, row = morton.FromZ(z)
	return col, row, nil
}

// Slippy addresses t as z/x/y, with y counting down from the top like slippy map tiles do.
func (t Tile) Slippy() (*slippy.Tile, error) {
	col, row, err := t.XY()
	if err != nil {
		return nil, err
	}
	return slippy.NewTile(uint(t.Depth()), col, row), nil
}
