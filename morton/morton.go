// Package morton interleaves column and row numbers into Z-order codes.
//
// Within one level of the quadtree the offset of a tile from the first tile on that level
// is exactly such a code: every quadrant digit contributes one column bit (right half)
// and one row bit (bottom half), most significant pair first.
//
//	digit  pair  col row
//	  1    0b00   0   0
//	  2    0b01   1   0
//	  3    0b10   0   1
//	  4    0b11   1   1
package morton

import (
	"fmt"
	"math"
)

type Z = uint

var (
	masks = [...]uint{
		0b0101010101010101010101010101010101010101010101010101010101010101,
		0b0011001100110011001100110011001100110011001100110011001100110011,
		0b0000111100001111000011110000111100001111000011110000111100001111,
		0b0000000011111111000000001111111100000000111111110000000011111111,
		0b0000000000000000111111111111111100000000000000001111111111111111,
		0b0000000000000000000000000000000011111111111111111111111111111111,
	}
	shifts = [...]uint{0, 1, 2, 4, 8, 16}
)

// ToZ interleaves col (even bits) and row (odd bits).
// ok is false if either does not fit in 32 bits.
func ToZ(col, row uint) (z Z, ok bool) {
	ok = col <= math.MaxUint32 && row <= math.MaxUint32
	for i := 4; i >= 0; i-- {
		col = (col | (col << shifts[i+1])) & masks[i]
		row = (row | (row << shifts[i+1])) & masks[i]
	}
	return col | (row << 1), ok
}

func MustToZ(col, row uint) Z {
	z, ok := ToZ(col, row)
	if !ok {
		panic(fmt.Errorf(`cannot make Z out of %v and %v`, col, row))
	}
	return z
}

// FromZ splits z back into its column and row.
func FromZ(z Z) (col, row uint) {
	col = z
	row = z >> 1
	for i := 0; i <= 5; i++ {
		col = (col | (col >> shifts[i])) & masks[i]
		row = (row | (row >> shifts[i])) & masks[i]
	}
	return col, row
}
