package mathhelp

import (
	"golang.org/x/exp/constraints"
)

func BetweenInc[T constraints.Integer | constraints.Float](f, p, q T) bool {
	if p <= q {
		return p <= f && f <= q
	}
	return q <= f && f <= p
}

func Pow2(n uint) uint {
	return 1 << n
}

func Pow4(n uint) uint {
	return 1 << (2 * n)
}

// LevelOffset is the flat index of the first tile on the given level of a quadtree,
// which is also the number of tiles on all shallower levels: (4^level - 1) / 3
func LevelOffset(level uint) uint {
	return (Pow4(level) - 1) / 3
}

// TileCount is the number of tiles in a full quadtree with levels 0 up to and including deepest
func TileCount(deepest uint) uint {
	return LevelOffset(deepest + 1)
}

// DeepestLevel returns the deepest level L of a full quadtree holding exactly count tiles,
// so count == (4^(L+1) - 1) / 3. ok is false when no such L exists.
func DeepestLevel[T constraints.Integer](count T) (level uint, ok bool) {
	if count <= 0 {
		return 0, false
	}
	c := uint64(count)
	// 4^32 no longer fits, so 31 is as deep as a count can describe
	for level = 0; level < 32; level++ {
		total := uint64(TileCount(level))
		if total == c {
			return level, true
		}
		if total > c {
			break
		}
	}
	return 0, false
}
