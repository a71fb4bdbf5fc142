package toncell

import "math/bits"

// LevelMask tracks which of the three possible merkle levels above level
// zero are active for a cell. A set bit i means level i+1 contributes an
// independent hash. Ordinary cells inherit the OR of their children's
// masks; exotic kinds store or shift theirs (see finalizeExotic).
type LevelMask uint8

const maxLevel = 3

// Level is the highest active level, 0..3.
func (m LevelMask) Level() int {
	return bits.Len8(uint8(m))
}

// HashIndex is the number of active levels at or below this mask, which is
// also the index of the mask's own hash within a cell's hash list.
func (m LevelMask) HashIndex() int {
	return bits.OnesCount8(uint8(m))
}

// Apply truncates the mask to the levels visible at or below level.
func (m LevelMask) Apply(level int) LevelMask {
	return m & LevelMask(1<<level-1)
}

// IsSignificant reports whether a distinct hash exists for level. Level 0
// always has one; level i > 0 only when bit i-1 is set.
func (m LevelMask) IsSignificant(level int) bool {
	return level == 0 || m>>(level-1)&1 != 0
}
