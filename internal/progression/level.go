// Package progression holds the pure numeric rules of the reward engine:
// the level curve, point bounds, clan contribution rounding and calendar-day
// arithmetic for streaks.
package progression

import "math"

// DefaultXPPerLevel is used when a classroom has no valid curve parameter.
const DefaultXPPerLevel = 100

// Level maps accumulated xp to a level on a triangular curve where reaching
// level N costs xpPerLevel*N*(N-1)/2 in total. The result is at least 1.
func Level(xp, xpPerLevel int) int {
	if xpPerLevel <= 0 {
		xpPerLevel = DefaultXPPerLevel
	}
	if xp <= 0 {
		return 1
	}
	level := int(math.Floor((1 + math.Sqrt(1+8*float64(xp)/float64(xpPerLevel))) / 2))
	if level < 1 {
		level = 1
	}
	// sqrt may land a hair off an exact boundary
	for XPForLevel(level+1, xpPerLevel) <= xp {
		level++
	}
	for level > 1 && XPForLevel(level, xpPerLevel) > xp {
		level--
	}
	return level
}

// XPForLevel returns the total xp needed to reach level.
func XPForLevel(level, xpPerLevel int) int {
	if xpPerLevel <= 0 {
		xpPerLevel = DefaultXPPerLevel
	}
	if level <= 1 {
		return 0
	}
	return xpPerLevel * level * (level - 1) / 2
}

// LevelProgress describes where xp sits inside its level band.
type LevelProgress struct {
	Level         int `json:"level"`
	CurrentXP     int `json:"current_xp"`
	LevelStartXP  int `json:"level_start_xp"`
	NextLevelXP   int `json:"next_level_xp"`
	XPIntoLevel   int `json:"xp_into_level"`
	XPToNextLevel int `json:"xp_to_next_level"`
}

// Progress computes the level band for xp.
func Progress(xp, xpPerLevel int) LevelProgress {
	level := Level(xp, xpPerLevel)
	start := XPForLevel(level, xpPerLevel)
	next := XPForLevel(level+1, xpPerLevel)
	into := xp - start
	if into < 0 {
		into = 0
	}
	return LevelProgress{
		Level:         level,
		CurrentXP:     xp,
		LevelStartXP:  start,
		NextLevelXP:   next,
		XPIntoLevel:   into,
		XPToNextLevel: next - xp,
	}
}

// NextLevel returns the level a student should hold after gaining xpDelta.
// Levels are sticky: a non-positive delta never changes the stored level, and
// the result is never below storedLevel.
func NextLevel(storedLevel, newXP, xpDelta, xpPerLevel int) (level int, leveledUp bool) {
	if xpDelta <= 0 {
		return storedLevel, false
	}
	computed := Level(newXP, xpPerLevel)
	if computed > storedLevel {
		return computed, true
	}
	return storedLevel, false
}
