package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelStartsAtOne(t *testing.T) {
	for _, per := range []int{1, 50, 100, 250} {
		assert.Equal(t, 1, Level(0, per))
	}
	assert.Equal(t, 1, Level(-40, 100))
}

func TestLevelTriangularCurve(t *testing.T) {
	cases := []struct {
		xp    int
		level int
	}{
		{99, 1},
		{100, 2},
		{125, 2},
		{299, 2},
		{300, 3},
		{599, 3},
		{600, 4},
		{1000, 5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, Level(tc.xp, 100), "xp=%d", tc.xp)
	}
}

func TestLevelMonotonicAndRoundTrip(t *testing.T) {
	for _, per := range []int{1, 7, 100, 333} {
		prev := 1
		for xp := 0; xp <= 20000; xp += 3 {
			level := Level(xp, per)
			assert.GreaterOrEqual(t, level, prev)
			assert.LessOrEqual(t, XPForLevel(level, per), xp)
			assert.Greater(t, XPForLevel(level+1, per), xp)
			prev = level
		}
	}
}

func TestLevelInvalidCurveFallsBack(t *testing.T) {
	assert.Equal(t, Level(300, DefaultXPPerLevel), Level(300, 0))
	assert.Equal(t, XPForLevel(3, DefaultXPPerLevel), XPForLevel(3, -5))
}

func TestProgress(t *testing.T) {
	p := Progress(125, 100)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 100, p.LevelStartXP)
	assert.Equal(t, 300, p.NextLevelXP)
	assert.Equal(t, 25, p.XPIntoLevel)
	assert.Equal(t, 175, p.XPToNextLevel)
}

func TestNextLevelIsSticky(t *testing.T) {
	level, up := NextLevel(1, 125, 30, 100)
	assert.Equal(t, 2, level)
	assert.True(t, up)

	level, up = NextLevel(3, 50, -300, 100)
	assert.Equal(t, 3, level)
	assert.False(t, up)

	level, up = NextLevel(4, 350, 10, 100)
	assert.Equal(t, 4, level)
	assert.False(t, up)
}
