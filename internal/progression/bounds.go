package progression

// ApplyHP adds delta to hp and clamps the result to maxHP. The lower bound is
// zero unless allowNegative is set. A non-positive maxHP disables the upper
// bound.
func ApplyHP(hp, delta, maxHP int, allowNegative bool) int {
	next := hp + delta
	if maxHP > 0 && next > maxHP {
		next = maxHP
	}
	if !allowNegative && next < 0 {
		next = 0
	}
	return next
}
