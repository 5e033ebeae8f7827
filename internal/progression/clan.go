package progression

import "math"

// ClanContribution returns the share of xpGained credited to the clan pool.
// Raw shares under half a point are dropped; anything due is at least 1.
func ClanContribution(xpGained, percentage int) int {
	if xpGained <= 0 || percentage <= 0 {
		return 0
	}
	if percentage > 100 {
		percentage = 100
	}
	raw := float64(xpGained) * float64(percentage) / 100
	if raw < 0.5 {
		return 0
	}
	contribution := int(math.Round(raw))
	if contribution < 1 {
		contribution = 1
	}
	return contribution
}
