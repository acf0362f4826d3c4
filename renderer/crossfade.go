package renderer

import (
	"github.com/chewxy/math32"
)

// transitionTime is the fade in/out length at each end of a program's slot.
const transitionTime = 0.5

// CrossfadeFactor is the brightness multiplier for the final blit: 0 at the
// edges of the program's scheduled window, ramping to 1 over transitionTime
// seconds. A non-positive duration means the program plays indefinitely and
// never fades.
func CrossfadeFactor(elapsed, duration float64) float32 {
	if duration <= 0 {
		return 1
	}
	factor := float32(min(elapsed, duration-elapsed) / transitionTime)
	return math32.Max(0, math32.Min(1, factor))
}
