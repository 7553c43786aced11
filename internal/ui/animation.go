package ui

import (
	"math"
	"time"
)

// scrollDuration is how long the view takes to settle on a new line.
const scrollDuration = 350 * time.Millisecond

// AnimState eases the view toward the engine's scroll target. Positions are in
// line units; the fractional part is how far the view sits between two lines.
type AnimState struct {
	ScrollPosition float64
	TargetScroll   float64
	StartScroll    float64
	Transition     float64
	GlowIntensity  float64
	ShimmerPhase   float64
	settled        bool
}

func (a *AnimState) Reset() {
	*a = AnimState{}
}

// SetTarget starts an eased transition from wherever the view is now.
func (a *AnimState) SetTarget(target float64) {
	if a.settled && target == a.TargetScroll {
		return
	}
	if !a.settled {
		a.Jump(target)
		return
	}
	a.StartScroll = a.ScrollPosition
	a.TargetScroll = target
	a.Transition = 0
	a.GlowIntensity = 1.0
}

// Jump moves the view without easing, for seeks and fresh timelines.
func (a *AnimState) Jump(target float64) {
	a.ScrollPosition = target
	a.StartScroll = target
	a.TargetScroll = target
	a.Transition = 1
	a.settled = true
}

// Update advances one frame of frameInterval.
func (a *AnimState) Update(tickCount int, frameInterval time.Duration) {
	if frameInterval <= 0 {
		frameInterval = 33 * time.Millisecond
	}

	if a.Transition < 1.0 {
		a.Transition = math.Min(1.0, a.Transition+float64(frameInterval)/float64(scrollDuration))
	}
	a.ScrollPosition = lerp(a.StartScroll, a.TargetScroll, easeOutCubic(a.Transition))

	if a.GlowIntensity > 0 {
		a.GlowIntensity *= 0.85
		if a.GlowIntensity < 0.01 {
			a.GlowIntensity = 0
		}
	}

	a.ShimmerPhase = float64(tickCount) * 0.05
}

func (a *AnimState) Settled() bool {
	return a.Transition >= 1.0
}

func easeOutCubic(t float64) float64 {
	if t >= 1 {
		return 1
	}
	if t <= 0 {
		return 0
	}
	return 1 - math.Pow(1-t, 3)
}

func lerp(a float64, b float64, t float64) float64 {
	return a + (b-a)*t
}
