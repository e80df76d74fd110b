package playback

import (
	"math"
	"time"
)

const (
	RampDuration     = 3200 * time.Millisecond
	RampSteps        = 64
	DefaultRampShape = 2.0

	minStartRate = 0.01
)

// Rate converts a semitone offset into a playback rate.
func Rate(semitones float64) float64 {
	return math.Pow(2, semitones/12)
}

// EndRate is the rate an intonation ramp converges to. Downward intonation
// bends less than upward intonation of the same magnitude.
func EndRate(startRate, intonation float64) float64 {
	if intonation >= 0 {
		return startRate * (1 + intonation*3)
	}
	return startRate * (1 - ((math.Sqrt(math.Abs(1-intonation*3)) - 1) * 0.75))
}

// Ease maps t in [0,1] through the ramp curve: shape < 0 eases in, shape > 0
// eases out, zero is linear.
func Ease(t, shape float64) float64 {
	switch {
	case shape < 0:
		return math.Pow(t, 1-shape)
	case shape > 0:
		return 1 - math.Pow(1-t, 1+shape)
	default:
		return t
	}
}

// RampRate interpolates geometrically between start and end.
func RampRate(start, end, t, shape float64) float64 {
	return start * math.Pow(end/start, Ease(t, shape))
}

// rampTask steps a rate from start to end on the scheduler. Each step
// schedules the next, so cancel only has one timer to stop.
type rampTask struct {
	sched    Scheduler
	apply    func(rate float64) bool
	start    float64
	end      float64
	shape    float64
	step     int
	interval time.Duration
	timer    Timer
	done     bool
}

func startRamp(sched Scheduler, rate, intonation, shape float64, apply func(rate float64) bool) *rampTask {
	start := math.Max(rate, minStartRate)
	r := &rampTask{
		sched:    sched,
		apply:    apply,
		start:    start,
		end:      EndRate(start, intonation),
		shape:    shape,
		interval: RampDuration / RampSteps,
	}
	r.schedule()
	return r
}

func (r *rampTask) schedule() {
	r.timer = r.sched.After(r.interval, r.tick)
}

func (r *rampTask) tick() {
	if r.done {
		return
	}
	r.step++
	rate := RampRate(r.start, r.end, float64(r.step)/RampSteps, r.shape)
	if !r.apply(rate) || r.step >= RampSteps {
		r.done = true
		return
	}
	r.schedule()
}

func (r *rampTask) cancel() {
	if r == nil || r.done {
		return
	}
	r.done = true
	if r.timer != nil {
		r.timer.Stop()
	}
}
