package fitness

import (
	"log"
	"math"
)

// Defaults match the experiment runner's fixed round length.
const (
	DefaultTimePerRound = 5.0
	DefaultStepRate     = 0.2

	boundaryEpsilon = 1e-9
)

// Evaluator turns a payoff sequence into an integer fun rating.
// TimePerRound is fixed per evaluator and independent of any genome.
type Evaluator struct {
	TimePerRound float64
	StepRate     float64

	Log *log.Logger
}

func NewEvaluator(logger *log.Logger) Evaluator {
	return Evaluator{TimePerRound: DefaultTimePerRound, StepRate: DefaultStepRate, Log: logger}
}

// Thresholds returns the absolute payoff bounds used before any prior payoff exists.
func (e Evaluator) Thresholds() (low, high float64) {
	return 0.01 * e.TimePerRound, 0.05 * e.TimePerRound
}

// Score rates currPay against lastPay. With no prior payoff the rating is
// 1, 3 or 5 by absolute thresholds; otherwise lastFeedback moves by one step
// when the relative change reaches StepRate.
func (e Evaluator) Score(currPay, lastPay float64, lastFeedback int) int {
	if e.Log != nil {
		e.Log.Printf("current pay: %v, last payout: %v", currPay, lastPay)
	}
	step := e.StepRate
	if step == 0 {
		step = DefaultStepRate
	}
	if lastPay == 0 {
		low, high := e.Thresholds()
		switch {
		case currPay <= low:
			return 1
		case currPay >= high:
			return 5
		default:
			return 3
		}
	}
	// Ratios like 12/10-1 land a few ulps under 0.2; treat them as on the boundary.
	if currPay/lastPay-1 >= step-boundaryEpsilon {
		return lastFeedback + 1
	}
	if math.Abs(currPay-lastPay)/lastPay < step-boundaryEpsilon {
		return lastFeedback
	}
	return lastFeedback - 1
}
