package fitness

import (
	"errors"

	"gonum.org/v1/gonum/stat"
)

// ErrNoFeedback is returned by Human when the run carries no player rating.
var ErrNoFeedback = errors.New("fitness: run has no player-reported feedback")

// Observation is what a feedback source needs from a completed run.
type Observation struct {
	AveragePayoff  float64
	PlayerFeedback *int
}

// Source scores one completed run. It is chosen once per experiment.
type Source interface {
	Name() string
	Score(obs Observation, lastFeedback int) (int, error)
}

// Automated rates bot runs by comparing each payoff with the previous one.
type Automated struct {
	Evaluator Evaluator

	lastPay float64
}

func NewAutomated(e Evaluator) *Automated { return &Automated{Evaluator: e} }

func (*Automated) Name() string { return "automated" }

func (a *Automated) Score(obs Observation, lastFeedback int) (int, error) {
	score := a.Evaluator.Score(obs.AveragePayoff, a.lastPay, lastFeedback)
	a.lastPay = obs.AveragePayoff
	return score, nil
}

// LastPay is the payoff the next Score call compares against.
func (a *Automated) LastPay() float64 { return a.lastPay }

// Human takes the rating a participant reported after the run.
type Human struct{}

func (Human) Name() string { return "human" }

func (Human) Score(obs Observation, _ int) (int, error) {
	if obs.PlayerFeedback == nil {
		return 0, ErrNoFeedback
	}
	return *obs.PlayerFeedback, nil
}

// AveragePayoff is the mean player payoff of a run; zero when nobody played.
func AveragePayoff(payoffs []float64) float64 {
	if len(payoffs) == 0 {
		return 0
	}
	return stat.Mean(payoffs, nil)
}
