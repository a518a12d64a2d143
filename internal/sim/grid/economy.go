package grid

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrDonationDisabled = errors.New("grid: donation mode disabled")
	ErrNoRecipients     = errors.New("grid: donation has no recipients")
	ErrInsufficient     = errors.New("grid: donor score below amount")
)

// ApplyTax charges every player Tax points. Scores never drop below zero.
func (g *Grid) ApplyTax() {
	for _, p := range g.Players {
		p.Score = math.Max(p.Score-g.Config.Tax, 0)
	}
}

// ApplyFrequencyDependence pays each player according to how common its
// color is: fermi(beta, relative frequency, 0.5) * payoff rate.
func (g *Grid) ApplyFrequencyDependence() {
	if g.Config.FrequencyDependence == 0 || len(g.Players) == 0 {
		return
	}
	abundance := map[int]int{}
	for _, p := range g.Players {
		abundance[p.ColorIdx]++
	}
	n := float64(len(g.Players))
	for _, p := range g.Players {
		freq := float64(abundance[p.ColorIdx]) / n
		payoff := fermi(g.Config.FrequencyDependence, freq, 0.5) * g.Config.FrequencyDependentPayoffRate
		p.Score = math.Max(p.Score+payoff, 0)
	}
}

// ApplyContagion lets each player adopt the strictly most common color among
// the other players within Contagion cells (Chebyshev distance). Decisions
// are taken against the colors at the start of the pass.
func (g *Grid) ApplyContagion() {
	if g.Config.Contagion <= 0 {
		return
	}
	players := g.PlayersInOrder()
	before := make(map[string]int, len(players))
	for _, p := range players {
		before[p.ID] = p.ColorIdx
	}
	for _, p := range players {
		counts := map[int]int{}
		for _, q := range players {
			if q.ID == p.ID || chebyshev(p.Position, q.Position) > g.Config.Contagion {
				continue
			}
			counts[before[q.ID]]++
		}
		best, bestN, tie := -1, 0, false
		for c := 0; c < g.Config.NumColors; c++ {
			switch n := counts[c]; {
			case n > bestN:
				best, bestN, tie = c, n, false
			case n == bestN && n > 0:
				tie = true
			}
		}
		if best >= 0 && !tie && best != before[p.ID] && bestN > counts[before[p.ID]] {
			p.ColorIdx = best
		}
	}
}

func chebyshev(a, b Position) int {
	dr, dc := abs(a[0]-b[0]), abs(a[1]-b[1])
	if dr > dc {
		return dr
	}
	return dc
}

// ComputePayoffs sets each player's payoff to
// total points * group share * in-group share * dollars per point, where the
// shares are power-normalized with the inequality exponents (1 = proportional).
func (g *Grid) ComputePayoffs() {
	players := g.PlayersInOrder()
	if len(players) == 0 {
		return
	}
	var total float64
	groups := map[int][]*Player{}
	var order []int
	for _, p := range players {
		total += p.Score
		if _, ok := groups[p.ColorIdx]; !ok {
			order = append(order, p.ColorIdx)
		}
		groups[p.ColorIdx] = append(groups[p.ColorIdx], p)
	}
	groupScores := make([]float64, len(order))
	for i, c := range order {
		for _, p := range groups[c] {
			groupScores[i] += p.Score
		}
	}
	groupShares := powerShares(groupScores, g.Config.InterGroupInequality)
	for i, c := range order {
		members := groups[c]
		scores := make([]float64, len(members))
		for j, p := range members {
			scores[j] = p.Score
		}
		inShares := powerShares(scores, g.Config.IntraGroupInequality)
		for j, p := range members {
			p.Payoff = total * groupShares[i] * inShares[j] * g.Config.DollarsPerPoint
		}
	}
}

func powerShares(values []float64, exp float64) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		out[i] = math.Pow(math.Max(v, 0), exp)
		sum += out[i]
	}
	if sum == 0 {
		for i := range out {
			out[i] = 1 / float64(len(out))
		}
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Payoffs returns player payoffs in join order.
func (g *Grid) Payoffs() []float64 {
	players := g.PlayersInOrder()
	out := make([]float64, len(players))
	for i, p := range players {
		out[i] = p.Payoff
	}
	return out
}

// Donation describes an applied transfer.
type Donation struct {
	DonorID     string   `json:"donor_id"`
	RecipientID string   `json:"recipient_id"`
	Amount      float64  `json:"amount"`
	Share       float64  `json:"share"`
	Recipients  []string `json:"recipients"`
}

// Donate moves amount points from the donor to a recipient: a player id
// (DonationIndividual), "group:<color_idx>" (DonationGroup) or "all"
// (DonationPublic). Shares are split evenly and rounded to cents when there is
// more than one recipient; the donor always pays the full amount and is
// counted among the recipients of its own group or of "all".
func (g *Grid) Donate(donorID, recipientID string, amount float64) (Donation, error) {
	donor := g.Players[donorID]
	if donor == nil {
		return Donation{}, fmt.Errorf("%w: donor %s", ErrUnknownPlayer, donorID)
	}
	var recipients []*Player
	switch {
	case strings.HasPrefix(recipientID, "group:"):
		if !g.Config.DonationGroup {
			return Donation{}, fmt.Errorf("%w: group", ErrDonationDisabled)
		}
		idx, err := strconv.Atoi(strings.TrimPrefix(recipientID, "group:"))
		if err != nil {
			return Donation{}, fmt.Errorf("%w: %q", ErrBadColor, recipientID)
		}
		recipients = g.PlayersWithColor(idx)
	case recipientID == "all":
		if !g.Config.DonationPublic {
			return Donation{}, fmt.Errorf("%w: public", ErrDonationDisabled)
		}
		recipients = g.PlayersInOrder()
	default:
		if !g.Config.DonationIndividual {
			return Donation{}, fmt.Errorf("%w: individual", ErrDonationDisabled)
		}
		if p := g.Players[recipientID]; p != nil {
			recipients = []*Player{p}
		}
	}
	if len(recipients) == 0 {
		return Donation{}, ErrNoRecipients
	}
	if amount <= 0 || donor.Score < amount {
		return Donation{}, fmt.Errorf("%w: score=%v amount=%v", ErrInsufficient, donor.Score, amount)
	}
	share := amount
	if len(recipients) > 1 {
		share = math.Round(amount/float64(len(recipients))*100) / 100
	}
	d := Donation{DonorID: donorID, RecipientID: recipientID, Amount: amount, Share: share}
	donor.Score -= amount
	for _, r := range recipients {
		r.Score += share
		d.Recipients = append(d.Recipients, r.ID)
	}
	return d, nil
}
