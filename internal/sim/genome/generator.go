package genome

import (
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// MaxScore normalizes feedback scores before they become survival weights.
const MaxScore = 7.0

// ErrZeroFitness is returned when no parent carries positive fitness, so
// survival weights would divide by zero.
var ErrZeroFitness = errors.New("genome: total parent fitness is zero")

// Parent is a genome from a previous run together with the score it earned.
type Parent struct {
	Slot   int
	Genome Genome
	Score  float64
}

// Generator produces genomes, either fresh or bred from scored parents.
// It is not safe for concurrent use; the random source is shared.
type Generator struct {
	rng *rand.Rand
	log *log.Logger
}

func NewGenerator(rng *rand.Rand, logger *log.Logger) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{rng: rng, log: logger}
}

// Next returns the genome for slot. With no parents the genome is drawn from
// the initialization distributions; otherwise one parent is picked in
// proportion to its score and mutated.
func (g *Generator) Next(slot int, parents []Parent, mutationRate float64) (Genome, error) {
	if len(parents) == 0 {
		return g.Randomize(), nil
	}
	scores := make([]float64, len(parents))
	for i, p := range parents {
		scores[i] = p.Score
	}
	weights, err := SurvivalWeights(scores)
	if err != nil {
		return Genome{}, fmt.Errorf("slot %d: %w", slot, err)
	}
	for i, w := range weights {
		g.log.Printf("slot %d: parent slot %d survival %.1f%%", slot, parents[i].Slot, 100*w)
	}
	idx := WeightedIndex(weights, g.rng.Float64())
	return g.Mutate(parents[idx].Genome, mutationRate), nil
}

// Randomize draws every gene independently from its initialization distribution.
func (g *Generator) Randomize() Genome {
	var out Genome
	for _, gene := range Genes {
		g.draw(&out, gene)
	}
	return out
}

// Mutate copies parent, redrawing each gene with probability rate from the
// same distribution used at initialization.
func (g *Generator) Mutate(parent Genome, rate float64) Genome {
	child := parent
	for _, gene := range Genes {
		if g.rng.Float64() < rate {
			g.log.Printf("mutation: changing %s", gene.Name)
			g.draw(&child, gene)
			continue
		}
		g.log.Printf("copied %s", gene.Name)
	}
	return child
}

func (g *Generator) draw(dst *Genome, gene Gene) {
	if gene.Bool {
		b := distuv.Bernoulli{P: 0.5, Src: g.rng}
		*dst.boolField(gene.Name) = b.Rand() == 1
		return
	}
	n := distuv.Normal{Mu: gene.Mean, Sigma: gene.Sigma, Src: g.rng}
	*dst.intField(gene.Name) = int(math.Round(n.Rand()))
}

// SurvivalWeights normalizes scores into selection probabilities:
// (s/MaxScore) / sum(s/MaxScore). Negative scores carry no weight.
func SurvivalWeights(scores []float64) ([]float64, error) {
	var denom float64
	for _, s := range scores {
		denom += math.Max(s, 0) / MaxScore
	}
	if denom == 0 || math.IsNaN(denom) {
		return nil, ErrZeroFitness
	}
	weights := make([]float64, len(scores))
	for i, s := range scores {
		weights[i] = (math.Max(s, 0) / MaxScore) / denom
	}
	return weights, nil
}

// WeightedIndex maps a uniform draw u in [0,1) onto weights: the result is the
// first index whose cumulative weight exceeds u*total.
func WeightedIndex(weights []float64, u float64) int {
	if len(weights) == 0 {
		return -1
	}
	cum := make([]float64, len(weights))
	var total float64
	for i, w := range weights {
		total += w
		cum[i] = total
	}
	point := u * total
	idx := sort.Search(len(cum), func(i int) bool { return cum[i] > point })
	if idx == len(cum) {
		idx = len(cum) - 1
		for idx > 0 && weights[idx] <= 0 {
			idx--
		}
	}
	return idx
}
