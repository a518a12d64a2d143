package genome

import "fmt"

// Genome is the configuration record for one simulation run.
// Integer genes are not clamped; out-of-domain values are rejected when a run starts.
type Genome struct {
	TimePerRound        int  `json:"time_per_round" yaml:"time_per_round" csv:"time_per_round"`
	ShowChatroom        bool `json:"show_chatroom" yaml:"show_chatroom" csv:"show_chatroom"`
	NumFood             int  `json:"num_food" yaml:"num_food" csv:"num_food"`
	RespawnFood         bool `json:"respawn_food" yaml:"respawn_food" csv:"respawn_food"`
	Rows                int  `json:"rows" yaml:"rows" csv:"rows"`
	Columns             int  `json:"columns" yaml:"columns" csv:"columns"`
	BlockSize           int  `json:"block_size" yaml:"block_size" csv:"block_size"`
	BackgroundAnimation bool `json:"background_animation" yaml:"background_animation" csv:"background_animation"`
}

// Gene describes the initialization distribution of one named genome field.
// Boolean genes are Bernoulli(0.5); integer genes are N(Mean, Sigma) rounded.
type Gene struct {
	Name  string
	Bool  bool
	Mean  float64
	Sigma float64
}

// Genes lists every field in a fixed order. Mutation walks this order, so a
// seeded source reproduces the same offspring.
var Genes = []Gene{
	{Name: "time_per_round", Mean: 100, Sigma: 15},
	{Name: "show_chatroom", Bool: true},
	{Name: "num_food", Mean: 10, Sigma: 2},
	{Name: "respawn_food", Bool: true},
	{Name: "rows", Mean: 40, Sigma: 5},
	{Name: "columns", Mean: 40, Sigma: 5},
	{Name: "block_size", Mean: 7, Sigma: 3},
	{Name: "background_animation", Bool: true},
}

func (g *Genome) intField(name string) *int {
	switch name {
	case "time_per_round":
		return &g.TimePerRound
	case "num_food":
		return &g.NumFood
	case "rows":
		return &g.Rows
	case "columns":
		return &g.Columns
	case "block_size":
		return &g.BlockSize
	}
	return nil
}

func (g *Genome) boolField(name string) *bool {
	switch name {
	case "show_chatroom":
		return &g.ShowChatroom
	case "respawn_food":
		return &g.RespawnFood
	case "background_animation":
		return &g.BackgroundAnimation
	}
	return nil
}

// Get returns the value of a named gene.
func (g Genome) Get(name string) (any, error) {
	if p := g.intField(name); p != nil {
		return *p, nil
	}
	if p := g.boolField(name); p != nil {
		return *p, nil
	}
	return nil, fmt.Errorf("unknown gene %q", name)
}

// Map returns the genome as a name -> value mapping.
func (g Genome) Map() map[string]any {
	out := make(map[string]any, len(Genes))
	for _, gene := range Genes {
		v, _ := g.Get(gene.Name)
		out[gene.Name] = v
	}
	return out
}
