package dagsched

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// GeneratorConfig shapes a random layered workflow.
type GeneratorConfig struct {
	Tasks     int     // compute tasks
	MaxWidth  int     // compute tasks per layer, at most
	MeanFlops float64 // compute amounts are uniform in [MeanFlops/2, 3*MeanFlops/2]
	MeanBytes float64 // transfer sizes are exponential with this mean
	// EdgeProb is the probability that a task of a layer depends on a given
	// task of the previous layer. Every task gets at least one parent.
	EdgeProb float64
	Seed     uint64
}

// Generate builds a random workflow. The same config always yields the
// same workflow.
func Generate(cfg GeneratorConfig) (*Workflow, error) {
	if cfg.Tasks <= 0 {
		return nil, fmt.Errorf("generator: tasks must be positive, got %d", cfg.Tasks)
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = 1
	}
	if cfg.EdgeProb < 0 || cfg.EdgeProb > 1 {
		return nil, fmt.Errorf("generator: edge probability must be in [0, 1], got %g", cfg.EdgeProb)
	}
	if cfg.MeanFlops <= 0 || cfg.MeanBytes <= 0 {
		return nil, fmt.Errorf("generator: mean flops and bytes must be positive")
	}
	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	rng := rand.New(src)
	flops := distuv.Uniform{Min: cfg.MeanFlops / 2, Max: 3 * cfg.MeanFlops / 2, Src: src}
	bytes := distuv.Exponential{Rate: 1 / cfg.MeanBytes, Src: src}
	edge := distuv.Bernoulli{P: cfg.EdgeProb, Src: src}

	w := &Workflow{Name: fmt.Sprintf("random-%d-%d", cfg.Tasks, cfg.Seed)}
	var previous []string
	for made, layer := 0, 0; made < cfg.Tasks; layer++ {
		width := 1 + rng.IntN(cfg.MaxWidth)
		if layer == 0 {
			width = 1
		}
		width = min(width, cfg.Tasks-made)
		current := make([]string, 0, width)
		for i := 0; i < width; i++ {
			name := fmt.Sprintf("t%d_%d", layer, i)
			var parents []string
			for _, p := range previous {
				if edge.Rand() == 1 {
					parents = append(parents, p)
				}
			}
			if len(parents) == 0 && len(previous) > 0 {
				parents = append(parents, previous[rng.IntN(len(previous))])
			}
			var inputs []string
			for _, p := range parents {
				tr := fmt.Sprintf("%s->%s", p, name)
				w.Tasks = append(w.Tasks, TaskSpec{
					Name:    tr,
					Type:    TaskTransfer,
					Bytes:   bytes.Rand(),
					Parents: []string{p},
				})
				inputs = append(inputs, tr)
			}
			w.Tasks = append(w.Tasks, TaskSpec{
				Name:    name,
				Type:    TaskCompute,
				Flops:   flops.Rand(),
				Parents: inputs,
			})
			current = append(current, name)
			made++
		}
		previous = current
	}
	return w, nil
}
