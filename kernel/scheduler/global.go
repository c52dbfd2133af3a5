package scheduler

import (
	"context"
	"sync"
)

// Processable is the minimal surface the global scheduler needs from a
// top-level subsystem: a name (for weighted strategy lookup), a priority
// share, and the ability to absorb a slice of milliseconds.
type Processable interface {
	Name() string
	SchedulerPriority() int
	Process(ctx context.Context, timeSliceMs int) Outcome
}

// Global fans a total time budget out across a set of top-level
// subsystems once per externally driven Tick call; spec §4.11 is explicit
// that there is no built-in loop.
type Global struct {
	mu       sync.Mutex
	strategy Strategy
	weights  map[string]float64 // subsystem name -> weight, for StrategyWeighted
	leftover int
	maxCarry int
}

// NewGlobal creates a global scheduler using strategy, with optional
// operator-supplied weights (used only under StrategyWeighted) and a cap
// on how many leftover milliseconds may carry into the next Tick.
func NewGlobal(strategy Strategy, weights map[string]float64, maxCarryMs int) *Global {
	return &Global{strategy: strategy, weights: weights, maxCarry: maxCarryMs}
}

// Tick partitions totalSliceMs (plus any carried leftover, up to the
// configured cap) across subsystems and calls Process on each with its
// share.
func (g *Global) Tick(ctx context.Context, totalSliceMs int, subsystems []Processable) map[string]Outcome {
	g.mu.Lock()
	budget := totalSliceMs + g.leftover
	g.mu.Unlock()

	shares := g.partition(budget, subsystems)

	results := make(map[string]Outcome, len(subsystems))
	spent := 0
	for _, s := range subsystems {
		share := shares[s.Name()]
		out := s.Process(ctx, share)
		results[s.Name()] = out
		spent += share
	}

	g.mu.Lock()
	leftover := budget - spent
	if leftover > g.maxCarry {
		leftover = g.maxCarry
	}
	if leftover < 0 {
		leftover = 0
	}
	g.leftover = leftover
	g.mu.Unlock()

	return results
}

// partition computes each subsystem's millisecond share of budget under
// the configured strategy. Under StrategyPriority, if every subsystem's
// priority is zero (the informally-specified edge case in spec §9), the
// fallback is an equal split across subsystems — the resolution adopted
// for that design question.
func (g *Global) partition(budget int, subsystems []Processable) map[string]int {
	shares := make(map[string]int, len(subsystems))
	if len(subsystems) == 0 {
		return shares
	}

	switch g.strategy {
	case StrategyPriority:
		total := 0
		for _, s := range subsystems {
			total += s.SchedulerPriority()
		}
		if total <= 0 {
			equal := budget / len(subsystems)
			for _, s := range subsystems {
				shares[s.Name()] = equal
			}
			return shares
		}
		for _, s := range subsystems {
			shares[s.Name()] = budget * s.SchedulerPriority() / total
		}
	case StrategyWeighted:
		total := 0.0
		for _, s := range subsystems {
			total += g.weights[s.Name()]
		}
		if total <= 0 {
			equal := budget / len(subsystems)
			for _, s := range subsystems {
				shares[s.Name()] = equal
			}
			return shares
		}
		for _, s := range subsystems {
			shares[s.Name()] = int(float64(budget) * g.weights[s.Name()] / total)
		}
	default: // StrategyFIFO / round-robin: equal share
		equal := budget / len(subsystems)
		for _, s := range subsystems {
			shares[s.Name()] = equal
		}
	}
	return shares
}
