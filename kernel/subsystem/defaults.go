package subsystem

import (
	"github.com/nmxmxh/kernelcore/kernel/foundation"
	"github.com/nmxmxh/kernelcore/kernel/processor"
	"github.com/nmxmxh/kernelcore/kernel/scheduler"
)

// defaultHooks wires the canonical build: router, queue, and listener
// wrap the subsystem's own always-present instances; processor composes
// them; scheduler resolves the processor as its Ticker during Init (see
// scheduler.NewDeferred). This is the "canonical default hooks" referred
// to in spec §8's S1-S7 scenarios.
func (s *Subsystem) defaultHooks() []foundation.Hook {
	return []foundation.Hook{
		{
			Kind: "router",
			Fn: func(ctx foundation.Context, api *foundation.API, host foundation.Host) (foundation.Facet, error) {
				return s.routes, nil
			},
		},
		{
			Kind: "queue",
			Fn: func(ctx foundation.Context, api *foundation.API, host foundation.Host) (foundation.Facet, error) {
				return s.queue, nil
			},
		},
		{
			Kind: "listener",
			Fn: func(ctx foundation.Context, api *foundation.API, host foundation.Host) (foundation.Facet, error) {
				return s.listeners, nil
			},
		},
		{
			Kind:         "processor",
			Required:     []string{"router", "queue", "listener"},
			ContractName: processor.ContractName,
			Fn: func(ctx foundation.Context, api *foundation.API, host foundation.Host) (foundation.Facet, error) {
				s.mu.RLock()
				sender, scopeCheck, synchronous := s.sender, s.scopeCheck, s.cfg.Synchronous
				s.mu.RUnlock()
				return processor.New(s.routes, s.listeners, s.queue, synchronous, sender, scopeCheck), nil
			},
		},
		{
			Kind:     "scheduler",
			Required: []string{"processor"},
			Fn: func(ctx foundation.Context, api *foundation.API, host foundation.Host) (foundation.Facet, error) {
				lenFn := func() int { return s.queue.Len() }
				// scheduler.strategy=priority only has teeth if the queue
				// it drains dequeues by priority too.
				if s.cfg.SchedulerStrategy == scheduler.StrategyPriority {
					s.queue.SetPriority(true)
				}
				return scheduler.NewDeferred("scheduler", "processor", lenFn, s.cfg.SchedulerPriority, s.cfg.SchedulerStrategy, s.cfg.MaxMessagesPerSlice), nil
			},
		},
	}
}
