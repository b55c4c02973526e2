// Package planner implements the consolidation and breaking strategies
// over the wallet's base-2 logarithmic denomination scale: a unit of
// value v is worth 2^v, so k units of value v combine into one unit of
// value v+log2(k) for k in {2,4,8}, and the reverse for breaking.
package planner

import (
	"context"
	"fmt"

	"rpow.dev/client/exchange"
	"rpow.dev/client/rpow"
)

// exchanger is the subset of *exchange.Orchestrator the planner depends
// on.
type exchanger interface {
	Exchange(ctx context.Context, ins, outs []int8) ([]rpow.Blob, error)
}

// counter is the subset of *wallet.Store the planner depends on.
type counter interface {
	CountByValue() (map[int8]int, error)
}

// swapSizes are the fan-in sizes the planner will ever request, largest
// first: 8 units combine three value-steps, 4 units two, 2 units one.
var swapSizes = []struct {
	count int8
	steps int8
}{
	{8, 3},
	{4, 2},
	{2, 1},
}

// Consolidate repeatedly merges small denominations into larger ones: for
// each value v from rpow.ValueMin upward, while the wallet holds enough
// units of v to perform the largest possible swap without exceeding
// rpow.ValueMax, it does so, via orch.Exchange.
func Consolidate(ctx context.Context, orch exchanger, w counter) error {
	for v := int(rpow.ValueMin); v <= int(rpow.ValueMax); v++ {
		for {
			counts, err := w.CountByValue()
			if err != nil {
				return fmt.Errorf("planner: consolidate: %w", err)
			}
			swapped, err := tryOneConsolidationSwap(ctx, orch, counts, int8(v))
			if err != nil {
				return err
			}
			if !swapped {
				break
			}
		}
	}
	return nil
}

func tryOneConsolidationSwap(ctx context.Context, orch exchanger, counts map[int8]int, v int8) (bool, error) {
	have := int8(counts[v])
	for _, s := range swapSizes {
		target := v + s.steps
		if have < s.count || int(target) > rpow.ValueMax {
			continue
		}
		ins := make([]int8, s.count)
		for i := range ins {
			ins[i] = v
		}
		if _, err := orch.Exchange(ctx, ins, []int8{target}); err != nil {
			return false, fmt.Errorf("planner: consolidate %dx%d -> 1x%d: %w", s.count, v, target, err)
		}
		return true, nil
	}
	return false, nil
}

// Break obtains at least one unit of value v: it finds the smallest
// t > v the wallet holds, repeatedly exchanges 1xt for 8x(t-3) while
// t > v+3 to bring it within range, then performs one final exchange of
// 1xt for 2^(t-v) units of v (capped at 8 per exchange; additional units
// beyond that are left for the caller's next attempt).
func Break(ctx context.Context, orch exchanger, w counter, v int8) error {
	counts, err := w.CountByValue()
	if err != nil {
		return fmt.Errorf("planner: break: %w", err)
	}

	t, ok := smallestAbove(counts, v)
	if !ok {
		return fmt.Errorf("planner: break: no denomination above %d is held", v)
	}

	for t > v+3 {
		if _, err := orch.Exchange(ctx, []int8{t}, eightOf(t-3)); err != nil {
			return fmt.Errorf("planner: break %dx1 -> 8x%d: %w", t, t-3, err)
		}
		t -= 3
	}

	steps := t - v
	units := int8(1)
	for i := int8(0); i < steps; i++ {
		units *= 2
	}
	if units > 8 {
		units = 8
	}
	outs := make([]int8, units)
	for i := range outs {
		outs[i] = v
	}
	if _, err := orch.Exchange(ctx, []int8{t}, outs); err != nil {
		return fmt.Errorf("planner: break %dx1 -> %dx%d: %w", t, units, v, err)
	}
	return nil
}

func smallestAbove(counts map[int8]int, v int8) (int8, bool) {
	best := int8(rpow.ValueMax)
	found := false
	for val, n := range counts {
		if n <= 0 || val <= v {
			continue
		}
		if !found || val < best {
			best = val
			found = true
		}
	}
	return best, found
}

func eightOf(v int8) []int8 {
	out := make([]int8, 8)
	for i := range out {
		out[i] = v
	}
	return out
}
