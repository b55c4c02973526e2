package planner

import (
	"context"
	"fmt"
	"time"

	"rpow.dev/client/hashcash"
	"rpow.dev/client/ledger"
	"rpow.dev/client/rpow"
)

// genStore is the persisted generator state this package depends on,
// satisfied by *ledger.Ledger.
type genStore interface {
	LoadGeneratorState() (state ledger.GeneratorState, ok bool, err error)
	SaveGeneratorState(state ledger.GeneratorState) error
}

const (
	batchSize         = 8
	fastBatchCutoff   = 10 * time.Minute
	slowBatchCutoff   = 60 * time.Minute
	generatorResource = "rpowcli-generator"
)

// Generate mints one hashcash stamp at bits proportional to value and
// exchanges it for one new RPOW of that value — the same two-step
// "rpow_gen then server_exchange" the historical client's dogen performed,
// expressed here as a single orchestrator call with no wallet-side input
// (the minted stamp stands in for the input; it never occupied a wallet
// slot to begin with).
func Generate(ctx context.Context, orch exchanger, value int8, now time.Time) error {
	bits := mintBitsForValue(value)
	if _, err := hashcash.Mint(ctx, now, 6, generatorResource, bits, 0, ""); err != nil {
		return fmt.Errorf("planner: generate: mint: %w", err)
	}
	if _, err := orch.Exchange(ctx, nil, []int8{value}); err != nil {
		return fmt.Errorf("planner: generate: exchange: %w", err)
	}
	return nil
}

func mintBitsForValue(value int8) int {
	if value <= 0 {
		return 0
	}
	return int(value)
}

// RunContinuousBatch runs one batch of the continuous generator: mints and
// exchanges batchSize RPOWs at the persisted genval (8xgenval -> 1x(genval+3),
// the same trade Consolidate would pick for this denomination), then
// adaptively tunes genval based on how long the batch took, and persists
// the result. now is injected for deterministic tests.
func RunContinuousBatch(ctx context.Context, orch exchanger, store genStore, now func() time.Time) error {
	state, ok, err := store.LoadGeneratorState()
	if err != nil {
		return fmt.Errorf("planner: gencontin: load state: %w", err)
	}
	if !ok {
		state = ledger.GeneratorState{GenVal: 0}
	}

	start := now()
	for i := 0; i < batchSize; i++ {
		if err := Generate(ctx, orch, state.GenVal, now()); err != nil {
			return fmt.Errorf("planner: gencontin: batch mint %d/%d: %w", i+1, batchSize, err)
		}
	}

	ins := make([]int8, batchSize)
	for i := range ins {
		ins[i] = state.GenVal
	}
	target := state.GenVal + 3
	if _, err := orch.Exchange(ctx, ins, []int8{target}); err != nil {
		return fmt.Errorf("planner: gencontin: consolidate batch: %w", err)
	}

	elapsed := now().Sub(start)
	state.LastBatchSecs = int64(elapsed.Seconds())
	state.GenVal = tuneGenVal(state.GenVal, elapsed)

	if err := store.SaveGeneratorState(state); err != nil {
		return fmt.Errorf("planner: gencontin: save state: %w", err)
	}
	return nil
}

func tuneGenVal(current int8, elapsed time.Duration) int8 {
	switch {
	case elapsed < fastBatchCutoff && int(current) < rpow.ValueMax:
		return current + 1
	case elapsed > slowBatchCutoff && int(current) > rpow.ValueMin:
		return current - 1
	default:
		return current
	}
}
