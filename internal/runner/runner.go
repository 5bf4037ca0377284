package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gehuybre/embuild-analyses/internal/analysis"
	"github.com/gehuybre/embuild-analyses/internal/store"
)

// Run executes a single analysis synchronously, tracking the run in the
// store. Each analysis is independent: a failure is recorded and returned
// but corrupts nothing, since outputs are only replaced once fully written.
func Run(ctx context.Context, a analysis.Analysis, env analysis.Env) (err error) {
	runID := uuid.NewString()
	start := time.Now()
	fmt.Printf("🚀 Starting analysis %s (run %s)\n", a.Name(), runID)

	if err := store.SaveRun(runID, a.Name()); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	store.UpdateRunStatus(runID, "running")

	defer func() {
		if err != nil {
			store.UpdateRunStatus(runID, "failed")
			store.SaveRunError(runID, err)
			fmt.Printf("❌ Analysis %s failed after %v: %v\n", a.Name(), time.Since(start), err)
		}
	}()

	stats, err := a.Run(ctx, env)
	if err != nil {
		return err
	}

	if err := store.SaveRunStats(runID, stats.RowsRead, stats.RowsSkipped, stats.CellsDropped, stats.OutputsWritten); err != nil {
		return fmt.Errorf("failed to save run stats: %w", err)
	}
	store.UpdateRunStatus(runID, "completed")

	fmt.Printf("🏁 Analysis %s completed in %v: %d rows read, %d rows skipped, %d cells dropped, %d outputs written\n",
		a.Name(), time.Since(start), stats.RowsRead, stats.RowsSkipped, stats.CellsDropped, stats.OutputsWritten)
	if stats.CellsDropped > 0 {
		fmt.Printf("⚠️ %s: %d unparseable numeric cells were dropped; check the source export\n", a.Name(), stats.CellsDropped)
	}
	return nil
}

// RunAll executes the given analyses strictly sequentially. Every analysis
// is attempted; the returned error lists the ones that failed.
func RunAll(ctx context.Context, analyses []analysis.Analysis, env analysis.Env) error {
	var failed []string
	for _, a := range analyses {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := Run(ctx, a, env); err != nil {
			failed = append(failed, a.Name())
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d analyses failed: %v", len(failed), len(analyses), failed)
	}
	return nil
}
