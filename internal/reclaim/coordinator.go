package reclaim

import (
	"context"

	"go.uber.org/zap"
)

// Coordinator orchestrates one full pass: build the worklist, run the engine
// per candidate, unload each candidate's encryption key regardless of the
// unmount outcome, and emit diagnostics. Candidates are processed strictly
// sequentially and independently; one candidate's failure never aborts the
// rest.
type Coordinator struct {
	Selector *Selector
	Engine   *Engine
	Reporter HolderReporter
	Keys     KeyUnloader
	Logger   *zap.Logger
}

// Run performs one pass and returns the per-candidate outcomes. A pass that
// finds nothing to do, or that cannot build its worklist, ends early with no
// outcomes; neither is an error for the process.
func (r *Coordinator) Run(ctx context.Context) []Outcome {
	candidates, err := r.Selector.Select(ctx)
	if err != nil {
		r.Logger.Error("Could not build candidate list, ending pass", zap.Error(err))
		return nil
	}
	if len(candidates) == 0 {
		r.Logger.Info("No candidate volumes found, nothing to do")
		return nil
	}
	r.Logger.Info("Processing candidates", zap.Int("count", len(candidates)))

	outcomes := make([]Outcome, 0, len(candidates))
	for _, c := range candidates {
		outcomes = append(outcomes, r.process(ctx, c))
	}

	reclaimed := 0
	for _, o := range outcomes {
		if o.Unmounted {
			reclaimed++
		}
	}
	r.Logger.Info("Pass complete",
		zap.Int("candidates", len(outcomes)),
		zap.Int("reclaimed", reclaimed),
		zap.Int("failed", len(outcomes)-reclaimed))
	return outcomes
}

func (r *Coordinator) process(ctx context.Context, c Candidate) Outcome {
	log := r.Logger.With(
		zap.String("dataset", c.Dataset),
		zap.String("mountpoint", c.Mountpoint),
		zap.String("owner", c.Owner),
	)
	log.Info("Reclaiming volume")

	r.Reporter.ReportHolders(ctx, c.Mountpoint)

	outcome := Outcome{Candidate: c}
	outcome.Unmounted = r.Engine.Reclaim(ctx, c)
	if !outcome.Unmounted {
		log.Warn("Volume could not be unmounted")
	}

	// Key unload is independent of the unmount outcome: even while the
	// volume stays mounted, dropping the key reduces exposure.
	outcome.KeyUnloadAttempted = true
	if err := r.Keys.UnloadKey(ctx, c.Dataset); err != nil {
		log.Warn("Key unload failed", zap.Error(err))
	} else {
		outcome.KeyUnloaded = true
		log.Info("Encryption key unloaded")
	}

	r.Reporter.ReportOwnedBy(ctx, c.Owner)
	return outcome
}
