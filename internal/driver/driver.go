// Package driver runs every enabled model spec against one universe
// snapshot. Models are independent below the driver line, so builds run in
// parallel; each goroutine owns one result slot, no shared mutable state.
package driver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"clsmerge/internal/interdex"
	"clsmerge/internal/model"
	"clsmerge/internal/observ"
	"clsmerge/internal/typeuniv"
)

// Result carries the outcome of one model build. Err is set for
// configuration errors; a failing spec never blocks the others.
type Result struct {
	Name    string
	Skipped bool
	Model   *model.Model
	Err     error
	Timing  *observ.Report
}

// Options configures a driver run.
type Options struct {
	// Jobs bounds build parallelism; <=0 means GOMAXPROCS.
	Jobs int
	// Ref is the reference-safety oracle shared by all models; nil admits
	// every type.
	Ref model.RefChecker
	// Oracle answers interdex grouping queries.
	Oracle interdex.Oracle
	// Dex maps types to binary units.
	Dex interdex.DexMap
}

// BuildAll builds one model per spec over the shared read-only universe.
// Disabled specs produce a Skipped result so results align index-for-index
// with the configuration. The scope and universe are shared read-only across
// goroutines.
func BuildAll(ctx context.Context, universe *typeuniv.Universe, scope []typeuniv.TypeID, specs []model.ModelSpec, opts Options) ([]Result, error) {
	results := make([]Result, len(specs))
	if len(specs) == 0 {
		return results, nil
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(specs)))

	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			if !spec.Enabled {
				results[i] = Result{Name: spec.Name, Skipped: true}
				return nil
			}

			timer := observ.NewTimer()
			phase := timer.Begin("model " + spec.Name)
			m, err := model.BuildModel(scope, spec, universe, opts.Ref, opts.Oracle, opts.Dex)
			timer.End(phase, "")

			report := timer.Report()
			results[i] = Result{Name: spec.Name, Model: m, Err: err, Timing: &report}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// AggregateStats reduces per-model stats into a single report. The reduction
// is order-independent because ModelStats.Merge is associative and
// commutative.
func AggregateStats(results []Result) model.ModelStats {
	var total model.ModelStats
	for _, r := range results {
		if r.Model == nil {
			continue
		}
		stats := r.Model.Stats()
		total.Merge(&stats)
	}
	return total
}
