package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"clsmerge/internal/config"
	"clsmerge/internal/driver"
	"clsmerge/internal/model"
	"clsmerge/internal/observ"
	"clsmerge/internal/typeuniv"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <models.toml>",
	Short: "Build every configured merging model and report statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setupColor(cmd)
		timings, _ := cmd.Flags().GetBool("timings")
		jobs, _ := cmd.Flags().GetInt("jobs")

		timer := observ.NewTimer()
		results, err := runModels(cmd, args[0], jobs, timer)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, r := range results {
			switch {
			case r.Skipped:
				fmt.Fprintf(out, "model %s: disabled, skipped\n", r.Name)
			case r.Err != nil:
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "model %s: %v\n", r.Name, r.Err)
			default:
				stats := r.Model.Stats()
				fmt.Fprint(out, stats.Summary(r.Name))
			}
		}
		if agg := driver.AggregateStats(results); len(results) > 1 {
			header := color.New(color.Bold).Sprint("all models")
			fmt.Fprintf(out, "%s\n%s", header, agg.Summary("total"))
		}
		if timings {
			for _, r := range results {
				if r.Timing == nil {
					continue
				}
				for _, p := range r.Timing.Phases {
					timer.Add(p.Name, p.Duration(), p.Note)
				}
			}
			fmt.Fprint(out, timer.Summary())
		}
		if failed > 0 {
			return fmt.Errorf("%d model spec(s) failed configuration validation", failed)
		}
		return nil
	},
}

// runModels loads the configuration and the universe snapshot it names, then
// builds every model. The snapshot path is resolved relative to the config
// file so a config directory stays relocatable.
func runModels(cmd *cobra.Command, cfgPath string, jobs int, timer *observ.Timer) ([]driver.Result, error) {
	phase := timer.Begin("load config")
	cfg, err := config.Load(cfgPath)
	timer.End(phase, cfgPath)
	if err != nil {
		return nil, err
	}

	snapPath := cfg.SnapshotPath
	if !filepath.IsAbs(snapPath) {
		snapPath = filepath.Join(filepath.Dir(cfgPath), snapPath)
	}
	phase = timer.Begin("load snapshot")
	universe, err := typeuniv.LoadSnapshot(snapPath)
	timer.End(phase, snapPath)
	if err != nil {
		return nil, err
	}

	resolved, err := cfg.Resolve(universe)
	if err != nil {
		return nil, err
	}

	opts := driver.Options{
		Jobs:   jobs,
		Ref:    model.AllowAll{},
		Oracle: resolved.Oracle,
	}
	if resolved.Dex != nil {
		opts.Dex = resolved.Dex
	}
	phase = timer.Begin("build models")
	results, err := driver.BuildAll(cmd.Context(), universe, universe.Scope(), resolved.Specs, opts)
	timer.End(phase, fmt.Sprintf("%d spec(s)", len(resolved.Specs)))
	if err != nil {
		return nil, err
	}
	return results, nil
}
