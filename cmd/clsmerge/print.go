package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clsmerge/internal/observ"
)

var printModelName string

func init() {
	printCmd.Flags().StringVar(&printModelName, "model", "", "print only the model with this name")
}

var printCmd = &cobra.Command{
	Use:   "print <models.toml>",
	Short: "Dump the merged hierarchy of every model in grep-friendly form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setupColor(cmd)
		jobs, _ := cmd.Flags().GetInt("jobs")

		results, err := runModels(cmd, args[0], jobs, observ.NewTimer())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		found := false
		for _, r := range results {
			if r.Model == nil {
				continue
			}
			if printModelName != "" && r.Name != printModelName {
				continue
			}
			found = true
			fmt.Fprintf(out, "model %s\n", r.Name)
			fmt.Fprint(out, r.Model.Print())
		}
		if printModelName != "" && !found {
			return fmt.Errorf("no model named %q", printModelName)
		}
		return nil
	},
}
