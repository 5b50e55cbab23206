package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/getwowai/showcase/internal/experiment"
)

var experimentsCmd = &cobra.Command{
	Use:   "experiments",
	Short: "List registered experiments",
	Long:  `List the experiment registry with variants, metrics and status.`,
	RunE:  runExperiments,
}

var (
	resolveExperiment string
	resolveForce      bool
	resolveDefault    string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve-variant",
	Short: "Print the landing variant for the given inputs",
	Long: `Resolve the landing page variant the way the server does and print the
decision as JSON. --experiment is the feature flag value; omit it to simulate
an undefined assignment.`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveExperiment, "experiment", "", "experiment assignment returned by the flag provider")
	resolveCmd.Flags().BoolVar(&resolveForce, "force", false, "force the default variant")
	resolveCmd.Flags().StringVar(&resolveDefault, "default", "", "deployment default variant")
	rootCmd.AddCommand(experimentsCmd)
	rootCmd.AddCommand(resolveCmd)
}

func runExperiments(cmd *cobra.Command, _ []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tVARIANTS\tPRIMARY\tLOCALES\tSTARTED")
	for _, c := range experiment.Registry() {
		variants := make([]string, len(c.Variants))
		for i, v := range c.Variants {
			variants[i] = string(v)
		}
		started := "-"
		if c.StartDate != nil {
			started = c.StartDate.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID,
			strings.ToUpper(string(c.Status)),
			strings.Join(variants, ","),
			c.PrimaryMetric,
			strings.Join(c.TargetLocales, ","),
			started,
		)
	}
	return w.Flush()
}

func runResolve(cmd *cobra.Command, _ []string) error {
	env := experiment.Env{ForceOverride: resolveForce}
	if resolveDefault != "" {
		v, ok := experiment.ParseVariant(resolveDefault)
		if !ok {
			return fmt.Errorf("unknown default variant %q", resolveDefault)
		}
		env.EnvVariant = v
	}
	var assignment *string
	if cmd.Flags().Changed("experiment") {
		assignment = &resolveExperiment
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(experiment.Resolve(assignment, env))
}
