package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stevecastle/stereoprep/sample"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var ef expandFlags
	var mixed bool

	cmd := &cobra.Command{
		Use:   "stats [manifest...]",
		Short: "Show what manifests expand into",
		Long: "Expands each manifest and counts descriptors per variant. With --mix, " +
			"builds the full training mix from the configured sources instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts, err := ef.options(cmd, cfg.Expand)
			if err != nil {
				return err
			}
			store, err := ctx.store(cmd.Context())
			if err != nil {
				return err
			}
			seed, err := ctx.resolveSeed()
			if err != nil {
				return err
			}
			rng := buildRNG(seed)

			if mixed {
				m, err := buildMix(cmd.Context(), cfg, store, opts, rng)
				if err != nil {
					return err
				}
				counts := m.train.Counts()
				rows := make([][]string, 0, len(counts)+2)
				for _, name := range slices.Sorted(maps.Keys(counts)) {
					rows = append(rows, []string{name, strconv.Itoa(counts[name])})
				}
				rows = append(rows, []string{"holdout", strconv.Itoa(len(m.holdout))})
				rows = append(rows, []string{"total", strconv.Itoa(m.train.Len())})
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Source", "Samples"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			}

			paths := args
			if len(paths) == 0 {
				for _, p := range []string{cfg.Manifests.Driving, cfg.Manifests.Flying} {
					if p != "" && store.Exists(cmd.Context(), p) {
						paths = append(paths, p)
					}
				}
			}
			if len(paths) == 0 {
				return fmt.Errorf("no manifests given and none of the configured ones exist")
			}

			var rows [][]string
			for _, path := range paths {
				descs, err := expandManifest(cmd.Context(), store, path, opts, rng)
				if err != nil {
					return err
				}
				shapes := make(map[string]int)
				for _, d := range descs {
					shapes[variant(d)]++
				}
				for _, shape := range slices.Sorted(maps.Keys(shapes)) {
					rows = append(rows, []string{path, shape, strconv.Itoa(shapes[shape])})
				}
				rows = append(rows, []string{path, "total", strconv.Itoa(len(descs))})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Manifest", "Variant", "Samples"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
			return nil
		},
	}

	addExpandFlags(cmd, &ef)
	cmd.Flags().BoolVar(&mixed, "mix", false, "Count the configured training mix by source")

	return cmd
}

func variant(d sample.Descriptor) string {
	if s, ok := d.(*sample.Synthetic); ok {
		return s.Plan.Shape()
	}
	return string(d.Kind())
}
