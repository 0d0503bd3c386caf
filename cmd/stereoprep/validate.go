package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/stevecastle/stereoprep/journal"
	"github.com/stevecastle/stereoprep/manifest"
	"github.com/stevecastle/stereoprep/storage"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var write bool
	var out string
	var noJournal bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Drop manifest records whose files are missing or undecodable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.store(cmd.Context())
			if err != nil {
				return err
			}
			path := args[0]
			if write && out == "" {
				out = path
			}
			if storage.IsS3(out) {
				return fmt.Errorf("cannot write manifest to %s: only local output is supported", out)
			}

			entries, err := manifest.Load(cmd.Context(), store, path)
			if err != nil {
				return err
			}

			started := time.Now()
			bar := progressbar.Default(int64(len(entries)), "validating")
			rep, err := manifest.Validate(cmd.Context(), store, entries, func(int, bool) {
				_ = bar.Add(1)
			})
			_ = bar.Finish()
			if err != nil {
				return err
			}
			log.Printf("Validated %s: %d kept, %d errors", path, len(rep.Kept), rep.Errors)

			if verbose && len(rep.Dropped) > 0 {
				rows := make([][]string, 0, len(rep.Dropped))
				for _, d := range rep.Dropped {
					rows = append(rows, []string{strconv.Itoa(d.Index), d.Reason})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Record", "Reason"}, rows, []columnAlignment{alignRight, alignLeft}))
			}

			if !noJournal {
				j, err := journal.Open(cfg.JournalPath)
				if err != nil {
					return err
				}
				defer j.Close()
				id, err := j.RecordRun(cmd.Context(), path, started, rep)
				if err != nil {
					return err
				}
				log.Printf("Recorded validation run %s", id)
			}

			if out == "" {
				return nil
			}
			dest, err := dataPath(cfg, out)
			if err != nil {
				return err
			}
			return writeManifest(dest, rep.Kept)
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Overwrite the manifest with the kept records")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the kept records to this path")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "Do not record the run in the journal")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List dropped records")

	return cmd
}

// writeManifest replaces dest through a temporary file in the same folder.
func writeManifest(dest string, entries []manifest.Entry) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := manifest.Save(tmp, entries); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	log.Printf("Wrote %d records to %s", len(entries), dest)
	return nil
}
