package main

import (
	"fmt"
	"time"

	"github.com/MuchTitan/logtail/internal/config"
	"github.com/MuchTitan/logtail/internal/input/tail"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newScanCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Expand every tail glob once and show the matched files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			engine, err := config.NewPluginEngineFromConfig(cfg)
			if err != nil {
				return err
			}
			defer engine.Stop()

			rows, err := scanRows(engine.TailInputs())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No files matched.")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Input", "Path", "Device", "Inode", "Size", "Modified"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func scanRows(tails []*tail.Tail) ([][]string, error) {
	var rows [][]string
	for _, t := range tails {
		paths, err := tail.Expand(t.Glob())
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			id, info, err := tail.Identify(path)
			if err != nil {
				rows = append(rows, []string{t.Name(), path, "-", "-", "-", err.Error()})
				continue
			}
			rows = append(rows, []string{
				t.Name(),
				path,
				fmt.Sprint(id.Dev),
				fmt.Sprint(id.Ino),
				humanize.IBytes(uint64(info.Size())),
				info.ModTime().Format(time.RFC3339),
			})
		}
	}
	return rows, nil
}
