package commands

import (
	"fmt"
	"os"
	"sort"

	"fibre-tracker/internal/models"
	"fibre-tracker/internal/repository"
	"fibre-tracker/internal/service"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var progressWrite bool

func init() {
	progressCmd.Flags().BoolVar(&progressWrite, "write", false, "Also rewrite progress.json.")
	rootCmd.AddCommand(progressCmd)
}

var progressCmd = &cobra.Command{
	Use:   "progress [--write]",
	Short: "Shows how many suburbs and addresses have been processed per state.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := repository.NewRegistryStore(cfg.ResultsDir)
		reg, err := store.Load()
		if err != nil {
			return err
		}

		report := service.ProgressReport(reg)
		renderProgress("Suburbs", report.Suburbs)
		renderProgress("Addresses", report.Addresses)

		if progressWrite {
			return store.SaveProgress(report)
		}
		return nil
	},
}

func renderProgress(title string, p models.Progress) {
	keys := make([]string, 0, len(p.All))
	for k := range p.All {
		if k != models.TotalKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	keys = append(keys, models.TotalKey)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"State", "Done", "Total", "%", "Listed done", "Listed total", "Listed %"})
	for _, k := range keys {
		all, listed := p.All[k], p.Listed[k]
		if k == models.TotalKey {
			t.AppendSeparator()
		}
		t.AppendRow(table.Row{k, all.Done, all.Total, fmt.Sprintf("%.1f", all.Percent),
			listed.Done, listed.Total, fmt.Sprintf("%.1f", listed.Percent)})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
