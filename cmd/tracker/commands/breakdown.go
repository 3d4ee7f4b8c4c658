package commands

import (
	"os"

	"fibre-tracker/internal/models"
	"fibre-tracker/internal/repository"
	"fibre-tracker/internal/service"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(breakdownCmd)
}

var breakdownCmd = &cobra.Command{
	Use:   "breakdown",
	Short: "Tallies technology types and upgrade reasons across all result files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := service.BuildBreakdown(repository.NewResultStore(cfg.ResultsDir), models.States)
		if err != nil {
			return err
		}
		renderBreakdown("Technology", b, false)
		renderBreakdown("Upgrade", b, true)
		return nil
	},
}

func renderBreakdown(title string, b service.Breakdown, upgrade bool) {
	keys := b.Keys(upgrade)

	header := table.Row{"State", "Suburbs"}
	for _, k := range keys {
		header = append(header, k)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(title)
	t.AppendHeader(header)
	for _, state := range append(append([]string{}, models.States...), models.TotalKey) {
		sb, ok := b[state]
		if !ok {
			continue
		}
		counts := sb.Tech
		if upgrade {
			counts = sb.Upgrade
		}
		if state == models.TotalKey {
			t.AppendSeparator()
		}
		row := table.Row{state, sb.Suburbs}
		for _, k := range keys {
			row = append(row, counts[k])
		}
		t.AppendRow(row)
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
