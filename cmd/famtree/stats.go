package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"famtree/internal/analytics"
	"famtree/internal/metrics"
	"famtree/internal/ui"
)

func statsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "stats",
		Aliases: []string{"dashboard"},
		Short:   "Show progress, achievements and suggestions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			weekly := metrics.NewWeeklyTracker(a.kv, a.now, a.logger)
			d, err := metrics.BuildDashboard(ctx, a.editor.Snapshot(), a.now(), weekly)
			if err != nil {
				return err
			}
			a.tracker.Send(ctx, analytics.DashboardOpened, nil)
			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}
			printDashboard(a, d)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the dashboard as JSON")
	return cmd
}

func printDashboard(a *app, d metrics.Dashboard) {
	w := a.out
	ui.Heading(w, "family tree progress")

	s := d.Stats
	fmt.Fprintf(w, "  People:        %d %s\n", s.TotalPeople, delta(d.Weekly.People))
	fmt.Fprintf(w, "  Generations:   %d\n", s.Generations)
	fmt.Fprintf(w, "  Photos:        %d %s\n", s.PhotosAdded, delta(d.Weekly.Photos))
	fmt.Fprintf(w, "  Stories:       %d %s\n", s.StoriesWritten, delta(d.Weekly.Stories))
	fmt.Fprintf(w, "  Completion:    %s %d%%\n", ui.Bar(s.CompletionPercentage, 20), s.CompletionPercentage)
	if d.TimeSpan.Years > 0 {
		fmt.Fprintf(w, "  Time span:     %d years (%d–%d)\n", d.TimeSpan.Years, d.TimeSpan.StartYear, d.TimeSpan.EndYear)
	}
	c := d.Completeness
	fmt.Fprintf(w, "  Profiles:      %d complete, %d partial, %d minimal\n", c.Complete, c.Partial, c.Minimal)
	fmt.Fprintf(w, "  Level:         %d (%d/%d XP, %d total)\n\n", d.Level.Level, d.Level.CurrentXP, d.Level.NextLevelXP, d.Level.TotalXP)

	rows := make([][]string, 0, len(d.Achievements))
	for _, ach := range d.Achievements {
		rows = append(rows, []string{ui.StatusIcon(ach.Unlocked), ach.Title,
			fmt.Sprintf("%d/%d", ach.Progress, ach.MaxProgress), ach.Reward})
	}
	ui.Table(w, []string{" ", "Achievement", "Progress", "Reward"}, rows)

	bands := make([][]string, 0, len(d.Distribution))
	for _, b := range d.Distribution {
		bands = append(bands, []string{b.Generation, strconv.Itoa(b.Count)})
	}
	fmt.Fprintln(w)
	ui.Table(w, []string{"Generation", "People"}, bands)

	if len(d.Recommendations) > 0 {
		fmt.Fprintln(w)
		for _, r := range d.Recommendations {
			fmt.Fprintf(w, "  %s %s: %s\n", ui.WarnIcon(), r.Title, r.Description)
		}
	}
}

func delta(n int) string {
	switch {
	case n > 0:
		return ui.Good.Sprintf("(+%d this week)", n)
	case n < 0:
		return ui.Bad.Sprintf("(%d this week)", n)
	}
	return ""
}
