package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/nhle/focusproof/internal/locale"
)

type StatsCmd struct {
	flags *Flags

	reminders int
}

// NewStatsCmd creates a new stats command
func NewStatsCmd(flags *Flags) *StatsCmd {
	return &StatsCmd{flags: flags}
}

// Register adds the stats command to the application
func (cmd *StatsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "stats",
		Usage: "Show points and recent reminders",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "reminders",
				Aliases:     []string{"n"},
				Usage:       "number of recent reminders to show",
				Value:       5,
				Destination: &cmd.reminders,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *StatsCmd) run(ctx context.Context, c *cli.Command) error {
	svc := cmd.flags.Services
	stats := svc.Tracker.Stats()
	out := c.Root().Writer

	strs := locale.For(locale.Parse(cmd.flags.Config.Display.Language))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "%s\t%d\n%s\t%d\n%s\t%d\n",
		strs.Points, stats.Points, strs.Completed, stats.CompletedCount, strs.Failed, stats.FailedCount)
	if err := w.Flush(); err != nil {
		return err
	}

	if cmd.reminders <= 0 {
		return nil
	}
	notes, err := svc.Store.GetNotifications(ctx, cmd.reminders)
	if err != nil {
		return fmt.Errorf("load reminders: %w", err)
	}
	if len(notes) == 0 {
		return nil
	}

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATE\tREMINDER")
	for _, n := range notes {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", n.ForDate, n.Message)
	}
	return w.Flush()
}
