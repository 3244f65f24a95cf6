package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/nhle/focusproof/internal/locale"
	"github.com/nhle/focusproof/internal/model"
)

type ListCmd struct {
	flags *Flags
}

// NewListCmd creates a new list command
func NewListCmd(flags *Flags) *ListCmd {
	return &ListCmd{flags: flags}
}

// Register adds the list command to the application
func (cmd *ListCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List today's and upcoming tasks",
		Action:  cmd.run,
	})

	return app
}

func (cmd *ListCmd) run(_ context.Context, c *cli.Command) error {
	svc := cmd.flags.Services
	strs := locale.For(locale.Parse(cmd.flags.Config.Display.Language))
	groups := svc.Tracker.Group(model.DateOf(svc.Clock.Now()))

	out := c.Root().Writer
	_, _ = fmt.Fprintln(out, strs.Today)
	if len(groups.Today) == 0 {
		_, _ = fmt.Fprintln(out, "  "+strs.EmptyToday)
	} else {
		writeTasks(out, groups.Today, strs)
	}

	if len(groups.Upcoming) > 0 {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, strs.Upcoming)
		writeTasks(out, groups.Upcoming, strs)
	}
	return nil
}

func writeTasks(out io.Writer, tasks []model.Task, strs locale.Strings) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "  STATUS\tTITLE\tMIN\tDATE\tPOINTS\tFEEDBACK")

	for _, t := range tasks {
		date, points, feedback := "-", "-", ""
		if t.ScheduledDate != nil {
			date = t.ScheduledDate.String()
		}
		if t.PointsEarned != nil {
			points = fmt.Sprintf("%+d", *t.PointsEarned)
		}
		if t.AIFeedback != nil {
			feedback = *t.AIFeedback
		}
		_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			strs.StatusLabel(t.Status), t.Title, strconv.Itoa(t.DurationMinutes), date, points, feedback)
	}

	_ = w.Flush()
}
