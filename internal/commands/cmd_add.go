package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/nhle/focusproof/internal/model"
	"github.com/nhle/focusproof/internal/tracker"
)

type AddCmd struct {
	flags *Flags

	description string
	minutes     int
	date        string
}

// NewAddCmd creates a new add command
func NewAddCmd(flags *Flags) *AddCmd {
	return &AddCmd{flags: flags}
}

// Register adds the add command to the application
func (cmd *AddCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "add",
		Usage:     "Add a task",
		UsageText: "focusproof add [--minutes N] [--date YYYY-MM-DD] [--description TEXT] <title>",
		Description: `Adds a PENDING task. Without --minutes the configured default duration is used.
A task dated for a later day is listed under Upcoming and reminded on that day.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "minutes",
				Aliases:     []string{"m"},
				Usage:       "countdown length in minutes",
				Destination: &cmd.minutes,
			},
			&cli.StringFlag{
				Name:        "date",
				Aliases:     []string{"d"},
				Usage:       "scheduled date (YYYY-MM-DD)",
				Destination: &cmd.date,
			},
			&cli.StringFlag{
				Name:        "description",
				Usage:       "details shown to the judge",
				Destination: &cmd.description,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *AddCmd) run(ctx context.Context, c *cli.Command) error {
	in := tracker.NewTask{
		Title:           strings.Join(c.Args().Slice(), " "),
		Description:     cmd.description,
		DurationMinutes: cmd.minutes,
	}
	if cmd.date != "" {
		d, err := model.ParseDate(cmd.date)
		if err != nil {
			return fmt.Errorf("parse --date: %w", err)
		}
		in.ScheduledDate = &d
	}

	task, err := cmd.flags.Services.Tracker.AddTask(ctx, in)
	if errors.Is(err, tracker.ErrEmptyTitle) {
		return fmt.Errorf("a title is required. Usage: %s", c.UsageText)
	}
	if err != nil {
		return fmt.Errorf("add task: %w", err)
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "Added %q (%d min) %s\n", task.Title, task.DurationMinutes, task.ID)
	return nil
}
