package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/nhle/focusproof/internal/credential"
)

type AuthCmd struct {
	flags *Flags
}

// NewAuthCmd creates a new auth command
func NewAuthCmd(flags *Flags) *AuthCmd {
	return &AuthCmd{flags: flags}
}

// Register adds the auth command to the application
func (cmd *AuthCmd) Register(app *cli.Command) *cli.Command {
	keys := strings.Join(credential.Keys(), ", ")

	app.Commands = append(app.Commands, &cli.Command{
		Name:  "auth",
		Usage: "Manage API keys and mail passwords in the system keyring",
		Description: "Known keys: " + keys + `.
Environment variables override stored values.`,
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Store a credential (prompts when no value is given)",
				UsageText: "focusproof auth set <key> [value]",
				Action:    cmd.runSet,
			},
			{
				Name:      "delete",
				Usage:     "Remove a stored credential",
				UsageText: "focusproof auth delete <key>",
				Action:    cmd.runDelete,
			},
			{
				Name:   "status",
				Usage:  "Show which credentials are available",
				Action: cmd.runStatus,
			},
		},
	})

	return app
}

func (cmd *AuthCmd) runSet(_ context.Context, c *cli.Command) error {
	key := c.Args().Get(0)
	if key == "" {
		return fmt.Errorf("missing key. Usage: %s", c.UsageText)
	}

	value := c.Args().Get(1)
	if value == "" {
		err := huh.NewInput().
			Title(key).
			EchoMode(huh.EchoModePassword).
			Validate(validateSecret).
			Value(&value).
			Run()
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("prompt: %w", err)
		}
	}

	if err := credential.Set(key, strings.TrimSpace(value)); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "Stored %s\n", key)
	return nil
}

func (cmd *AuthCmd) runDelete(_ context.Context, c *cli.Command) error {
	key := c.Args().Get(0)
	if key == "" {
		return fmt.Errorf("missing key. Usage: %s", c.UsageText)
	}
	if err := credential.Delete(key); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "Deleted %s\n", key)
	return nil
}

func (cmd *AuthCmd) runStatus(_ context.Context, c *cli.Command) error {
	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEY\tSOURCE")
	for _, key := range credential.Keys() {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", key, credentialSource(key))
	}
	return w.Flush()
}

func credentialSource(key string) string {
	if os.Getenv(credential.EnvVar(key)) != "" {
		return "env " + credential.EnvVar(key)
	}
	if credential.Lookup(key) != "" {
		return "keyring"
	}
	return "missing"
}

func validateSecret(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("value is required")
	}
	return nil
}
