package commands

import (
	"github.com/nhle/focusproof/internal/app"
	"github.com/nhle/focusproof/internal/model"
)

// Flags holds the global flag values and the state built in the Before hook.
type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DBPath     string

	// Config is loaded in the Before hook and available to all commands
	Config *model.AppConfig

	// Services is nil for commands that never touch tasks.
	Services *app.Services
}
