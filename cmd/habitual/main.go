package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/constants"
	apperrors "github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	EnvFile string `help:"Read settings from this .env file." type:"path" default:".env" name:"env-file"`
	Backend string `help:"Backend to use: appwrite or local."`
	Verbose bool   `help:"Log at debug level and echo logs to stderr." name:"debug"`

	Tui     cli.TuiCmd     `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Signup  cli.SignupCmd  `cmd:"" help:"Create an account and log in."`
	Login   cli.LoginCmd   `cmd:"" help:"Log in to an existing account."`
	Logout  cli.LogoutCmd  `cmd:"" help:"End the current session."`
	Whoami  cli.WhoamiCmd  `cmd:"" help:"Show the logged in user."`
	Habit   cli.HabitCmd   `cmd:"" help:"Manage habits."`
	Streaks cli.StreaksCmd `cmd:"" help:"Rank habits by streak."`
	Watch   cli.WatchCmd   `cmd:"" help:"Print habits whenever they change."`
	Doctor  cli.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Session cli.SessionCmd `cmd:"" help:"Inspect or clear the stored session."`
	Backup  cli.BackupCmd  `cmd:"" help:"Manage local database backups."`
	Debug   cli.DebugCmd   `cmd:"" help:"Debug commands for troubleshooting."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Track daily habits and streaks from the terminal"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := config.Load(CLI.EnvFile)
	if err != nil {
		apperrors.Fatal(err)
	}
	if CLI.Backend != "" {
		cfg.Backend = constants.BackendKind(CLI.Backend)
	}
	cfg.Debug = cfg.Debug || CLI.Verbose

	if err := logger.Init(logger.Config{
		Debug:     cfg.Debug,
		ConfigDir: cfg.ConfigDir,
		Stderr:    cfg.Debug && kctx.Command() != "tui",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.Open(ctx, cfg)
	if err != nil {
		apperrors.Fatal(err)
	}

	err = kctx.Run(app)
	if cerr := app.Close(); cerr != nil {
		logger.Warn("Failed to close backend", "error", cerr)
	}
	if err != nil {
		stop()
		fmt.Fprintln(os.Stderr, apperrors.Format(err))
		os.Exit(1)
	}
}
