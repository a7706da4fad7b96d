package cli

import (
	"encoding/json"
	"fmt"

	"github.com/julianstephens/habitual/internal/backend/local"
)

type DebugCmd struct {
	Paths         DebugPathsCmd         `cmd:"" help:"Show configuration and data paths."`
	DumpHabit     DebugDumpHabitCmd     `cmd:"" help:"Dump a habit document as JSON."`
	DumpCompleted DebugDumpCompletedCmd `cmd:"" help:"Dump today's completion documents as JSON."`
}

type DebugPathsCmd struct{}

func (cmd *DebugPathsCmd) Run(ctx *Context) error {
	output := map[string]string{
		"backend":    string(ctx.Config.Backend),
		"config_dir": ctx.Config.ConfigDir,
	}
	if p, ok := ctx.Provider.(*local.Provider); ok {
		output["database"] = p.Path()
	} else {
		output["endpoint"] = ctx.Config.Endpoint
		output["project"] = ctx.Config.ProjectID
	}
	if ctx.Keyring != nil {
		output["keyring_account"] = ctx.Keyring.Account()
	}
	return ctx.printJSON(output)
}

type DebugDumpHabitCmd struct {
	Habit string `arg:"" help:"Habit id or title."`
}

func (cmd *DebugDumpHabitCmd) Run(ctx *Context) error {
	if err := ctx.LoadHabits(); err != nil {
		return err
	}
	habit, err := ctx.Habits.Find(cmd.Habit)
	if err != nil {
		return err
	}
	return ctx.printJSON(habit)
}

type DebugDumpCompletedCmd struct{}

func (cmd *DebugDumpCompletedCmd) Run(ctx *Context) error {
	if err := ctx.LoadHabits(); err != nil {
		return err
	}
	return ctx.printJSON(ctx.Habits.Completions())
}

func (c *Context) printJSON(v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	c.println(string(jsonBytes))
	return nil
}
