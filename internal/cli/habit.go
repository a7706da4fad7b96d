package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitual/internal/constants"
	apperrors "github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/validation"
)

type HabitCmd struct {
	Add      HabitAddCmd      `cmd:"" help:"Add a new habit."`
	List     HabitListCmd     `cmd:"" help:"List habits and today's status."`
	Complete HabitCompleteCmd `cmd:"" help:"Mark a habit as done for today."`
	Delete   HabitDeleteCmd   `cmd:"" help:"Delete a habit."`
}

type HabitAddCmd struct {
	Title       string `arg:"" help:"Habit title."`
	Description string `help:"What the habit involves." short:"d" required:""`
	Frequency   string `help:"How often: daily, weekly or monthly." short:"f" default:"daily"`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	if _, err := ctx.RequireIdentity(); err != nil {
		return err
	}

	habit, err := ctx.Habits.Create(ctx.Ctx, validation.HabitInput{
		Title:       c.Title,
		Description: c.Description,
		Frequency:   models.Frequency(c.Frequency),
	})
	if err != nil {
		return errors.New(apperrors.Message(err, constants.CreateFallbackMessage))
	}

	ctx.printf("Added habit: %s (%s)\n", habit.Title, habit.ID)
	return nil
}

type HabitListCmd struct {
	Pending bool `help:"Only show habits not yet done today."`
}

func (c *HabitListCmd) Run(ctx *Context) error {
	if err := ctx.LoadHabits(); err != nil {
		return err
	}

	list := ctx.Habits.Habits()
	if len(list) == 0 {
		ctx.println("No habit available for today")
		return nil
	}

	shown := 0
	for _, h := range list {
		done := ctx.Habits.IsCompleted(h.ID)
		if c.Pending && done {
			continue
		}
		shown++
		ctx.printf("%s %s  %s · %s · %s\n", statusMark(done), h.Title, h.Frequency.Label(), streakLabel(h.StreakCount), h.ID)
		if h.Description != "" {
			ctx.printf("    %s\n", truncate(h.Description, 72))
		}
	}
	if shown == 0 {
		ctx.println("All habits are done for today.")
	}
	return nil
}

type HabitCompleteCmd struct {
	Habit string `arg:"" help:"Habit id or title."`
}

func (c *HabitCompleteCmd) Run(ctx *Context) error {
	if err := ctx.LoadHabits(); err != nil {
		return err
	}

	habit, err := ctx.Habits.Find(c.Habit)
	if err != nil {
		return err
	}
	if ctx.Habits.IsCompleted(habit.ID) {
		ctx.printf("%s is already done today.\n", habit.Title)
		return nil
	}

	if err := ctx.Habits.Complete(ctx.Ctx, habit.ID); err != nil {
		return err
	}
	updated, _ := ctx.Habits.Habit(habit.ID)
	ctx.printf("✓ Completed %s (%s)\n", updated.Title, streakLabel(updated.StreakCount))
	return nil
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit id or title."`
	Yes   bool   `help:"Skip the confirmation prompt." short:"y"`
}

func (c *HabitDeleteCmd) Run(ctx *Context) error {
	if err := ctx.LoadHabits(); err != nil {
		return err
	}

	habit, err := ctx.Habits.Find(c.Habit)
	if err != nil {
		return err
	}

	if !c.Yes {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete %q?", habit.Title)).
			Affirmative("Delete").
			Negative("Cancel").
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			ctx.println("Cancelled.")
			return nil
		}
	}

	if err := ctx.Habits.Remove(ctx.Ctx, habit.ID); err != nil {
		return err
	}
	ctx.printf("Deleted habit: %s\n", habit.Title)
	return nil
}

type StreaksCmd struct{}

func (c *StreaksCmd) Run(ctx *Context) error {
	if err := ctx.LoadHabits(); err != nil {
		return err
	}

	list := ctx.Habits.Streaks()
	if len(list) == 0 {
		ctx.println("No habits yet.")
		return nil
	}

	width := 0
	for _, h := range list {
		width = max(width, len(h.Title))
	}
	for i, h := range list {
		ctx.printf("%2d. %-*s  %s\n", i+1, width, h.Title, streakLabel(h.StreakCount))
	}
	return nil
}

func statusMark(done bool) string {
	if done {
		return "[✓]"
	}
	return "[ ]"
}

func streakLabel(n int) string {
	if n == 1 {
		return "1 day streak"
	}
	return fmt.Sprintf("%d day streak", n)
}

// truncate shortens s to n runes for single-line output.
func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
