package cli

import (
	"strings"
	"time"
)

type WatchCmd struct {
	Debounce time.Duration `help:"Wait this long after a change before printing." default:"150ms"`
}

// Run prints the habit list every time it changes until interrupted.
func (c *WatchCmd) Run(ctx *Context) error {
	if _, err := ctx.RequireIdentity(); err != nil {
		return err
	}

	changed := make(chan struct{}, 1)
	remove := ctx.Habits.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer remove()

	if err := ctx.Habits.Start(ctx.Ctx); err != nil {
		return err
	}
	defer ctx.Habits.Stop()

	ctx.println("Watching for changes (Ctrl+C to stop)...")

	last := ""
	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		case <-changed:
		}

		// Events arrive in bursts (a completion is followed by a streak update)
		select {
		case <-ctx.Ctx.Done():
			return nil
		case <-time.After(c.Debounce):
		}

		if snapshot := c.render(ctx); snapshot != last {
			last = snapshot
			ctx.printf("\n[%s]\n%s", time.Now().Format("15:04:05"), snapshot)
		}
	}
}

func (c *WatchCmd) render(ctx *Context) string {
	list := ctx.Habits.Habits()
	if len(list) == 0 {
		return "No habit available for today\n"
	}
	var b strings.Builder
	for _, h := range list {
		b.WriteString(statusMark(ctx.Habits.IsCompleted(h.ID)) + " " + h.Title + "  " + streakLabel(h.StreakCount) + "\n")
	}
	return b.String()
}
