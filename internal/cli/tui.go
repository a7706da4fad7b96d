package cli

import (
	"github.com/julianstephens/habitual/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *Context) error {
	return tui.Run(ctx.Ctx, ctx.Sessions, ctx.Habits)
}
