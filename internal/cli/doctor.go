package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitual/internal/backend"
	"github.com/julianstephens/habitual/internal/backend/local"
	"github.com/julianstephens/habitual/internal/keyring"
)

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.println("Running diagnostics...")
	ctx.println()

	hasError := false
	report := func(name string, err error, warnOnly bool) {
		switch {
		case err == nil:
			ctx.printf("✓ %s: OK\n", name)
		case warnOnly:
			ctx.printf("⚠ %s: WARNING\n", name)
			ctx.printf("   %v\n", err)
		default:
			ctx.printf("❌ %s: FAIL\n", name)
			ctx.printf("   Error: %v\n", err)
			hasError = true
		}
	}

	report("Configuration", ctx.Config.Validate(), false)

	reachable := checkBackendReachable(ctx)
	report("Backend reachable", reachable, false)

	if reachable == nil {
		report("Schema version", checkSchema(ctx), false)
	} else {
		ctx.println("⊘ Schema version: SKIPPED (backend not reachable)")
	}

	report("Keyring", checkKeyring(ctx), true)

	if _, err := ctx.backupManager(); err == nil {
		report("Backups present", checkBackupsPresent(ctx), true)
	}

	if reachable == nil {
		report("Session", checkSession(ctx), true)
	} else {
		ctx.println("⊘ Session: SKIPPED (backend not reachable)")
	}

	report("Clock/timezone", checkClockTimezone(), false)

	ctx.println()
	if hasError {
		ctx.println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	ctx.println("All diagnostics passed!")
	return nil
}

// checkBackendReachable treats an unauthorized reply as reachable: the backend
// answered, there is just nobody signed in.
func checkBackendReachable(ctx *Context) error {
	_, err := ctx.Provider.Account().Get(ctx.Ctx)
	if err == nil || backend.IsUnauthorized(err) {
		return nil
	}
	return err
}

func checkSchema(ctx *Context) error {
	p, ok := ctx.Provider.(*local.Provider)
	if !ok {
		// The hosted backend owns its schema
		return nil
	}
	st, err := p.SchemaStatus(ctx.Ctx)
	if err != nil {
		return err
	}
	if !st.UpToDate() {
		return fmt.Errorf("database is at version %d, latest is %d (%d pending)", st.Current, st.Latest, len(st.Pending))
	}
	return nil
}

func checkBackupsPresent(ctx *Context) error {
	mgr, err := ctx.backupManager()
	if err != nil {
		return err
	}
	list, err := mgr.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("no backups found in %s (run 'habitual backup')", mgr.Dir())
	}
	if age := time.Since(list[0].Timestamp); age > 7*24*time.Hour {
		return fmt.Errorf("latest backup is %d days old", int(age.Hours()/24))
	}
	return nil
}

func checkKeyring(ctx *Context) error {
	if ctx.Keyring == nil || !keyring.IsAvailable() {
		return errors.New("OS keyring is not available, sessions will not persist between runs")
	}
	return nil
}

func checkSession(ctx *Context) error {
	if _, err := ctx.RequireIdentity(); err != nil {
		return err
	}
	return nil
}

func checkClockTimezone() error {
	now := time.Now()

	// Completions are bucketed by local day, so a wildly wrong clock hides them
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}
