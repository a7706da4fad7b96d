package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitual/internal/backend/local"
	"github.com/julianstephens/habitual/internal/backup"
)

type BackupCmd struct {
	Create  BackupCreateCmd  `cmd:"" help:"Snapshot the local database." default:"1"`
	List    BackupListCmd    `cmd:"" help:"List snapshots."`
	Restore BackupRestoreCmd `cmd:"" help:"Replace the local database with a snapshot."`
}

// backupManager returns the snapshot manager for the local database.
func (c *Context) backupManager() (*backup.Manager, error) {
	p, ok := c.Provider.(*local.Provider)
	if !ok {
		return nil, errors.New("backups are only available for the local backend")
	}
	return backup.NewManager(p.Path()), nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *Context) error {
	mgr, err := ctx.backupManager()
	if err != nil {
		return err
	}
	info, err := mgr.Create(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	ctx.printf("✓ Backup created: %s\n", info.Name())
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *Context) error {
	mgr, err := ctx.backupManager()
	if err != nil {
		return err
	}
	list, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(list) == 0 {
		ctx.println("No backups found.")
		ctx.printf("Backups are stored in: %s\n", mgr.Dir())
		return nil
	}

	ctx.printf("Available backups (%d total, keeping most recent %d):\n\n", len(list), backup.MaxBackups)
	for _, b := range list {
		ctx.printf("  %s  %s  (%.1f KB)\n", b.Timestamp.Format("2006-01-02 15:04:05"), b.Name(), float64(b.Size)/1024.0)
	}
	ctx.printf("\nBackup directory: %s\n", mgr.Dir())
	return nil
}

type BackupRestoreCmd struct {
	Backup string `arg:"" help:"Snapshot file name or path."`
	Yes    bool   `help:"Skip the confirmation prompt." short:"y"`
}

func (c *BackupRestoreCmd) Run(ctx *Context) error {
	mgr, err := ctx.backupManager()
	if err != nil {
		return err
	}
	path, err := mgr.Resolve(c.Backup)
	if err != nil {
		return err
	}

	if !c.Yes {
		confirmed := false
		err := huh.NewConfirm().
			Title("Replace the local database with " + c.Backup + "?").
			Description("The current database is snapshotted first.").
			Affirmative("Restore").
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

	// The database file is replaced underneath the provider
	ctx.Habits.Stop()
	if err := ctx.Provider.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	previous, err := mgr.Restore(ctx.Ctx, path)
	if err != nil {
		return err
	}
	if previous.Path != "" {
		ctx.printf("Created backup of current database: %s\n", previous.Name())
	}
	ctx.printf("✓ Restored %s\n", c.Backup)
	return nil
}
