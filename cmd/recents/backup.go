package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/recents/internal/kvstore"
	"github.com/kalambet/recents/internal/recent"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Inspect or restore lists replaced by earlier saves",
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backup snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		all, _ := cmd.Flags().GetBool("all")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireBackups(); err != nil {
			return err
		}

		location := a.cfg.Store.Location
		if all {
			location = ""
		}
		snaps, err := a.backups.List(location, limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(snaps) == 0 {
			fmt.Fprintln(out, "No backups found.")
			return nil
		}
		for _, s := range snaps {
			fmt.Fprintf(out, "%s  %s  %s",
				colorize(colorCyan, s.ID[:8]),
				s.CreatedAt.Local().Format(time.DateTime),
				entries(s.Count),
			)
			if all {
				fmt.Fprintf(out, "  %s", colorize(colorFaint, s.Location))
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var backupShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the entries held by a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireBackups(); err != nil {
			return err
		}

		snap, err := a.backups.Get(args[0])
		if err != nil {
			return err
		}

		printStatus("ID", "%s", snap.ID)
		printStatus("Location", "%s", snap.Location)
		printStatus("Created", "%s", snap.CreatedAt.Local().Format(time.DateTime))

		out := cmd.OutOrStdout()
		for i, r := range snap.Records {
			text := ""
			if e, err := recent.Decode(r.Value); err != nil {
				text = colorize(colorRed, fmt.Sprintf("%q", r.Value))
			} else {
				text = e.Path
			}
			fmt.Fprintf(out, "%s  %s  %s\n", colorize(colorCyan, fmt.Sprintf("%3d", i+1)), r.Key, text)
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Replace the stored list with a snapshot",
	Long: `Replace the stored list with a snapshot.

The values are written back byte for byte under their original names. The
list being replaced is itself recorded as a new snapshot first.

With --create, a missing namespace is created first, so a snapshot taken
from one backend can seed another (for example a file or pebble store).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		create, _ := cmd.Flags().GetBool("create")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireBackups(); err != nil {
			return err
		}

		snap, err := a.backups.Get(args[0])
		if err != nil {
			return err
		}
		if snap.Location != a.cfg.Store.Location {
			return fmt.Errorf("snapshot %s belongs to %s, not the configured %s", snap.ID[:8], snap.Location, a.cfg.Store.Location)
		}

		if create {
			if err := kvstore.Create(a.store, snap.Location); err != nil {
				return err
			}
		}

		err = recent.Restore(a.store, a.layout(), snap.Records, a.recorder())
		if errors.Is(err, kvstore.ErrNotFound) {
			return fmt.Errorf("no recent-project list at %s to restore into (use --create): %w", a.where(), err)
		}
		if err != nil {
			return err
		}
		printSuccess("Restored %s from %s", entries(len(snap.Records)), snap.ID[:8])
		return nil
	},
}

func init() {
	backupListCmd.Flags().Int("limit", 20, "maximum number of snapshots to list")
	backupListCmd.Flags().Bool("all", false, "include snapshots of every location")
	backupRestoreCmd.Flags().Bool("create", false, "create the namespace if it does not exist")
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupShowCmd)
	backupCmd.AddCommand(backupRestoreCmd)
}
