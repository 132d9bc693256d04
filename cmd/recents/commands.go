package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kalambet/recents/internal/config"
	"github.com/kalambet/recents/internal/recent"
	"github.com/kalambet/recents/internal/tui"
)

// Positions on the command line are 1-based, as printed by list.
func parsePositions(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid position %q: want a number from list", a)
		}
		out = append(out, n-1)
	}
	return out, nil
}

// --- list ---

type listItem struct {
	Position   int    `json:"position"`
	Key        string `json:"key"`
	Path       string `json:"path"`
	Name       string `json:"name,omitempty"`
	Remainder  string `json:"remainder,omitempty"`
	Unparsable bool   `json:"unparsable,omitempty"`
	Terminated bool   `json:"terminated"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent projects in stored order",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.list.Load(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		list := a.list.Entries()
		if asJSON {
			items := make([]listItem, 0, len(list))
			scheme := a.list.Scheme()
			for i, e := range list {
				row := e.Row()
				items = append(items, listItem{
					Position:   i + 1,
					Key:        scheme.Key(a.cfg.Store.Prefix, e, i),
					Path:       e.Path,
					Name:       row.Name,
					Remainder:  row.Remainder,
					Unparsable: row.Unparsable,
					Terminated: e.Terminated,
				})
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}

		if a.list.State() != recent.Loaded {
			printWarning("No recent-project list found at %s", a.where())
			return nil
		}
		if len(list) == 0 {
			fmt.Fprintln(out, "No recent projects.")
			return nil
		}
		for i, row := range a.list.Rows() {
			fmt.Fprintf(out, "%s  %s\n", colorize(colorCyan, fmt.Sprintf("%3d", i+1)), row.String())
		}
		return nil
	},
}

// --- delete / up / down ---

var deleteCmd = &cobra.Command{
	Use:   "delete <position>...",
	Short: "Remove entries from the recent list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		positions, err := parsePositions(args)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.load(); err != nil {
			return err
		}
		n := a.list.Delete(positions)
		if n == 0 {
			return fmt.Errorf("no entries at the given positions (list has %d)", a.list.Len())
		}
		if err := a.list.Save(); err != nil {
			return err
		}
		printSuccess("Removed %s", entries(n))
		return nil
	},
}

func moveCommand(use, short, direction string, move func(*recent.Model, []int) (int, bool)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <position>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			positions, err := parsePositions(args)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.load(); err != nil {
				return err
			}
			to, ok := move(a.list, positions)
			if !ok {
				return fmt.Errorf("cannot move entry %d %s (list has %d)", positions[0]+1, direction, a.list.Len())
			}
			if err := a.list.Save(); err != nil {
				return err
			}
			printSuccess("Moved %s to position %d", a.list.Entries()[to].Path, to+1)
			return nil
		},
	}
}

var upCmd = moveCommand("up", "Move an entry one place toward the top", "up", (*recent.Model).MoveUp)

var downCmd = moveCommand("down", "Move an entry one place toward the bottom", "down", (*recent.Model).MoveDown)

// --- edit ---

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the recent list interactively",
	Long: `Edit the recent list interactively.

Keys:
  ↑/↓ or k/j    move the cursor
  space         select or unselect the entry under the cursor
  ctrl+a        select every entry
  d             delete the selection, or the entry under the cursor
  K/J           move the entry up or down
  r             reload the stored list, dropping edits
  q             save and quit
  esc           quit without saving`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.list.Load(); err != nil {
			return err
		}
		saved, err := tui.Run(a.list, tea.WithAltScreen())
		if err != nil {
			return err
		}
		switch {
		case saved:
			printSuccess("Saved %s", entries(a.list.Len()))
		case a.list.State() != recent.Loaded:
			printWarning("No recent-project list found at %s; nothing saved", a.where())
		default:
			printWarning("Changes discarded")
		}
		return nil
	},
}

func init() {
	listCmd.Flags().Bool("json", false, "print entries as JSON")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}

		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
