package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"facets-go/internal/app"
	"facets-go/internal/config"
	"facets-go/internal/facet"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a FacetsApp. The caller must defer app.Close().
// command identifies the CLI command being run (e.g. "Refresh", "Show").
func newApp(command string) (*app.FacetsApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewFacetsApp(cfg, command)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "facets",
	Short: "Faceted user browser",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Provider URL: %s\n", cfg.Provider.URL)
		fmt.Printf("Batch Size:   %d\n", cfg.Provider.Results)
		fmt.Printf("Database:     %s (%s)\n", cfg.Database.Type, cfg.Database.DataDir)
		return nil
	},
}

// refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Reset the store and ingest a fresh batch of users",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Refresh")
		if err != nil {
			return err
		}
		defer a.Close()

		count, err := a.Refresh(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Ingested %d users\n", count)
		return nil
	},
}

// show command
var showSelection []int64

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List users and facet counts, optionally filtered by facet values",
	Long: `List users and facet counts. Each --select adds one facet-value
identifier to the filter; a user must match every selected value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Show")
		if err != nil {
			return err
		}
		defer a.Close()

		view, err := a.Show(cmd.Context(), showSelection)
		if err != nil {
			return err
		}

		printView(view, showSelection)
		return nil
	},
}

// browse command
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Interactively toggle facet values and watch the result set",
	Long: `Resets the store, ingests a fresh batch, then reads facet-value
identifiers from stdin. Each entered identifier toggles that value in the
filter and reprints the view. An empty line exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Browse")
		if err != nil {
			return err
		}
		defer a.Close()

		session := a.NewSession()
		view, err := session.Start(cmd.Context())
		if err != nil {
			return err
		}
		printView(view, session.Selection())

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("toggle value id> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				break
			}
			valueID, err := strconv.ParseInt(line, 10, 64)
			if err != nil {
				fmt.Printf("not a facet-value id: %q\n", line)
				continue
			}

			view, err := session.Toggle(cmd.Context(), valueID)
			if err != nil {
				return err
			}
			printView(view, session.Selection())
		}
		return scanner.Err()
	},
}

// printView renders the view-model: facet panels with counts, then users.
func printView(view facet.View, selection []int64) {
	selected := make(map[int64]bool, len(selection))
	for _, id := range selection {
		selected[id] = true
	}

	for _, f := range view.Facets {
		fmt.Printf("%s:\n", f.Name)
		for _, v := range f.Values {
			marker := " "
			if selected[v.ID] {
				marker = "*"
			}
			fmt.Printf("  %s [%d] %s (%d)\n", marker, v.ID, v.Name, v.Count)
		}
	}

	fmt.Printf("\n%d users:\n", len(view.Users))
	for _, u := range view.Users {
		fmt.Printf("  %s %s\t%s\t%s\n", u.Name.First, u.Name.Last, u.Gender, u.Nat)
	}
}

func init() {
	showCmd.Flags().Int64SliceVarP(&showSelection, "select", "s", nil, "facet-value identifier to filter by (repeatable)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(browseCmd)
}
