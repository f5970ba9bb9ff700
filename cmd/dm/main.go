package main

import (
	"fmt"
	"os"

	"debtman/internal/app"
	"debtman/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var userID string

// newSession reads the config and creates a Session for the --user flag.
// The caller must defer sess.Close().
func newSession() (*app.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("--user is required")
	}

	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	sess, err := app.NewSession(cfg, userID)
	if err != nil {
		return nil, fmt.Errorf("initializing session: %w", err)
	}

	return sess, nil
}

var rootCmd = &cobra.Command{
	Use:   "dm",
	Short: "Debt manager storage core",
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
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Store:    %s\n", cfg.Store.Type)
		fmt.Printf("Tiers:")
		for _, t := range cfg.Tiers {
			fmt.Printf(" %s", t.Type)
		}
		fmt.Println()
		return nil
	},
}

// folder command
var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage the data folder grant",
}

var folderSetCmd = &cobra.Command{
	Use:   "set <path>",
	Short: "Grant access to a data folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		state, err := sess.Configure(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Session state: %s\n", state)
		return nil
	},
}

var folderStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved folder grant",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		if _, err := sess.Reconnect(cmd.Context()); err != nil {
			return err
		}
		status, err := sess.Status(cmd.Context())
		if err != nil {
			return err
		}
		if fc := status.FolderConfig; fc != nil {
			fmt.Printf("Folder: %s (valid: %v, last access %s)\n",
				fc.FolderName, fc.IsValid, fc.LastAccessAt.Format("2006-01-02 15:04:05"))
		} else {
			fmt.Println("Folder: not configured")
		}
		return nil
	},
}

var reconnectCmd = &cobra.Command{
	Use:   "reconnect",
	Short: "Restore the session from the saved folder grant",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		state, err := sess.Reconnect(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Session state: %s\n", state)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session and folder status",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		if _, err := sess.Reconnect(cmd.Context()); err != nil {
			return err
		}

		status, err := sess.Status(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("State: %s\n", status.State)
		caps := status.Capabilities
		fmt.Printf("Directory access: %v  Permission queries: %v  Secure context: %v\n",
			caps.DirectoryAccessSupported, caps.PermissionQuerySupported, caps.SecureContext)
		if fc := status.FolderConfig; fc != nil {
			fmt.Printf("Folder: %s (valid: %v, last access %s)\n",
				fc.FolderName, fc.IsValid, fc.LastAccessAt.Format("2006-01-02 15:04:05"))
		} else {
			fmt.Println("Folder: not configured")
		}
		for _, s := range status.Suggestions {
			fmt.Printf("Suggestion: %s\n", s)
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the stored document's integrity",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		if _, err := sess.Reconnect(cmd.Context()); err != nil {
			return err
		}

		result, err := sess.Validate(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Valid: %v\n", result.IsValid)
		fmt.Printf("Records: %d clients, %d debts, %d messages\n",
			result.Stats.Clients, result.Stats.Debts, result.Stats.Messages)
		for _, issue := range result.Errors {
			fmt.Printf("ERROR [%s] %s %s: %s\n", issue.Severity, issue.Record, issue.RecordID, issue.Message)
		}
		for _, issue := range result.Warnings {
			fmt.Printf("warning: %s %s: %s\n", issue.Record, issue.RecordID, issue.Message)
		}
		return nil
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Repair integrity findings and re-persist",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		if _, err := sess.Reconnect(cmd.Context()); err != nil {
			return err
		}

		result, err := sess.Repair(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Valid after repair: %v\n", result.IsValid)
		for _, issue := range result.Errors {
			fmt.Printf("unresolved [%s] %s %s: %s\n", issue.Severity, issue.Record, issue.RecordID, issue.Message)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the full dataset as a dated file",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		if _, err := sess.Reconnect(cmd.Context()); err != nil {
			return err
		}

		name, err := sess.Export(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Exported %s\n", name)
		return nil
	},
}

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Destroy stored data and forget the folder grant",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return fmt.Errorf("reset is destructive; pass --yes to confirm")
		}

		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		if _, err := sess.Reconnect(cmd.Context()); err != nil {
			return err
		}

		if err := sess.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Data and folder grant removed")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "user id owning the session")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)

	folderCmd.AddCommand(folderSetCmd)
	folderCmd.AddCommand(folderStatusCmd)
	rootCmd.AddCommand(folderCmd)

	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm the reset")

	rootCmd.AddCommand(reconnectCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(resetCmd)
}
