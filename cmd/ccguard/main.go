package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"ccguard/internal/app"
	"ccguard/internal/config"
	"ccguard/internal/guard"

	"github.com/spf13/cobra"
)

// stdinTimeout bounds how long the hook command waits for its payload.
// Hooks run inline in the assistant's tool loop; a stuck read must not
// stall the session.
const stdinTimeout = 5 * time.Second

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a GuardApp rooted at the current
// directory. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Hook", "Snapshot").
func newApp(operation string) (*app.GuardApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting current directory: %w", err)
	}

	a, err := app.NewGuardApp(cfg, root, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// emitDecision writes the decision JSON to stdout. This is the only
// thing the hook command may print there.
func emitDecision(d guard.Decision) error {
	return json.NewEncoder(os.Stdout).Encode(d)
}

// readStdin reads the full hook payload, failing if it takes longer
// than stdinTimeout.
func readStdin() ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := io.ReadAll(os.Stdin)
		ch <- result{data, err}
	}()

	select {
	case r := <-ch:
		return r.data, r.err
	case <-time.After(stdinTimeout):
		return nil, fmt.Errorf("timed out reading hook payload after %s", stdinTimeout)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ccguard",
	Short: "Line-count guard for assistant file modifications",
}

// hook command: the PreToolUse/PostToolUse entry point. It always exits
// zero with a decision on stdout; setup or read failures fail open.
var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Process a tool hook payload from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readStdin()
		if err != nil {
			return emitDecision(guard.Approve(fmt.Sprintf("Hook payload unavailable: %v.", err)))
		}

		a, err := newApp("Hook")
		if err != nil {
			return emitDecision(guard.Approve(fmt.Sprintf("Guard unavailable: %v.", err)))
		}
		defer a.Close()

		return emitDecision(a.ProcessEvent(raw))
	},
}

// snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Record a fresh baseline for a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			return fmt.Errorf("--session is required")
		}

		a, err := newApp("Snapshot")
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.TakeSnapshot(sessionID)
		if err != nil {
			return fmt.Errorf("taking snapshot: %w", err)
		}

		fmt.Printf("Baseline recorded: %d line(s) across %d file(s) at %s\n",
			summary.TotalLineCount,
			summary.FileCount,
			summary.Timestamp.Format("2006-01-02 15:04:05"),
		)
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View guard status",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		a, err := newApp("Status")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.Status(sessionID)
		if err != nil {
			return err
		}

		if st.Enabled {
			fmt.Println("Guard: enabled")
		} else {
			fmt.Println("Guard: disabled")
		}

		if sessionID != "" {
			if st.Session == nil {
				fmt.Printf("Session %s: no state recorded\n", sessionID)
				return nil
			}
			s := st.Session
			fmt.Printf("Session %s:\n", s.ID)
			fmt.Printf("  Baseline lines:    %d\n", s.BaselineLineCount)
			fmt.Printf("  Last valid lines:  %d\n", s.CurrentValidLineCount)
			fmt.Printf("  Allowance:         %d\n", s.AllowedPositiveDelta)
			fmt.Printf("  Approved:          %d\n", s.OperationsApproved)
			fmt.Printf("  Blocked:           %d\n", s.OperationsBlocked)
			fmt.Printf("  Drift corrections: %d\n", s.Corrections)
		}
		return nil
	},
}

// enable command
var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable enforcement",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Enable")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetEnabled(true); err != nil {
			return err
		}
		fmt.Println("Guard enabled.")
		return nil
	},
}

// disable command
var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable enforcement",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Disable")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetEnabled(false); err != nil {
			return err
		}
		fmt.Println("Guard disabled. Hook invocations will approve everything.")
		return nil
	},
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
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Strategy:   %s\n", cfg.Enforcement.Strategy)
		fmt.Printf("Scope:      %s\n", cfg.Enforcement.Scope)
		fmt.Printf("Policy:     %s\n", cfg.Enforcement.LimitPolicy)
		fmt.Printf("Allowance:  %d\n", cfg.Enforcement.AllowedPositiveDelta)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	snapshotCmd.Flags().StringP("session", "s", "", "Session identifier")
	statusCmd.Flags().StringP("session", "s", "", "Session identifier")

	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(configCmd)
}
