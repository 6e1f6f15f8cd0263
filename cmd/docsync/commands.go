package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Kamar-Folarin/docsync/internal/app"
	"github.com/Kamar-Folarin/docsync/internal/config"
	"github.com/Kamar-Folarin/docsync/internal/logging"
)

// newRootCmd builds the docsync command tree
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docsync",
		Short: "Maintenance commands for the docsync job store",
		Long: `docsync operates on the same job store and content store as the server,
using the same environment variables (.env is loaded when present).`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	rootCmd.AddCommand(newMigrateCmd(), newReapCmd(), newHistoryCmd(), newDeleteFolderCmd())
	return rootCmd
}

// open loads configuration and opens the stores. Logs go to stderr unless LOG_FILE is set.
func open(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFile)
	if cfg.LogFile == "" {
		logger.SetOutput(cmd.ErrOrStderr())
	}

	a, err := app.New(cfg, logger, app.Options{MigrateAttempts: 1, MigrateDelay: time.Second})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending job store migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}

func newReapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Fail PENDING jobs that were never picked up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Service.ReapStale(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to reap stale jobs: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reaped %d stale job(s)\n", n)
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the latest completed sync of every folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			history, err := a.Service.History(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(history)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FOLDER\tLAST SYNCED\tTOTAL\tPROCESSED\tSKIPPED")
			for _, r := range history.Results {
				synced := time.UnixMilli(r.LastSyncedAt).UTC().Format(time.RFC3339)
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", r.FolderPath, synced, r.TotalFiles, r.ProcessedFiles, r.SkippedFiles)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d file(s) synced\n", history.FileCount)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the history as JSON")
	return cmd
}

func newDeleteFolderCmd() *cobra.Command {
	var homeDir string

	cmd := &cobra.Command{
		Use:   "delete-folder [folder-path]",
		Short: `Delete a folder's content and sync history ("all" deletes everything)`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Service.Delete(cmd.Context(), args[0], homeDir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&homeDir, "home", "", "home directory the folder was synced with")
	return cmd
}
