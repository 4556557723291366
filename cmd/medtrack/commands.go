package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/medtracker/internal/application"
	"github.com/example/medtracker/internal/config"
	"github.com/example/medtracker/internal/persistence/sqlite"
	"github.com/example/medtracker/internal/reminder"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configFile string
	dsn        string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "medtrack",
		Short:         "Medication timetable and reminder service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (default: $"+config.EnvConfigFile+")")
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "SQLite database path, overrides configuration")

	root.AddCommand(newServeCommand(opts))
	root.AddCommand(newMigrateCommand(opts))
	root.AddCommand(newTimetableCommand(opts))
	return root
}

func (o *rootOptions) load() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFrom(o.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return config.Config{}, err
	}
	if dsn := strings.TrimSpace(o.dsn); dsn != "" {
		cfg.SQLiteDSN = dsn
	}
	return cfg, nil
}

// openStorage opens and migrates the configured database.
func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sqlite.Storage, error) {
	storage, err := sqlite.Open(ctx, cfg.SQLiteDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return storage, nil
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and reminder tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

			addr, err := cfg.Address()
			if err != nil {
				return err
			}

			storage, err := openStorage(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := storage.Close(); cerr != nil {
					logger.Error("failed to close storage", "error", cerr)
				}
			}()

			return newApp(cfg, storage, logger, defaultAppDeps()).serve(cmd.Context(), addr)
		},
	}
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			ctx := cmd.Context()

			storage, err := sqlite.Open(ctx, cfg.SQLiteDSN, logger)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer storage.Close()

			if !statusOnly {
				if err := storage.Migrate(ctx); err != nil {
					return fmt.Errorf("failed to apply migrations: %w", err)
				}
			}

			status, err := storage.MigrationStatus(ctx)
			if err != nil {
				return fmt.Errorf("failed to read migration status: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "schema version: %s\n", displayVersion(status.CurrentVersion))
			fmt.Fprintf(out, "applied: %d\n", len(status.Applied))
			fmt.Fprintf(out, "pending: %d\n", len(status.Pending))
			for _, m := range status.Pending {
				fmt.Fprintf(out, "  %s %s\n", m.Version, m.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "report schema state without applying migrations")
	return cmd
}

func displayVersion(version string) string {
	if version == "" {
		return "none"
	}
	return version
}

func newTimetableCommand(opts *rootOptions) *cobra.Command {
	var (
		profileID string
		date      string
	)

	cmd := &cobra.Command{
		Use:   "timetable",
		Short: "Print a profile's dose timetable for one day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			ctx := cmd.Context()

			var day time.Time
			if date != "" {
				day, err = time.ParseInLocation("2006-01-02", date, cfg.Location)
				if err != nil {
					return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", date)
				}
			}

			storage, err := openStorage(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer storage.Close()

			profile, err := storage.GetProfile(ctx, profileID)
			if err != nil {
				return fmt.Errorf("failed to load profile %s: %w", profileID, err)
			}

			cfg.RemindersEnabled = false
			a := newApp(cfg, storage, logger, defaultAppDeps())
			timetable, err := a.timetable.Day(ctx, application.Principal{AccountID: profile.AccountID}, profileID, day)
			if err != nil {
				return err
			}
			return writeTimetable(cmd.OutOrStdout(), timetable)
		},
	}
	cmd.Flags().StringVar(&profileID, "profile", "", "profile ID")
	cmd.Flags().StringVar(&date, "date", "", "day to print as YYYY-MM-DD (default: today)")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func writeTimetable(w io.Writer, day application.TimetableDay) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t\t\t\n", day.Date.Format("Mon 2 Jan 2006"))
	for _, group := range day.Groups {
		fmt.Fprintf(tw, "%s\t\t\t\n", group.Label)
		for _, dose := range group.Doses {
			clock := ""
			if c, ok := reminder.ReminderClock(dose.Medication, dose.MealPeriod); ok {
				clock = c.String()
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", clock, dose.Medication.Name, dose.Medication.Dosage, dose.Status())
		}
	}
	return tw.Flush()
}
