package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"botd/internal/app"
	"botd/internal/config"
	"botd/internal/logging"
	"botd/internal/persistence"
)

type options struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
	dbPath     string
}

func buildRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "botd",
		Short:         "Modular Twitch bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts, cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (.yaml, .json or .toml)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Dotenv file; ignored when absent")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: off|error|warn|info|debug|trace (overrides config)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: json|console (overrides config)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides config)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot until interrupted or a restart is requested",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts, cmd.ErrOrStderr())
		},
	}
	recordsCmd := &cobra.Command{
		Use:     "records",
		Short:   "List persisted module records",
		Example: "  botd records --db dao/db.sqlite",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRecords(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	root.AddCommand(serveCmd, recordsCmd)
	return root
}

func (o *options) resolve() (config.Config, error) {
	cfg, err := config.Resolve(o.configPath, o.envFile)
	if err != nil {
		return cfg, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	return cfg, nil
}

// serve runs the bot. A requested restart exits cleanly so the supervisor
// can relaunch the process.
func serve(ctx context.Context, o *options, stderr io.Writer) error {
	cfg, err := o.resolve()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = app.Run(ctx, app.Options{Config: cfg, Logger: &log, ShutdownTimeout: 5 * time.Second})
	if errors.Is(err, app.ErrRestartRequested) {
		return nil
	}
	return err
}

func listRecords(ctx context.Context, o *options, out io.Writer) error {
	cfg, err := o.resolve()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := persistence.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	recs, err := store.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tUPDATED\tDATA")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.UpdatedAt.Format(time.RFC3339), r.Data)
	}
	return tw.Flush()
}
