// Package main is the rpohub operator CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/rpohub/internal/admin"
	"github.com/kiranshivaraju/rpohub/internal/config"
	"github.com/kiranshivaraju/rpohub/internal/store"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

const (
	commandTimeout = 2 * time.Minute
	dateLayout     = "2006-01-02"
)

type commandFn func(ctx context.Context, svc *admin.Service, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

func commands() map[string]command {
	return map[string]command{
		"bootstrap": {
			name:        "bootstrap",
			description: "Create a tenant with its first admin user and print the admin API key",
			run:         runBootstrap,
		},
		"record-metric": {
			name:        "record-metric",
			description: "Store one day of impressions, clicks and applications for a job",
			run:         runRecordMetric,
		},
	}
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(2)
	}

	cmd, ok := commands()[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(2)
	}

	if err := run(cmd, os.Args[2:]); err != nil {
		slog.Error("command failed", "command", cmd.name, "error", err)
		os.Exit(1)
	}
}

func run(cmd command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	svc := admin.NewService(store.NewPostgresStore(pool))
	return cmd.run(ctx, svc, args)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: rpoctl <command> [flags]\n\nAvailable commands:\n")
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, cmds[name].description)
	}
}

// ─── bootstrap ──────────────────────────────────────────────────────────────

type bootstrapOptions struct {
	Tenant string
	Email  string
}

func parseBootstrapFlags(args []string) (bootstrapOptions, error) {
	var opts bootstrapOptions
	fs := flag.NewFlagSet("bootstrap", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.Tenant, "tenant", "", "tenant (agency) name")
	fs.StringVar(&opts.Email, "email", "", "email of the first admin user")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.Tenant == "" || opts.Email == "" {
		return opts, errors.New("bootstrap requires -tenant and -email")
	}
	return opts, nil
}

func runBootstrap(ctx context.Context, svc *admin.Service, args []string) error {
	opts, err := parseBootstrapFlags(args)
	if err != nil {
		return err
	}

	res, err := svc.Bootstrap(ctx, opts.Tenant, opts.Email)
	if err != nil {
		return fmt.Errorf("bootstrap tenant: %w", err)
	}
	printBootstrap(os.Stdout, res)
	return nil
}

func printBootstrap(w io.Writer, res *admin.BootstrapResult) {
	fmt.Fprintf(w, "tenant:  %s (%s)\n", res.Tenant.Name, res.Tenant.ID)
	fmt.Fprintf(w, "admin:   %s (%s)\n", res.Admin.Email, res.Admin.ID)
	fmt.Fprintf(w, "api key: %s\n", res.Key.RawKey)
	fmt.Fprintln(w, "The key is shown once. Store it now.")
}

// ─── record-metric ──────────────────────────────────────────────────────────

type recordMetricOptions struct {
	TenantID uuid.UUID
	Metric   models.JobDailyMetric
}

func parseRecordMetricFlags(args []string) (recordMetricOptions, error) {
	var (
		opts         recordMetricOptions
		tenant       string
		job          string
		date         string
		impressions  int64
		clicks       int64
		applications int64
	)
	fs := flag.NewFlagSet("record-metric", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&tenant, "tenant", "", "tenant ID")
	fs.StringVar(&job, "job", "", "job ID")
	fs.StringVar(&date, "date", "", "day in YYYY-MM-DD (UTC)")
	fs.Int64Var(&impressions, "impressions", 0, "impressions on that day")
	fs.Int64Var(&clicks, "clicks", 0, "clicks on that day")
	fs.Int64Var(&applications, "applications", 0, "applications on that day")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	tenantID, err := uuid.Parse(tenant)
	if err != nil {
		return opts, fmt.Errorf("-tenant must be a valid UUID: %w", err)
	}
	jobID, err := uuid.Parse(job)
	if err != nil {
		return opts, fmt.Errorf("-job must be a valid UUID: %w", err)
	}
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return opts, fmt.Errorf("-date must be YYYY-MM-DD: %w", err)
	}

	opts.TenantID = tenantID
	opts.Metric = models.JobDailyMetric{
		JobID:        jobID,
		Date:         day,
		Impressions:  impressions,
		Clicks:       clicks,
		Applications: applications,
	}
	return opts, nil
}

func runRecordMetric(ctx context.Context, svc *admin.Service, args []string) error {
	opts, err := parseRecordMetricFlags(args)
	if err != nil {
		return err
	}

	if err := svc.RecordMetric(ctx, opts.TenantID, opts.Metric); err != nil {
		return fmt.Errorf("record metric: %w", err)
	}
	slog.Info("metric recorded",
		"job_id", opts.Metric.JobID,
		"date", opts.Metric.Date.Format(dateLayout),
	)
	return nil
}
