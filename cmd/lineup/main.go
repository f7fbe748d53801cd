package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/stitts-dev/dfs-lineup/internal/export"
	"github.com/stitts-dev/dfs-lineup/internal/optimizer"
	"github.com/stitts-dev/dfs-lineup/pkg/config"
	"github.com/stitts-dev/dfs-lineup/pkg/logger"
)

// Exit codes.
const (
	exitOK         = 0
	exitError      = 1
	exitInfeasible = 2
	exitTimedOut   = 3
)

type options struct {
	schemaID      string
	input         string
	output        string
	salaryCap     int
	locked        []string
	excluded      []string
	allowFallback bool
	listSchemas   bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	flags := pflag.NewFlagSet("lineup", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&opts.schemaID, "schema", "s", "", "roster schema id (see --list-schemas)")
	flags.StringVarP(&opts.input, "input", "i", "", "player CSV downloaded from the platform")
	flags.StringVarP(&opts.output, "output", "o", "-", "upload template destination, - for stdout")
	flags.IntVar(&opts.salaryCap, "salary-cap", 0, "override the schema's salary cap")
	flags.StringSliceVar(&opts.locked, "lock", nil, "player ids that must be in the lineup")
	flags.StringSliceVar(&opts.excluded, "exclude", nil, "player ids that must not be in the lineup")
	flags.BoolVar(&opts.allowFallback, "allow-fallback", false, "write the best lineup found when the solver budget runs out")
	flags.BoolVar(&opts.listSchemas, "list-schemas", false, "print the built-in schemas and exit")
	flags.String("solver-backend", "", "solver backend (branch-and-bound, enumerate)")
	flags.Duration("solver-time-limit", 0, "solve time limit")
	flags.Int("solver-node-limit", 0, "solve node limit, 0 for none")
	flags.String("log-level", "", "log level")
	if err := flags.Parse(args); err != nil {
		return exitError
	}

	cfg, err := config.LoadConfig(flags)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitError
	}
	logger.InitLogger(logger.Options{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
		Format:      "text",
		Output:      stderr,
	})
	log := logger.WithService("lineup-cli")

	if opts.listSchemas {
		for _, s := range optimizer.Schemas() {
			fmt.Fprintf(stdout, "%-18s %-16s cap %d, %d slots\n", s.ID, s.Name, s.SalaryCap, s.RosterSize())
		}
		return exitOK
	}
	if opts.schemaID == "" || opts.input == "" {
		fmt.Fprintln(stderr, "--schema and --input are required")
		flags.PrintDefaults()
		return exitError
	}

	schema, ok := optimizer.LookupSchema(opts.schemaID)
	if !ok {
		fmt.Fprintf(stderr, "unknown schema %q\n", opts.schemaID)
		return exitError
	}
	if opts.salaryCap > 0 {
		schema = schema.WithSalaryCap(opts.salaryCap)
	}

	in, err := os.Open(opts.input)
	if err != nil {
		log.WithError(err).Error("Failed to open player file")
		return exitError
	}
	defer in.Close()
	pool, err := export.ReadPool(in, schema, export.DefaultColumns())
	if err != nil {
		log.WithError(err).Error("Failed to read player pool")
		return exitError
	}
	if pool.Len() > cfg.MaxPoolSize {
		log.WithFields(logrus.Fields{"players": pool.Len(), "max": cfg.MaxPoolSize}).Error("Player pool too large")
		return exitError
	}

	solver, err := optimizer.NewSolver(cfg.SolverBackend, log)
	if err != nil {
		log.WithError(err).Error("Invalid solver backend")
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := optimizer.NewEngine(solver).Optimize(ctx, optimizer.Request{
		Schema:        schema,
		Pool:          pool,
		Locked:        opts.locked,
		Excluded:      opts.excluded,
		TimeLimit:     cfg.SolverTimeLimit,
		NodeLimit:     cfg.SolverNodeLimit,
		AllowFallback: opts.allowFallback,
	})
	if err != nil {
		fmt.Fprintf(stderr, "optimize: %v\n", err)
		switch {
		case errors.Is(err, optimizer.ErrInfeasible):
			return exitInfeasible
		case errors.Is(err, optimizer.ErrTimedOut):
			return exitTimedOut
		}
		return exitError
	}

	if err := writeOutput(opts.output, stdout, schema, res.Assignment); err != nil {
		log.WithError(err).Error("Failed to write upload template")
		return exitError
	}

	log.WithFields(logrus.Fields{
		"total_points": res.Solution.TotalPoints,
		"total_salary": res.Solution.TotalSalary,
		"players":      strings.Join(res.Assignment.PlayerIDs(), ","),
		"fallback":     res.Fallback,
	}).Info("Lineup written")
	return exitOK
}

func writeOutput(path string, stdout io.Writer, schema optimizer.Schema, a *optimizer.Assignment) error {
	if path == "" || path == "-" {
		return export.WriteTemplate(stdout, schema, a)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteTemplate(f, schema, a); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
