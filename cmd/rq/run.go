package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/go-kit/log/level"

	"github.com/rqdb/rq/pkg/engine"
	"github.com/rqdb/rq/pkg/engine/executor"
	"github.com/rqdb/rq/pkg/engine/planfile"
)

// runCommand executes a plan file and writes its result to stdout.
type runCommand struct {
	plan      string
	output    string
	batchSize int
}

func addRunCommand(app *kingpin.Application) {
	cmd := &runCommand{}
	run := app.Command("run", "Execute a plan file and print its result.").Action(cmd.run)
	run.Arg("plan", "The plan file to execute.").Required().ExistingFileVar(&cmd.plan)
	run.Flag("output", "Output format.").Short('o').Default("table").EnumVar(&cmd.output, "table", "csv")
	run.Flag("batch-size", "Maximum number of rows per batch read from data sources. Overrides the plan file.").IntVar(&cmd.batchSize)
}

// engineConfig merges the engine block of a plan file with the command line.
// Unset values fall back to the defaults registered by [engine.Config].
func engineConfig(file engine.Config, batchSize int) engine.Config {
	var cfg engine.Config
	cfg.RegisterFlags(flag.NewFlagSet("engine", flag.ContinueOnError))

	if file.BatchSize != 0 {
		cfg.BatchSize = file.BatchSize
	}
	if batchSize != 0 {
		cfg.BatchSize = batchSize
	}
	return cfg
}

func (cmd *runCommand) run(_ *kingpin.ParseContext) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fs, f, dir, err := loadPlanFile(cmd.plan)
	if err != nil {
		exitWithErr(err)
	}

	cfg := engineConfig(f.Engine, cmd.batchSize)

	e, err := engine.New(engine.Params{Logger: logger, Config: cfg})
	if err != nil {
		exitWithErr(err)
	}

	plan, err := f.Build(fs, planfile.Options{BaseDir: dir, BatchSize: cfg.BatchSize, Allocator: e.Allocator()})
	if err != nil {
		exitWithErr(err)
	}
	s, err := plan.Schema()
	if err != nil {
		exitWithErr(err)
	}

	var w resultWriter
	switch cmd.output {
	case "csv":
		w = newCSVWriter(os.Stdout, s, e.Allocator())
	default:
		w = newTableWriter(os.Stdout, s)
	}

	start := time.Now()
	p, err := e.Execute(ctx, plan)
	if err != nil {
		exitWithErr(err)
	}
	defer p.Close()

	var rows, batches uint64
	for {
		b, err := p.Read(ctx)
		if errors.Is(err, executor.EOF) {
			break
		} else if err != nil {
			exitWithErr(fmt.Errorf("executing plan: %w", err))
		}
		rows += uint64(b.NumRows())
		batches++

		err = w.Write(b)
		b.Release()
		if err != nil {
			exitWithErr(fmt.Errorf("writing result: %w", err))
		}
	}
	if err := w.Flush(); err != nil {
		exitWithErr(fmt.Errorf("writing result: %w", err))
	}
	level.Debug(logger).Log("msg", "wrote result", "format", cmd.output)

	bold := color.New(color.Bold)
	bold.Fprintln(os.Stderr, "Result:")
	fmt.Fprintf(os.Stderr, "\trows: %s, batches: %s, duration: %v\n",
		humanize.Comma(int64(rows)),
		humanize.Comma(int64(batches)),
		time.Since(start).Round(time.Microsecond),
	)
	return nil
}
