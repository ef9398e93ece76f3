// Command rq executes query plans declared in YAML files against CSV and
// Parquet data.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/afero"

	"github.com/rqdb/rq/pkg/engine/planfile"
)

var (
	logger   log.Logger = log.NewNopLogger()
	logLevel string
)

func main() {
	app := kingpin.New("rq", "A vectorized query engine for CSV and Parquet files.")
	app.HelpFlag.Short('h')
	app.Flag("log.level", "Only log messages with the given severity or above. One of: [debug, info, warn, error]").
		Default("warn").EnumVar(&logLevel, "debug", "info", "warn", "error")
	app.PreAction(func(_ *kingpin.ParseContext) error {
		logger = newLogger(logLevel)
		return nil
	})

	addRunCommand(app)
	addExplainCommand(app)
	addSchemaCommand(app)

	kingpin.MustParse(app.Parse(os.Args[1:]))
}

func newLogger(lvl string) log.Logger {
	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	l = log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	var opt level.Option
	switch lvl {
	case "debug":
		opt = level.AllowDebug()
	case "info":
		opt = level.AllowInfo()
	case "error":
		opt = level.AllowError()
	default:
		opt = level.AllowWarn()
	}
	return level.NewFilter(l, opt)
}

// loadPlanFile reads the plan file at name. Returned paths are absolute so
// that data sources resolve relative to the plan file.
func loadPlanFile(name string) (afero.Fs, *planfile.File, string, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, nil, "", err
	}
	fs := afero.NewBasePathFs(afero.NewOsFs(), "/")

	f, err := planfile.ParseFile(fs, abs)
	if err != nil {
		return nil, nil, "", err
	}
	return fs, f, filepath.Dir(abs), nil
}

func exitWithErr(err error) {
	fmt.Fprintf(os.Stderr, "rq: %v\n", err)
	os.Exit(1)
}
