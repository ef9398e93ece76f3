package main

import (
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/rqdb/rq/pkg/engine/planfile"
	"github.com/rqdb/rq/pkg/engine/planner/physical"
)

// explainCommand prints the plan of a plan file without executing it.
type explainCommand struct {
	plan   string
	format string
}

func addExplainCommand(app *kingpin.Application) {
	cmd := &explainCommand{}
	explain := app.Command("explain", "Print the physical plan of a plan file.").Action(cmd.run)
	explain.Arg("plan", "The plan file to explain.").Required().ExistingFileVar(&cmd.plan)
	explain.Flag("format", "Plan format.").Default("indent").EnumVar(&cmd.format, "indent", "tree")
}

func (cmd *explainCommand) run(_ *kingpin.ParseContext) error {
	fs, f, dir, err := loadPlanFile(cmd.plan)
	if err != nil {
		exitWithErr(err)
	}
	plan, err := f.Build(fs, planfile.Options{BaseDir: dir})
	if err != nil {
		exitWithErr(err)
	}

	switch cmd.format {
	case "tree":
		fmt.Print(physical.PrintAsTree(plan))
	default:
		fmt.Print(physical.Pretty(plan, 0))
	}
	return nil
}
