package main

import (
	"fmt"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/rqdb/rq/pkg/engine/planfile"
)

// schemaCommand prints the schemas of the sources and of the result of a
// plan file.
type schemaCommand struct {
	plan string
}

func addSchemaCommand(app *kingpin.Application) {
	cmd := &schemaCommand{}
	schema := app.Command("schema", "Print the schemas of the sources and result of a plan file.").Action(cmd.run)
	schema.Arg("plan", "The plan file to inspect.").Required().ExistingFileVar(&cmd.plan)
}

func (cmd *schemaCommand) run(_ *kingpin.ParseContext) error {
	fs, f, dir, err := loadPlanFile(cmd.plan)
	if err != nil {
		exitWithErr(err)
	}
	sources, err := f.BuildSources(fs, planfile.Options{BaseDir: dir})
	if err != nil {
		exitWithErr(err)
	}
	plan, err := f.BuildPlan(sources)
	if err != nil {
		exitWithErr(err)
	}
	result, err := plan.Schema()
	if err != nil {
		exitWithErr(err)
	}

	bold := color.New(color.Bold)
	for _, name := range f.SourceNames() {
		bold.Printf("Source %s (%s):\n", name, formatOf(f.Sources[name]))
		for _, field := range sources[name].Schema().Fields {
			fmt.Printf("\t%s\n", field)
		}
	}
	bold.Println("Result:")
	for _, field := range result.Fields {
		fmt.Printf("\t%s\n", field)
	}
	return nil
}

func formatOf(spec planfile.SourceSpec) string {
	if spec.Format == "" {
		return planfile.FormatCSV
	}
	return spec.Format
}
