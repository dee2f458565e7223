package cli

import (
	"fmt"
	"strings"

	"github.com/devicelab-dev/gesture-runner/pkg/validator"
	"github.com/urfave/cli/v2"
)

var listCommand = &cli.Command{
	Name:      "list",
	Usage:     "Validate and list scenarios without running them",
	ArgsUsage: "[scenario-file | folder | glob | built-in name]...",
	Description: `Parse and validate scenarios and print a summary. Every error is
reported; the exit code is 1 when any scenario is invalid. With no arguments
every built-in scenario is listed.

Examples:
  gesture-runner list
  gesture-runner list --steps drag-drop
  gesture-runner list scenarios/`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "steps",
			Usage: "Print each step",
		},
		&cli.StringSliceFlag{
			Name:  "include-tags",
			Usage: "Only list scenarios with these tags",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-tags",
			Usage: "Skip scenarios with these tags",
		},
	},
	Action: runList,
}

func runList(c *cli.Context) error {
	result := validator.New(c.StringSlice("include-tags"), c.StringSlice("exclude-tags")).Validate(c.Args().Slice())

	for _, sc := range result.Scenarios {
		fmt.Printf("%s%s%s  %s(%s, %d steps)%s\n",
			color(colorBold), sc.Name(), color(colorReset),
			color(colorGray), sc.SourcePath, len(sc.Steps), color(colorReset))
		if sc.Config.Description != "" {
			fmt.Printf("  %s\n", sc.Config.Description)
		}
		if len(sc.Config.Tags) > 0 {
			fmt.Printf("  tags: %s\n", strings.Join(sc.Config.Tags, ", "))
		}
		if c.Bool("steps") {
			for i, step := range sc.Steps {
				fmt.Printf("  %2d. %s\n", i+1, step.Describe())
			}
		}
	}
	for _, e := range result.Errors {
		fmt.Printf("%s✗%s %v\n", color(colorRed), color(colorReset), e)
	}
	if !result.IsValid() {
		return cli.Exit(fmt.Sprintf("%d scenario validation error(s)", len(result.Errors)), 1)
	}
	return nil
}
