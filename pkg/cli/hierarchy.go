package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/devicelab-dev/gesture-runner/pkg/hierarchy"
	"github.com/urfave/cli/v2"
)

var hierarchyCommand = &cli.Command{
	Name:  "hierarchy",
	Usage: "Print the view hierarchy of the connected device",
	Description: `Open a session, print the current page source and close the session.
The raw XML is printed by default; --compact prints one CSV row per element.

Examples:
  gesture-runner hierarchy
  gesture-runner hierarchy --compact
  gesture-runner --device emulator-5554 hierarchy > screen.xml
  gesture-runner --driver mock --mock-source screen.xml hierarchy --compact`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "compact",
			Usage: "Output in CSV format",
		},
	},
	Action: runHierarchy,
}

func runHierarchy(c *cli.Context) error {
	opts, err := loadSessionOptions(c)
	if err != nil {
		return err
	}

	var deviceID string
	if len(opts.Devices) > 0 {
		deviceID = opts.Devices[0]
	}
	factory, err := opts.Factory(deviceID, 0)
	if err != nil {
		return err
	}

	ctx := c.Context
	session, err := factory(ctx)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer func() {
		if err := session.Stop(context.WithoutCancel(ctx)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to stop session: %v\n", err)
		}
	}()

	source, err := session.Source(ctx)
	if err != nil {
		return err
	}

	if !c.Bool("compact") {
		fmt.Println(source)
		return nil
	}
	return writeCompact(source)
}

// writeCompact prints elements that carry text, an id, or a description.
func writeCompact(source string) error {
	nodes, err := hierarchy.Parse(source)
	if err != nil {
		return fmt.Errorf("failed to parse hierarchy: %w", err)
	}

	w := csv.NewWriter(os.Stdout)
	_ = w.Write([]string{"depth", "class", "resource-id", "content-desc", "text", "bounds", "displayed"})
	for _, n := range nodes {
		if n.Text == "" && n.ResourceID == "" && n.ContentDesc == "" {
			continue
		}
		b := n.Bounds
		_ = w.Write([]string{
			strconv.Itoa(n.Depth),
			shortClass(n.ClassName),
			n.ResourceID,
			n.ContentDesc,
			n.Text,
			fmt.Sprintf("[%d,%d][%d,%d]", b.X, b.Y, b.X+b.Width, b.Y+b.Height),
			strconv.FormatBool(n.Displayed),
		})
	}
	w.Flush()
	return w.Error()
}

func shortClass(class string) string {
	if i := strings.LastIndex(class, "."); i >= 0 {
		return class[i+1:]
	}
	return class
}
