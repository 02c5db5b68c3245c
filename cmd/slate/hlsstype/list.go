// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package hlsstype

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/slateworks/slate/cmd/slate/cli"
)

// listParams holds the parameters for the hlss-type list command.
type listParams struct {
	cli.BrokerConfig
	cli.JSONOutput
}

func listCommand() *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List HLSS backend types",
		Description: `List every HLSS type registered with the broker, with its base URL,
default geometry, and active flag.`,
		Usage: "slate hlss-type list [flags]",
		Examples: []cli.Example{
			{
				Description: "List registered backends",
				Command:     "slate hlss-type list",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}

			ctx, cancel := context.WithTimeout(context.Background(), params.Timeout)
			defer cancel()

			client, err := params.BrokerConfig.Client()
			if err != nil {
				return err
			}

			types, err := client.ListHLSSTypes(ctx)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(types); done {
				return err
			}

			if len(types) == 0 {
				fmt.Fprintln(os.Stderr, "no HLSS types registered")
				return nil
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(writer, "TYPE\tNAME\tBASE URL\tDEFAULT DISPLAY\tACTIVE\n")
			for _, hlssType := range types {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%t\n",
					hlssType.TypeID,
					hlssType.Name,
					hlssType.BaseURL,
					formatDefaults(hlssType.DefaultWidth, hlssType.DefaultHeight, hlssType.DefaultBitDepth),
					hlssType.IsActive,
				)
			}
			return writer.Flush()
		},
	}
}

// formatDefaults renders a type's default geometry, or "-" when the
// type leaves geometry to the broker default.
func formatDefaults(width, height, bitDepth int) string {
	if width == 0 && height == 0 && bitDepth == 0 {
		return "-"
	}
	return fmt.Sprintf("%dx%d@%dbpp", width, height, bitDepth)
}
