// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package hlsstype

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/slateworks/slate/cmd/slate/cli"
)

// showParams holds the parameters for the hlss-type show command.
type showParams struct {
	cli.BrokerConfig
	cli.JSONOutput
}

func showCommand() *cli.Command {
	var params showParams

	return &cli.Command{
		Name:    "show",
		Summary: "Show one HLSS type in detail",
		Description: `Show a single HLSS type. The auth token is write-only and never
included.`,
		Usage: "slate hlss-type show <type-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Inspect the weather backend",
				Command:     "slate hlss-type show weather",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: slate hlss-type show <type-id>")
			}
			if len(args) > 1 {
				return fmt.Errorf("unexpected argument: %s", args[1])
			}
			typeID := args[0]

			ctx, cancel := context.WithTimeout(context.Background(), params.Timeout)
			defer cancel()

			client, err := params.BrokerConfig.Client()
			if err != nil {
				return err
			}

			hlssType, err := client.GetHLSSType(ctx, typeID)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(hlssType); done {
				return err
			}

			fmt.Fprintf(os.Stdout, "Type ID:          %s\n", hlssType.TypeID)
			fmt.Fprintf(os.Stdout, "Name:             %s\n", hlssType.Name)
			if hlssType.Description != "" {
				fmt.Fprintf(os.Stdout, "Description:      %s\n", hlssType.Description)
			}
			fmt.Fprintf(os.Stdout, "Base URL:         %s\n", hlssType.BaseURL)
			fmt.Fprintf(os.Stdout, "Default display:  %s\n", formatDefaults(hlssType.DefaultWidth, hlssType.DefaultHeight, hlssType.DefaultBitDepth))
			fmt.Fprintf(os.Stdout, "Active:           %t\n", hlssType.IsActive)
			fmt.Fprintf(os.Stdout, "Created:          %s\n", hlssType.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(os.Stdout, "Updated:          %s\n", hlssType.UpdatedAt.Format(time.RFC3339))
			return nil
		},
	}
}
