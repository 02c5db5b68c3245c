// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package instance

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/slateworks/slate/cmd/slate/cli"
)

// listParams holds the parameters for the instance list command.
type listParams struct {
	cli.BrokerConfig
	cli.JSONOutput
	TypeID string `json:"type_id" flag:"type" desc:"filter by HLSS type ID"`
}

func listCommand() *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List HLSS instances",
		Description: `List every HLSS instance on the broker with its type, lifecycle state,
and active screen. With --type, only instances of that HLSS type are
shown.`,
		Usage: "slate instance list [flags]",
		Examples: []cli.Example{
			{
				Description: "List all instances",
				Command:     "slate instance list",
			},
			{
				Description: "List weather instances as JSON",
				Command:     "slate instance list --type weather --json",
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

			instances, err := client.ListInstances(ctx, params.TypeID)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(instances); done {
				return err
			}

			if len(instances) == 0 {
				if params.TypeID != "" {
					fmt.Fprintf(os.Stderr, "no instances of type %q\n", params.TypeID)
				} else {
					fmt.Fprintln(os.Stderr, "no instances")
				}
				return nil
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(writer, "INSTANCE\tNAME\tTYPE\tLIFECYCLE\tSCREEN\tCREATED\n")
			for _, instance := range instances {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
					instance.InstanceID,
					instance.Name,
					instance.TypeID,
					instance.Lifecycle,
					orDash(instance.ActiveScreen),
					instance.CreatedAt.Format(time.RFC3339),
				)
			}
			return writer.Flush()
		},
	}
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
