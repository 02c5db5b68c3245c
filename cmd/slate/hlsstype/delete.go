// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package hlsstype

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/slateworks/slate/cmd/slate/cli"
)

// deleteParams holds the parameters for the hlss-type delete command.
type deleteParams struct {
	cli.BrokerConfig
	cli.JSONOutput
}

func deleteCommand() *cli.Command {
	var params deleteParams

	return &cli.Command{
		Name:    "delete",
		Summary: "Delete an HLSS type",
		Description: `Delete an HLSS type. The broker refuses to delete a type that still has
instances; delete or migrate them first.`,
		Usage: "slate hlss-type delete <type-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Remove a retired backend",
				Command:     "slate hlss-type delete weather",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("delete", &params)
		},
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: slate hlss-type delete <type-id>")
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

			if err := client.DeleteHLSSType(ctx, typeID); err != nil {
				return err
			}

			if done, err := params.EmitJSON(map[string]string{
				"status":  "deleted",
				"type_id": typeID,
			}); done {
				return err
			}

			fmt.Fprintf(os.Stdout, "Deleted %s\n", typeID)
			return nil
		},
	}
}
