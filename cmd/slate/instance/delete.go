// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package instance

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/slateworks/slate/cmd/slate/cli"
)

// deleteParams holds the parameters for the instance delete command.
type deleteParams struct {
	cli.BrokerConfig
	cli.JSONOutput
}

func deleteCommand() *cli.Command {
	var params deleteParams

	return &cli.Command{
		Name:    "delete",
		Summary: "Delete an instance",
		Description: `Delete an HLSS instance. The broker drops the instance's stored frames,
removes it from every device rotation (promoting the next assignment on
devices where it was active), revokes its access token, and asks the
backend to tear down its state. A backend that has already forgotten
the instance does not block the delete.`,
		Usage: "slate instance delete <instance-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Delete an instance",
				Command:     "slate instance delete inst_e5f6a7b8c9d0",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("delete", &params)
		},
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: slate instance delete <instance-id>")
			}
			if len(args) > 1 {
				return fmt.Errorf("unexpected argument: %s", args[1])
			}
			instanceID := args[0]

			ctx, cancel := context.WithTimeout(context.Background(), params.Timeout)
			defer cancel()

			client, err := params.BrokerConfig.Client()
			if err != nil {
				return err
			}

			if err := client.DeleteInstance(ctx, instanceID); err != nil {
				return err
			}

			if done, err := params.EmitJSON(map[string]string{
				"status":      "deleted",
				"instance_id": instanceID,
			}); done {
				return err
			}

			fmt.Fprintf(os.Stdout, "Deleted %s\n", instanceID)
			return nil
		},
	}
}
