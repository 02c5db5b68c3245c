// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package instance

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/slateworks/slate/cmd/slate/cli"
	"github.com/slateworks/slate/lib/brokerclient"
)

// updateParams holds the parameters for the instance update command.
type updateParams struct {
	cli.BrokerConfig
	cli.JSONOutput
	Name     string `json:"name"      flag:"name"      desc:"new instance name"`
	Width    int    `json:"width"     flag:"width"     desc:"new display width in pixels"`
	Height   int    `json:"height"    flag:"height"    desc:"new display height in pixels"`
	BitDepth int    `json:"bit_depth" flag:"bit-depth" desc:"new display bits per pixel"`
}

func updateCommand() *cli.Command {
	var params updateParams
	var flagSet *pflag.FlagSet

	return &cli.Command{
		Name:    "update",
		Summary: "Update an instance",
		Description: `Update an instance's name or display geometry. Only the fields whose
flags are given change; everything else is left as is.

Changing the geometry marks the instance dirty so its backend re-renders
at the new size on the next request.`,
		Usage: "slate instance update <instance-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Rename an instance",
				Command:     "slate instance update inst_e5f6a7b8c9d0 --name 'Lobby Weather (North)'",
			},
			{
				Description: "Move an instance to a larger panel",
				Command:     "slate instance update inst_e5f6a7b8c9d0 --width 1872 --height 1404",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet = cli.FlagsFromParams("update", &params)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: slate instance update <instance-id> [flags]")
			}
			if len(args) > 1 {
				return fmt.Errorf("unexpected argument: %s", args[1])
			}
			instanceID := args[0]

			// Only flags the user actually set go into the patch; the
			// broker leaves nil fields unchanged.
			var request brokerclient.UpdateInstanceRequest
			if flagSet.Changed("name") {
				request.Name = &params.Name
			}
			if flagSet.Changed("width") {
				request.DisplayWidth = &params.Width
			}
			if flagSet.Changed("height") {
				request.DisplayHeight = &params.Height
			}
			if flagSet.Changed("bit-depth") {
				request.DisplayBitDepth = &params.BitDepth
			}
			if request == (brokerclient.UpdateInstanceRequest{}) {
				return fmt.Errorf("nothing to update: set --name, --width, --height, or --bit-depth")
			}

			ctx, cancel := context.WithTimeout(context.Background(), params.Timeout)
			defer cancel()

			client, err := params.BrokerConfig.Client()
			if err != nil {
				return err
			}

			updated, err := client.UpdateInstance(ctx, instanceID, request)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(updated); done {
				return err
			}

			fmt.Fprintf(os.Stdout, "Updated %s\n", updated.InstanceID)
			return nil
		},
	}
}
