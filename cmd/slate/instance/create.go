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

// createParams holds the parameters for the instance create command.
type createParams struct {
	cli.BrokerConfig
	cli.JSONOutput
	Name     string `json:"name"      flag:"name"      desc:"human-readable instance name (required)"`
	TypeID   string `json:"type_id"   flag:"type"      desc:"HLSS type ID (required)"`
	Width    int    `json:"width"     flag:"width"     desc:"display width in pixels (default: the type's)"`
	Height   int    `json:"height"    flag:"height"    desc:"display height in pixels (default: the type's)"`
	BitDepth int    `json:"bit_depth" flag:"bit-depth" desc:"display bits per pixel (default: the type's)"`
	Init     bool   `json:"init"      flag:"init"      desc:"run the backend init handshake immediately"`
}

func createCommand() *cli.Command {
	var params createParams

	return &cli.Command{
		Name:    "create",
		Summary: "Create an HLSS instance",
		Description: `Create an instance of an HLSS type. The broker mints an access token
for the backend's callbacks and prints it once, in the create response —
it cannot be retrieved later, only rotated by deleting and recreating
the instance.

The display geometry defaults to the type's default geometry (or the
broker-wide default when the type has none); --width, --height, and
--bit-depth override it per instance.

With --init, the backend init handshake runs immediately. Without it
the instance stays pending until "slate instance init".`,
		Usage: "slate instance create --name <name> --type <type-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Create and initialize a weather panel",
				Command:     "slate instance create --name 'Lobby Weather' --type weather --init",
			},
			{
				Description: "Create a panel with explicit geometry",
				Command:     "slate instance create --name 'Door Sign' --type calendar --width 400 --height 300 --bit-depth 1",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("create", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			if params.Name == "" {
				return fmt.Errorf("--name is required")
			}
			if params.TypeID == "" {
				return fmt.Errorf("--type is required")
			}

			ctx, cancel := context.WithTimeout(context.Background(), params.Timeout)
			defer cancel()

			client, err := params.BrokerConfig.Client()
			if err != nil {
				return err
			}

			created, err := client.CreateInstance(ctx, brokerclient.CreateInstanceRequest{
				Name:            params.Name,
				TypeID:          params.TypeID,
				DisplayWidth:    params.Width,
				DisplayHeight:   params.Height,
				DisplayBitDepth: params.BitDepth,
				AutoInitialize:  params.Init,
			})
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(created); done {
				return err
			}

			fmt.Fprintf(os.Stdout, "Instance ID:   %s\n", created.InstanceID)
			fmt.Fprintf(os.Stdout, "Access token:  %s\n", created.AccessToken)
			fmt.Fprintf(os.Stdout, "Lifecycle:     %s\n", created.Lifecycle)
			if created.NeedsConfiguration && created.ConfigurationURL != "" {
				fmt.Fprintf(os.Stdout, "Configure at:  %s\n", created.ConfigurationURL)
			}
			return nil
		},
	}
}
