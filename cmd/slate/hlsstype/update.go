// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package hlsstype

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/slateworks/slate/cmd/slate/cli"
	"github.com/slateworks/slate/lib/brokerclient"
)

// updateParams holds the parameters for the hlss-type update command.
type updateParams struct {
	cli.BrokerConfig
	cli.JSONOutput
	Name            string `json:"name"              flag:"name"              desc:"new backend name"`
	Description     string `json:"description"       flag:"description"       desc:"new description"`
	BaseURL         string `json:"base_url"          flag:"base-url"          desc:"new backend API root"`
	AuthToken       string `json:"auth_token"        flag:"auth-token"        desc:"new bearer token"`
	AuthTokenFile   string `json:"auth_token_file"   flag:"auth-token-file"   desc:"file containing the new bearer token"`
	DefaultWidth    int    `json:"default_width"     flag:"default-width"     desc:"new default display width"`
	DefaultHeight   int    `json:"default_height"    flag:"default-height"    desc:"new default display height"`
	DefaultBitDepth int    `json:"default_bit_depth" flag:"default-bit-depth" desc:"new default bits per pixel"`
	Active          bool   `json:"active"            flag:"active"            desc:"activate (--active) or deactivate (--active=false) the type" default:"true"`
}

func updateCommand() *cli.Command {
	var params updateParams
	var flagSet *pflag.FlagSet

	return &cli.Command{
		Name:    "update",
		Summary: "Update an HLSS type",
		Description: `Patch an HLSS type. Only the fields whose flags are given change.

Rotating the auth token (--auth-token or --auth-token-file) takes
effect on the broker's next request to the backend. Deactivating a type
(--active=false) blocks new instances of it; existing instances keep
running.`,
		Usage: "slate hlss-type update <type-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Point a backend at a new host",
				Command:     "slate hlss-type update weather --base-url http://weather-2:9000/api",
			},
			{
				Description: "Rotate the backend's token",
				Command:     "slate hlss-type update weather --auth-token-file ./weather-token-new",
			},
			{
				Description: "Deactivate a backend",
				Command:     "slate hlss-type update weather --active=false",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet = cli.FlagsFromParams("update", &params)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: slate hlss-type update <type-id> [flags]")
			}
			if len(args) > 1 {
				return fmt.Errorf("unexpected argument: %s", args[1])
			}
			typeID := args[0]

			// Only flags the user actually set go into the patch; the
			// broker leaves nil fields unchanged.
			var request brokerclient.UpdateHLSSTypeRequest
			changed := false
			if flagSet.Changed("name") {
				request.Name = &params.Name
				changed = true
			}
			if flagSet.Changed("description") {
				request.Description = &params.Description
				changed = true
			}
			if flagSet.Changed("base-url") {
				request.BaseURL = &params.BaseURL
				changed = true
			}
			if flagSet.Changed("auth-token") || flagSet.Changed("auth-token-file") {
				token, err := resolveAuthToken(params.AuthToken, params.AuthTokenFile)
				if err != nil {
					return err
				}
				request.AuthToken = &token
				changed = true
			}
			if flagSet.Changed("default-width") {
				request.DefaultWidth = &params.DefaultWidth
				changed = true
			}
			if flagSet.Changed("default-height") {
				request.DefaultHeight = &params.DefaultHeight
				changed = true
			}
			if flagSet.Changed("default-bit-depth") {
				request.DefaultBitDepth = &params.DefaultBitDepth
				changed = true
			}
			if flagSet.Changed("active") {
				request.IsActive = &params.Active
				changed = true
			}
			if !changed {
				return fmt.Errorf("nothing to update: set at least one field flag")
			}

			ctx, cancel := context.WithTimeout(context.Background(), params.Timeout)
			defer cancel()

			client, err := params.BrokerConfig.Client()
			if err != nil {
				return err
			}

			updated, err := client.UpdateHLSSType(ctx, typeID, request)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(updated); done {
				return err
			}

			fmt.Fprintf(os.Stdout, "Updated %s\n", updated.TypeID)
			return nil
		},
	}
}
