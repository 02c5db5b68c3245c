// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/slateworks/slate/cmd/slate/cli"
	"github.com/slateworks/slate/lib/brokerclient"
)

// transitionParams holds the parameters shared by the authorization
// lifecycle commands (authorize, reject, revoke, reauthorize).
type transitionParams struct {
	cli.BrokerConfig
	cli.JSONOutput
}

// transition describes one authorization-lifecycle subcommand. The four
// commands differ only in which endpoint they hit and how they announce
// the result, so call is a method expression on [brokerclient.Client].
type transition struct {
	name        string
	summary     string
	description string
	past        string
	call        func(*brokerclient.Client, context.Context, string) (*brokerclient.Device, error)
}

func transitionCommand(spec transition) *cli.Command {
	var params transitionParams

	return &cli.Command{
		Name:        spec.name,
		Summary:     spec.summary,
		Description: spec.description,
		Usage:       fmt.Sprintf("slate device %s <device-id> [flags]", spec.name),
		Examples: []cli.Example{
			{
				Description: spec.summary,
				Command:     fmt.Sprintf("slate device %s dev_a1b2c3d4e5f6", spec.name),
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams(spec.name, &params)
		},
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: slate device %s <device-id>", spec.name)
			}
			if len(args) > 1 {
				return fmt.Errorf("unexpected argument: %s", args[1])
			}
			deviceID := args[0]

			ctx, cancel := context.WithTimeout(context.Background(), params.Timeout)
			defer cancel()

			client, err := params.BrokerConfig.Client()
			if err != nil {
				return err
			}

			device, err := spec.call(client, ctx, deviceID)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(device); done {
				return err
			}

			fmt.Fprintf(os.Stdout, "%s %s (status: %s)\n", spec.past, device.DeviceID, device.AuthStatus)
			return nil
		},
	}
}

func authorizeCommand() *cli.Command {
	return transitionCommand(transition{
		name:    "authorize",
		summary: "Authorize a pending device",
		description: `Authorize a device so it can fetch frames and submit input. The device
picks up its credentials on its next poll; until then it keeps polling
the auth status endpoint.`,
		past: "Authorized",
		call: (*brokerclient.Client).AuthorizeDevice,
	})
}

func rejectCommand() *cli.Command {
	return transitionCommand(transition{
		name:    "reject",
		summary: "Reject a pending device",
		description: `Reject a device's registration. The device learns of the rejection on
its next auth status poll and backs off. A rejected device can be
admitted later with "slate device reauthorize".`,
		past: "Rejected",
		call: (*brokerclient.Client).RejectDevice,
	})
}

func revokeCommand() *cli.Command {
	return transitionCommand(transition{
		name:    "revoke",
		summary: "Revoke an authorized device",
		description: `Revoke a device's authorization. Its access and refresh tokens stop
working immediately, so the device falls back to registration polling
and waits in the revoked state. Use this for lost or retired panels;
"slate device reauthorize" restores one that comes back.`,
		past: "Revoked",
		call: (*brokerclient.Client).RevokeDevice,
	})
}

func reauthorizeCommand() *cli.Command {
	return transitionCommand(transition{
		name:    "reauthorize",
		summary: "Restore a revoked or rejected device",
		description: `Return a revoked or rejected device to the authorized state. The device
re-acquires tokens through its normal polling loop without having to
register again, keeping its device ID and assignments.`,
		past: "Reauthorized",
		call: (*brokerclient.Client).ReauthorizeDevice,
	})
}
