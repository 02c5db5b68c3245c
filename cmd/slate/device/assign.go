// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/slateworks/slate/cmd/slate/cli"
)

// assignParams holds the parameters shared by the assignment commands.
type assignParams struct {
	cli.BrokerConfig
	cli.JSONOutput
}

func assignCommand() *cli.Command {
	var params assignParams

	return &cli.Command{
		Name:    "assign",
		Summary: "Add an instance to a device's rotation",
		Description: `Append an HLSS instance to the end of a device's rotation. The first
assignment automatically becomes the device's active instance; repeat
assignments of the same instance are no-ops.`,
		Usage: "slate device assign <device-id> <instance-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Assign an instance to a device",
				Command:     "slate device assign dev_a1b2c3d4e5f6 inst_e5f6a7b8c9d0",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("assign", &params)
		},
		Run: func(args []string) error {
			deviceID, instanceID, err := devicePair(args, "assign")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), params.Timeout)
			defer cancel()

			client, err := params.BrokerConfig.Client()
			if err != nil {
				return err
			}

			result, err := client.AssignInstance(ctx, deviceID, instanceID)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(result); done {
				return err
			}

			switch {
			case !result.Created:
				fmt.Fprintf(os.Stdout, "%s is already assigned to %s\n", instanceID, deviceID)
			case result.BecameActive:
				fmt.Fprintf(os.Stdout, "Assigned %s to %s (now active)\n", instanceID, deviceID)
			default:
				fmt.Fprintf(os.Stdout, "Assigned %s to %s\n", instanceID, deviceID)
			}
			return nil
		},
	}
}

func unassignCommand() *cli.Command {
	var params assignParams

	return &cli.Command{
		Name:    "unassign",
		Summary: "Remove an instance from a device's rotation",
		Description: `Remove an HLSS instance from a device's rotation. If the removed
instance was active, the broker promotes the next assignment in
rotation order (or clears the active instance when none remain).`,
		Usage: "slate device unassign <device-id> <instance-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Remove an instance from a device",
				Command:     "slate device unassign dev_a1b2c3d4e5f6 inst_e5f6a7b8c9d0",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("unassign", &params)
		},
		Run: func(args []string) error {
			deviceID, instanceID, err := devicePair(args, "unassign")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), params.Timeout)
			defer cancel()

			client, err := params.BrokerConfig.Client()
			if err != nil {
				return err
			}

			activeID, err := client.UnassignInstance(ctx, deviceID, instanceID)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(map[string]string{
				"status":             "unassigned",
				"active_instance_id": activeID,
			}); done {
				return err
			}

			fmt.Fprintf(os.Stdout, "Unassigned %s from %s (active: %s)\n", instanceID, deviceID, orDash(activeID))
			return nil
		},
	}
}

func activateCommand() *cli.Command {
	var params assignParams

	return &cli.Command{
		Name:    "activate",
		Summary: "Set a device's active instance",
		Description: `Make one of a device's assigned instances the active one — the instance
whose frames the device displays. The instance must already be assigned;
use "slate device assign" first if it is not.`,
		Usage: "slate device activate <device-id> <instance-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Switch a device to a specific instance",
				Command:     "slate device activate dev_a1b2c3d4e5f6 inst_e5f6a7b8c9d0",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("activate", &params)
		},
		Run: func(args []string) error {
			deviceID, instanceID, err := devicePair(args, "activate")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), params.Timeout)
			defer cancel()

			client, err := params.BrokerConfig.Client()
			if err != nil {
				return err
			}

			if err := client.SetActiveInstance(ctx, deviceID, instanceID); err != nil {
				return err
			}

			if done, err := params.EmitJSON(map[string]string{
				"status":             "ok",
				"active_instance_id": instanceID,
			}); done {
				return err
			}

			fmt.Fprintf(os.Stdout, "%s is now active on %s\n", instanceID, deviceID)
			return nil
		},
	}
}

// cycleParams holds the parameters for the device cycle command.
type cycleParams struct {
	cli.BrokerConfig
	cli.JSONOutput
	Direction string `json:"direction" flag:"direction" desc:"rotation direction (next or prev)" default:"next"`
}

func cycleCommand() *cli.Command {
	var params cycleParams

	return &cli.Command{
		Name:    "cycle",
		Summary: "Step a device through its rotation",
		Description: `Advance a device's active instance to the next (or previous) assignment
in its rotation, wrapping at the ends. This is the same operation the
device's highlight buttons perform; running it from the CLI is useful
for checking a rotation without touching the panel.

Devices with fewer than two assignments are left unchanged.`,
		Usage: "slate device cycle <device-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Advance to the next instance",
				Command:     "slate device cycle dev_a1b2c3d4e5f6",
			},
			{
				Description: "Step backwards through the rotation",
				Command:     "slate device cycle dev_a1b2c3d4e5f6 --direction prev",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("cycle", &params)
		},
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: slate device cycle <device-id>")
			}
			if len(args) > 1 {
				return fmt.Errorf("unexpected argument: %s", args[1])
			}
			deviceID := args[0]

			if params.Direction != "next" && params.Direction != "prev" {
				return fmt.Errorf("--direction must be next or prev, got %q", params.Direction)
			}

			ctx, cancel := context.WithTimeout(context.Background(), params.Timeout)
			defer cancel()

			client, err := params.BrokerConfig.Client()
			if err != nil {
				return err
			}

			result, err := client.Cycle(ctx, deviceID, params.Direction)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(result); done {
				return err
			}

			if !result.Cycled {
				fmt.Fprintf(os.Stdout, "%s has fewer than two assignments; active instance unchanged (%s)\n",
					deviceID, orDash(result.ActiveInstanceID))
				return nil
			}
			fmt.Fprintf(os.Stdout, "%s is now showing %s\n", deviceID, result.ActiveInstanceID)
			return nil
		},
	}
}

// devicePair validates the <device-id> <instance-id> positional pair
// shared by assign, unassign, and activate.
func devicePair(args []string, verb string) (deviceID, instanceID string, err error) {
	if len(args) < 2 {
		return "", "", fmt.Errorf("usage: slate device %s <device-id> <instance-id>", verb)
	}
	if len(args) > 2 {
		return "", "", fmt.Errorf("unexpected argument: %s", args[2])
	}
	return args[0], args[1], nil
}
