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

// frameStatusParams holds the parameters for the frame-status command.
type frameStatusParams struct {
	cli.BrokerConfig
	cli.JSONOutput
	Check bool `json:"check" flag:"check" desc:"exit 1 when the frames are out of sync"`
}

func frameStatusCommand() *cli.Command {
	var params frameStatusParams

	return &cli.Command{
		Name:    "frame-status",
		Summary: "Compare broker and backend frames",
		Description: `Compare the frame the broker holds for an instance against the frame
its backend currently serves, by content hash. The two drift when the
broker restarts with a cold frame store or a backend push was lost.

With --check, the command exits 1 when the frames are out of sync (and
0 when they match), so it can drive monitoring and cron checks. Use
"slate instance sync-frame" to repair a drift.`,
		Usage: "slate instance frame-status <instance-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Inspect an instance's frame state",
				Command:     "slate instance frame-status inst_e5f6a7b8c9d0",
			},
			{
				Description: "Fail a health check on drift",
				Command:     "slate instance frame-status inst_e5f6a7b8c9d0 --check",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("frame-status", &params)
		},
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: slate instance frame-status <instance-id>")
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

			result, err := client.FrameStatus(ctx, instanceID)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(result); done {
				if err != nil {
					return err
				}
				return checkExit(params.Check, result)
			}

			printFrameSync(result)
			return checkExit(params.Check, result)
		},
	}
}

// syncFrameParams holds the parameters for the sync-frame command.
type syncFrameParams struct {
	cli.BrokerConfig
	cli.JSONOutput
}

func syncFrameCommand() *cli.Command {
	var params syncFrameParams

	return &cli.Command{
		Name:    "sync-frame",
		Summary: "Pull the backend's current frame",
		Description: `Fetch an instance's current frame from its backend and store it in the
broker, replacing whatever the broker held. Devices pick the new frame
up on their next poll. A backend with no frame yet is reported, not
treated as an error.`,
		Usage: "slate instance sync-frame <instance-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Repair a frame drift",
				Command:     "slate instance sync-frame inst_e5f6a7b8c9d0",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("sync-frame", &params)
		},
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: slate instance sync-frame <instance-id>")
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

			result, err := client.SyncFrame(ctx, instanceID)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(result); done {
				return err
			}

			printFrameSync(result)
			return nil
		},
	}
}

// printFrameSync renders a frame comparison as key-value lines.
func printFrameSync(result *brokerclient.FrameSync) {
	fmt.Fprintf(os.Stdout, "Instance:       %s (%s)\n", result.InstanceID, result.InstanceName)
	fmt.Fprintf(os.Stdout, "Broker frame:   %s\n", describeFrame(result.BrokerHasFrame, result.BrokerFrameHash))
	fmt.Fprintf(os.Stdout, "Backend frame:  %s\n", describeFrame(result.BackendHasFrame, result.BackendFrameHash))
	fmt.Fprintf(os.Stdout, "In sync:        %t\n", result.InSync)
	if result.ActionTaken != "" {
		fmt.Fprintf(os.Stdout, "Action:         %s\n", result.ActionTaken)
	}
	if result.Error != "" {
		fmt.Fprintf(os.Stdout, "Error:          %s\n", result.Error)
	}
}

func describeFrame(hasFrame bool, hash string) string {
	if !hasFrame {
		return "(none)"
	}
	if hash == "" {
		return "present"
	}
	return hash
}

// checkExit converts an out-of-sync result into exit code 1 when
// --check is set.
func checkExit(check bool, result *brokerclient.FrameSync) error {
	if check && !result.InSync {
		return &cli.ExitError{Code: 1}
	}
	return nil
}
