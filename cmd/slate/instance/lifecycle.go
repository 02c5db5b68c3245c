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

// lifecycleParams holds the parameters shared by the init and refresh
// commands.
type lifecycleParams struct {
	cli.BrokerConfig
	cli.JSONOutput
}

func initCommand() *cli.Command {
	var params lifecycleParams

	return &cli.Command{
		Name:    "init",
		Summary: "Run the backend init handshake",
		Description: `Run the init handshake with an instance's HLSS backend: the broker
sends the backend the instance's callback URLs, access token, and
display capabilities, and records whether the backend wants interactive
configuration before it can render.

Safe to re-run: a backend that is already initialized just re-reports
its state. Use this for instances created without --init, or to retry
after a backend outage left an instance in the pending state.`,
		Usage: "slate instance init <instance-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Initialize a pending instance",
				Command:     "slate instance init inst_e5f6a7b8c9d0",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("init", &params)
		},
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: slate instance init <instance-id>")
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

			instance, err := client.InitializeInstance(ctx, instanceID)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(instance); done {
				return err
			}

			fmt.Fprintf(os.Stdout, "Initialized %s (lifecycle: %s)\n", instance.InstanceID, instance.Lifecycle)
			if instance.NeedsConfiguration && instance.ConfigurationURL != "" {
				fmt.Fprintf(os.Stdout, "Configure at: %s\n", instance.ConfigurationURL)
			}
			return nil
		},
	}
}

func refreshCommand() *cli.Command {
	var params lifecycleParams

	return &cli.Command{
		Name:    "refresh",
		Summary: "Re-fetch an instance's backend status",
		Description: `Ask an instance's HLSS backend for its current status and fold the
answer into the broker's lifecycle state. Useful when a backend finished
its interactive configuration but the instance still shows
needs_configuration, or to confirm a backend is reachable.`,
		Usage: "slate instance refresh <instance-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Refresh an instance's status",
				Command:     "slate instance refresh inst_e5f6a7b8c9d0",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("refresh", &params)
		},
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: slate instance refresh <instance-id>")
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

			instance, err := client.RefreshInstanceStatus(ctx, instanceID)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(instance); done {
				return err
			}

			fmt.Fprintf(os.Stdout, "%s lifecycle: %s (screen: %s)\n",
				instance.InstanceID, instance.Lifecycle, orDash(instance.ActiveScreen))
			return nil
		},
	}
}
