// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package instance

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/slateworks/slate/cmd/slate/cli"
)

// showParams holds the parameters for the instance show command.
type showParams struct {
	cli.BrokerConfig
	cli.JSONOutput
}

func showCommand() *cli.Command {
	var params showParams

	return &cli.Command{
		Name:    "show",
		Summary: "Show one instance in detail",
		Description: `Show a single HLSS instance: identity, lifecycle, display geometry,
active screen, and the last error its backend reported (if any). The
access token is never shown; it appears only in the create response.`,
		Usage: "slate instance show <instance-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Inspect an instance",
				Command:     "slate instance show inst_e5f6a7b8c9d0",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: slate instance show <instance-id>")
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

			instance, err := client.GetInstance(ctx, instanceID)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(instance); done {
				return err
			}

			fmt.Fprintf(os.Stdout, "Instance ID:    %s\n", instance.InstanceID)
			fmt.Fprintf(os.Stdout, "Name:           %s\n", instance.Name)
			fmt.Fprintf(os.Stdout, "Type:           %s\n", instance.TypeID)
			fmt.Fprintf(os.Stdout, "Lifecycle:      %s\n", instance.Lifecycle)
			if instance.NeedsConfiguration {
				fmt.Fprintf(os.Stdout, "Configure at:   %s\n", orDash(instance.ConfigurationURL))
			}
			fmt.Fprintf(os.Stdout, "Active screen:  %s\n", orDash(instance.ActiveScreen))
			if instance.DisplayWidth > 0 {
				fmt.Fprintf(os.Stdout, "Display:        %dx%d@%dbpp\n",
					instance.DisplayWidth, instance.DisplayHeight, instance.DisplayBitDepth)
			} else {
				fmt.Fprintf(os.Stdout, "Display:        (type default)\n")
			}
			fmt.Fprintf(os.Stdout, "Dirty:          %t\n", instance.Dirty)
			fmt.Fprintf(os.Stdout, "Created:        %s\n", instance.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(os.Stdout, "Initialized:    %s\n", formatTime(instance.InitializedAt))
			if instance.LastError != "" {
				fmt.Fprintf(os.Stdout, "Last error:     %s\n", instance.LastError)
			}
			return nil
		},
	}
}
