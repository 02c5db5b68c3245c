// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/slateworks/slate/cmd/slate/cli"
)

// statusParams holds the parameters for the top-level status command.
type statusParams struct {
	cli.BrokerConfig
	cli.JSONOutput
}

func statusCommand() *cli.Command {
	var params statusParams

	return &cli.Command{
		Name:    "status",
		Summary: "Show broker status",
		Description: `Show a broker's status snapshot: uptime, device counts by auth status,
instance counts by lifecycle, accumulated input events, and frame store
size. This is the first thing to run against a broker you can't explain.`,
		Usage: "slate status [flags]",
		Examples: []cli.Example{
			{
				Description: "Check the local broker",
				Command:     "slate status",
			},
			{
				Description: "Check a remote broker",
				Command:     "slate status --broker-url http://panels.internal:8080 --admin-token-file ./admin-token",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("status", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}

			ctx, cancel := context.WithTimeout(context.Background(), params.Timeout)
			defer cancel()

			client, err := params.BrokerConfig.Client()
			if err != nil {
				return err
			}

			status, err := client.Status(ctx)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(status); done {
				return err
			}

			fmt.Fprintf(os.Stdout, "Broker:        %s\n", status.Version)
			fmt.Fprintf(os.Stdout, "Uptime:        %s\n", status.Uptime)
			fmt.Fprintf(os.Stdout, "Devices:       %s\n", formatCounts(status.Registry.DevicesByStatus))
			fmt.Fprintf(os.Stdout, "Instances:     %s\n", formatCounts(status.Registry.InstancesByLifecycle))
			fmt.Fprintf(os.Stdout, "Input events:  %s\n", humanize.Comma(status.Registry.InputEvents))
			fmt.Fprintf(os.Stdout, "Frames:        %s in %s (%s compressed)\n",
				humanize.Comma(status.Frames.FrameCount),
				humanize.Bytes(uint64(status.Frames.TotalBytes)),
				humanize.Bytes(uint64(status.Frames.StoredBytes)),
			)
			return nil
		},
	}
}

// formatCounts renders a count map as "3 authorized, 1 pending", sorted
// by key for stable output. An empty map renders as "none".
func formatCounts(counts map[string]int64) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%d %s", counts[key], key))
	}
	return strings.Join(parts, ", ")
}
