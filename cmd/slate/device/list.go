// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/slateworks/slate/cmd/slate/cli"
	"github.com/slateworks/slate/lib/brokerclient"
	"github.com/slateworks/slate/lib/schema/display"
)

// listParams holds the parameters for the device list command.
type listParams struct {
	cli.BrokerConfig
	cli.JSONOutput
	Status string `json:"status" flag:"status" desc:"filter by auth status (pending, authorized, rejected, revoked)"`
}

func listCommand() *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List registered devices",
		Description: `List every device registered with the broker. Shows each device's ID,
hardware ID, auth status, panel geometry, active instance, and the time
of its last poll.

With --status, only devices in that auth status are shown.`,
		Usage: "slate device list [flags]",
		Examples: []cli.Example{
			{
				Description: "List all devices",
				Command:     "slate device list",
			},
			{
				Description: "List revoked devices as JSON",
				Command:     "slate device list --status revoked --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
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

			devices, err := client.ListDevices(ctx, params.Status)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(devices); done {
				return err
			}

			if len(devices) == 0 {
				if params.Status != "" {
					fmt.Fprintf(os.Stderr, "no devices with status %q\n", params.Status)
				} else {
					fmt.Fprintln(os.Stderr, "no devices registered")
				}
				return nil
			}

			return printDeviceTable(devices)
		},
	}
}

// pendingParams holds the parameters for the device pending command.
type pendingParams struct {
	cli.BrokerConfig
	cli.JSONOutput
}

func pendingCommand() *cli.Command {
	var params pendingParams

	return &cli.Command{
		Name:    "pending",
		Summary: "List devices awaiting authorization",
		Description: `List devices that have registered but not yet been authorized, oldest
first. Each entry shows the generated device ID, the hardware ID the
device presented, and its panel geometry — enough to match a physical
device against its registration before authorizing it.`,
		Usage: "slate device pending [flags]",
		Examples: []cli.Example{
			{
				Description: "Show the authorization queue",
				Command:     "slate device pending",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("pending", &params)
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

			devices, err := client.PendingDevices(ctx)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(devices); done {
				return err
			}

			if len(devices) == 0 {
				fmt.Fprintln(os.Stderr, "no devices awaiting authorization")
				return nil
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(writer, "DEVICE\tHARDWARE\tDISPLAY\tREGISTERED\n")
			for _, device := range devices {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
					device.DeviceID,
					device.HardwareID,
					formatDisplay(device.Display),
					device.CreatedAt.Format(time.RFC3339),
				)
			}
			return writer.Flush()
		},
	}
}

// printDeviceTable renders devices in the standard list layout shared
// by "device list" and the assignment commands.
func printDeviceTable(devices []brokerclient.Device) error {
	writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
	fmt.Fprintf(writer, "DEVICE\tHARDWARE\tSTATUS\tDISPLAY\tACTIVE INSTANCE\tLAST SEEN\n")
	for _, device := range devices {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			device.DeviceID,
			device.HardwareID,
			device.AuthStatus,
			formatDisplay(device.Display),
			orDash(device.ActiveInstanceID),
			formatTime(device.LastSeenAt),
		)
	}
	return writer.Flush()
}

// formatDisplay renders panel capabilities as "800x480@4bpp", with a
// "+partial" suffix when the panel supports partial refresh.
func formatDisplay(capabilities display.Capabilities) string {
	rendered := fmt.Sprintf("%dx%d@%dbpp", capabilities.Width, capabilities.Height, capabilities.BitDepth)
	if capabilities.PartialRefresh {
		rendered += "+partial"
	}
	return rendered
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
