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
)

// showParams holds the parameters for the device show command.
type showParams struct {
	cli.BrokerConfig
	cli.JSONOutput
}

func showCommand() *cli.Command {
	var params showParams

	return &cli.Command{
		Name:    "show",
		Summary: "Show one device in detail",
		Description: `Show a single device: registration identity, auth status, panel
capabilities, current frame, and the device's full assignment rotation
in display order.`,
		Usage: "slate device show <device-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Inspect a device",
				Command:     "slate device show dev_a1b2c3d4e5f6",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: slate device show <device-id>")
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

			detail, err := client.GetDevice(ctx, deviceID)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(detail); done {
				return err
			}

			fmt.Fprintf(os.Stdout, "Device ID:        %s\n", detail.DeviceID)
			fmt.Fprintf(os.Stdout, "Hardware ID:      %s\n", detail.HardwareID)
			if detail.FirmwareVersion != "" {
				fmt.Fprintf(os.Stdout, "Firmware:         %s\n", detail.FirmwareVersion)
			}
			fmt.Fprintf(os.Stdout, "Status:           %s\n", detail.AuthStatus)
			fmt.Fprintf(os.Stdout, "Display:          %s\n", formatDisplay(detail.Display))
			fmt.Fprintf(os.Stdout, "Active instance:  %s\n", orDash(detail.ActiveInstanceID))
			fmt.Fprintf(os.Stdout, "Current frame:    %s\n", orDash(detail.CurrentFrameID))
			fmt.Fprintf(os.Stdout, "Registered:       %s\n", detail.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(os.Stdout, "Authorized:       %s\n", formatTime(detail.AuthorizedAt))
			fmt.Fprintf(os.Stdout, "Last seen:        %s\n", formatTime(detail.LastSeenAt))

			if len(detail.Assignments) == 0 {
				fmt.Fprintln(os.Stdout, "\nNo instances assigned.")
				return nil
			}

			fmt.Fprintln(os.Stdout, "\nAssignments:")
			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(writer, "POSITION\tINSTANCE\tACTIVE\n")
			for _, assignment := range detail.Assignments {
				active := ""
				if assignment.InstanceID == detail.ActiveInstanceID {
					active = "*"
				}
				fmt.Fprintf(writer, "%d\t%s\t%s\n", assignment.Position, assignment.InstanceID, active)
			}
			return writer.Flush()
		},
	}
}
