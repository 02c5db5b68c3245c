// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"github.com/slateworks/slate/cmd/slate/cli"
)

// Command returns the "device" parent command with all subcommands.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "device",
		Summary: "Manage display devices",
		Description: `Manage display devices: authorization, instance assignment, and rotation.

Devices self-register on first contact and sit in "pending" until an
operator authorizes them. The "pending" subcommand lists the queue and
"authorize" admits a device; "reject" and "revoke" remove one.

Once authorized, a device shows frames from its assigned HLSS instances.
The "assign" subcommand adds an instance to the device's rotation,
"activate" picks which assigned instance is currently displayed, and
"cycle" steps through the rotation the same way the device's highlight
buttons do.`,
		Subcommands: []*cli.Command{
			listCommand(),
			pendingCommand(),
			showCommand(),
			authorizeCommand(),
			rejectCommand(),
			revokeCommand(),
			reauthorizeCommand(),
			assignCommand(),
			unassignCommand(),
			activateCommand(),
			cycleCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "List devices awaiting authorization",
				Command:     "slate device pending",
			},
			{
				Description: "Authorize a pending device",
				Command:     "slate device authorize dev_a1b2c3d4e5f6",
			},
			{
				Description: "Assign an instance to a device's rotation",
				Command:     "slate device assign dev_a1b2c3d4e5f6 inst_e5f6a7b8c9d0",
			},
			{
				Description: "Step a device to its next assigned instance",
				Command:     "slate device cycle dev_a1b2c3d4e5f6",
			},
		},
	}
}
