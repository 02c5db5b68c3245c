// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package instance

import (
	"github.com/slateworks/slate/cmd/slate/cli"
)

// Command returns the "instance" parent command with all subcommands.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "instance",
		Summary: "Manage HLSS instances",
		Description: `Manage HLSS instances: creation, backend initialization, lifecycle
inspection, and frame synchronization.

An instance is one logical screen served by an HLSS backend. Creating
an instance registers it with the broker and mints the access token the
backend will use for callbacks; "init" runs the handshake that hands
that token (and the instance's callback URLs) to the backend. Once the
backend reports ready, devices assigned to the instance start receiving
its frames.

The "frame-status" and "sync-frame" subcommands reconcile the broker's
stored frame with the backend's current frame when the two drift — for
example after a broker restart with a cold frame store.`,
		Subcommands: []*cli.Command{
			listCommand(),
			createCommand(),
			showCommand(),
			updateCommand(),
			deleteCommand(),
			initCommand(),
			refreshCommand(),
			frameStatusCommand(),
			syncFrameCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Create a weather panel and initialize it",
				Command:     "slate instance create --name 'Lobby Weather' --type weather --init",
			},
			{
				Description: "List instances of one type",
				Command:     "slate instance list --type weather",
			},
			{
				Description: "Check whether an instance's frame is in sync",
				Command:     "slate instance frame-status inst_e5f6a7b8c9d0 --check",
			},
		},
	}
}
