// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package hlsstype

import (
	"github.com/slateworks/slate/cmd/slate/cli"
)

// Command returns the "hlss-type" parent command with all subcommands.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "hlss-type",
		Summary: "Manage HLSS backend types",
		Description: `Manage the HLSS backend service types the broker can create instances
of. Registering a type tells the broker where the backend lives and
which bearer token to present; instances of the type inherit its
default display geometry unless they override it.

Auth tokens are write-only: they can be set on create and rotated with
"update --auth-token", but no read ever returns them.`,
		Subcommands: []*cli.Command{
			listCommand(),
			createCommand(),
			showCommand(),
			updateCommand(),
			deleteCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Register a weather backend",
				Command:     "slate hlss-type create weather --name 'Weather Panels' --base-url http://weather:9000/api --auth-token-file ./weather-token",
			},
			{
				Description: "Rotate a backend's auth token",
				Command:     "slate hlss-type update weather --auth-token-file ./weather-token-new",
			},
			{
				Description: "Take a backend out of service",
				Command:     "slate hlss-type update weather --active=false",
			},
		},
	}
}
