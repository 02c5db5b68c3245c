// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/slateworks/slate/cmd/slate/cli"
	"github.com/slateworks/slate/cmd/slate/device"
	"github.com/slateworks/slate/cmd/slate/hlsstype"
	"github.com/slateworks/slate/cmd/slate/instance"
	"github.com/slateworks/slate/lib/version"
)

func main() {
	if err := run(); err != nil {
		// Commands whose non-zero exit is an answer (like frame-status
		// --check) return an ExitError with the desired code. Don't
		// print a redundant "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return root().Execute(os.Args[1:])
}

// root builds the complete slate CLI command tree.
func root() *cli.Command {
	return &cli.Command{
		Name: "slate",
		Description: `Slate: session and delivery broker for e-paper displays.

Administer a slate-broker: authorize devices, register HLSS backends,
create instances, and wire instances to the devices that display them.`,
		Subcommands: []*cli.Command{
			statusCommand(),
			device.Command(),
			instance.Command(),
			hlsstype.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("slate %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Check the broker is up (start here when lost)",
				Command:     "slate status",
			},
			{
				Description: "See devices waiting for authorization",
				Command:     "slate device pending",
			},
			{
				Description: "Authorize a device",
				Command:     "slate device authorize dev_a1b2c3d4e5f6",
			},
			{
				Description: "Register a weather backend",
				Command:     "slate hlss-type create weather --name 'Weather Panels' --base-url http://weather:9000/api",
			},
			{
				Description: "Create an instance and initialize it",
				Command:     "slate instance create --name 'Lobby Weather' --type weather --init",
			},
			{
				Description: "Put the instance on a device",
				Command:     "slate device assign dev_a1b2c3d4e5f6 inst_e5f6a7b8c9d0",
			},
		},
	}
}
