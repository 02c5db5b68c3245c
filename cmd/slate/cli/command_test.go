// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "slate",
		Subcommands: []*Command{
			{
				Name: "version",
				Run: func(args []string) error {
					called = "version"
					return nil
				},
			},
			{
				Name: "device",
				Run: func(args []string) error {
					called = "device"
					return nil
				},
			},
		},
	}

	if err := root.Execute([]string{"device"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "device" {
		t.Errorf("dispatched to %q, want %q", called, "device")
	}
}

func TestCommand_Execute_NestedSubcommands(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "slate",
		Subcommands: []*Command{
			{
				Name: "device",
				Subcommands: []*Command{
					{
						Name: "authorize",
						Run: func(args []string) error {
							called = "device authorize"
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute([]string{"device", "authorize", "dev_a1b2"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "device authorize" {
		t.Errorf("dispatched to %q, want %q", called, "device authorize")
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "dev_a1b2" {
		t.Errorf("args = %v, want [dev_a1b2]", receivedArgs)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var status string
	var target string

	command := &Command{
		Name: "list",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.StringVar(&status, "status", "", "filter by auth status")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				target = args[0]
			}
			return nil
		},
	}

	if err := command.Execute([]string{"--status", "pending", "dev_a1b2"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if status != "pending" {
		t.Errorf("status = %q, want %q", status, "pending")
	}
	if target != "dev_a1b2" {
		t.Errorf("target = %q, want %q", target, "dev_a1b2")
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "list",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.Bool("json", false, "output as JSON")
			flagSet.String("status", "", "filter by auth status")
			return flagSet
		},
		Run: func(args []string) error { return nil },
	}

	err := command.Execute([]string{"--staus"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "did you mean --status") {
		t.Errorf("error = %q, want suggestion for '--status'", errStr)
	}
	// Suggestion should be on the same line as the error, not buried.
	if !strings.Contains(errStr, "staus") {
		t.Errorf("error = %q, should mention the bad flag", errStr)
	}
	// Should include a pointer to --help.
	if !strings.Contains(errStr, "--help") {
		t.Errorf("error = %q, should point to --help", errStr)
	}
}

func TestCommand_Execute_UnknownFlagNoSuggestion(t *testing.T) {
	command := &Command{
		Name: "list",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.Bool("json", false, "output as JSON")
			return flagSet
		},
		Run: func(args []string) error { return nil },
	}

	err := command.Execute([]string{"--zzzzzzzzz"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %q, should not suggest for distant flag", err.Error())
	}
	if !strings.Contains(err.Error(), "--help") {
		t.Errorf("error = %q, should point to --help", err.Error())
	}
}

func TestCommand_Execute_UnknownSubcommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "slate",
		Subcommands: []*Command{
			{Name: "device"},
			{Name: "instance"},
			{Name: "status"},
		},
	}

	err := root.Execute([]string{"instnce"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown subcommand")
	}
	if !strings.Contains(err.Error(), "did you mean \"instance\"") {
		t.Errorf("error = %q, want suggestion for 'instance'", err.Error())
	}
}

func TestCommand_Execute_UnknownSubcommandNoSuggestion(t *testing.T) {
	root := &Command{
		Name: "slate",
		Subcommands: []*Command{
			{Name: "device"},
			{Name: "instance"},
		},
	}

	err := root.Execute([]string{"zzzzzzz"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown subcommand")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %q, should not contain suggestion for distant input", err.Error())
	}
}

func TestCommand_Execute_HelpFlag(t *testing.T) {
	for _, helpArg := range []string{"-h", "--help", "help"} {
		t.Run(helpArg, func(t *testing.T) {
			root := &Command{
				Name:    "slate",
				Summary: "Display broker administration",
				Subcommands: []*Command{
					{Name: "device", Summary: "Device operations"},
				},
			}

			err := root.Execute([]string{helpArg})
			if err != nil {
				t.Errorf("Execute(%q) error: %v", helpArg, err)
			}
		})
	}
}

func TestCommand_Execute_NoArgsShowsHelp(t *testing.T) {
	root := &Command{
		Name: "slate",
		Subcommands: []*Command{
			{Name: "device", Summary: "Device operations"},
		},
	}

	err := root.Execute([]string{})
	if err == nil {
		t.Fatal("Execute() = nil, want error for missing subcommand")
	}
	if !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("error = %q, want 'subcommand required'", err.Error())
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	command := &Command{
		Name:        "slate",
		Description: "Administer a slate-broker daemon.",
		Subcommands: []*Command{
			{Name: "device", Summary: "Manage display devices"},
			{Name: "instance", Summary: "Manage HLSS instances"},
			{Name: "version", Summary: "Print version information"},
		},
		Examples: []Example{
			{
				Description: "List devices awaiting authorization",
				Command:     "slate device pending",
			},
			{
				Description: "Authorize a device",
				Command:     "slate device authorize dev_a1b2c3",
			},
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	// Verify structural elements are present.
	for _, want := range []string{
		"Administer a slate-broker daemon.",
		"Usage:",
		"slate <command> [flags]",
		"Commands:",
		"device",
		"Manage display devices",
		"instance",
		"Manage HLSS instances",
		"Examples:",
		"slate device pending",
		"slate device authorize",
		"Run 'slate <command> --help'",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommand_PrintHelp_WithFlags(t *testing.T) {
	command := &Command{
		Name:    "list",
		Summary: "List registered devices",
		Usage:   "slate device list [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.String("status", "", "filter by auth status")
			flagSet.Bool("json", false, "output as JSON")
			return flagSet
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"slate device list [flags]",
		"Flags:",
		"status",
		"json",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommand_FullName(t *testing.T) {
	root := &Command{Name: "slate"}
	device := &Command{Name: "device", parent: root}
	authorize := &Command{Name: "authorize", parent: device}

	if got := root.fullName(); got != "slate" {
		t.Errorf("root.fullName() = %q, want %q", got, "slate")
	}
	if got := device.fullName(); got != "slate device" {
		t.Errorf("device.fullName() = %q, want %q", got, "slate device")
	}
	if got := authorize.fullName(); got != "slate device authorize" {
		t.Errorf("authorize.fullName() = %q, want %q", got, "slate device authorize")
	}
}
