// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package hlsstype

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/slateworks/slate/cmd/slate/cli"
	"github.com/slateworks/slate/lib/brokerclient"
)

// createParams holds the parameters for the hlss-type create command.
type createParams struct {
	cli.BrokerConfig
	cli.JSONOutput
	Name            string `json:"name"              flag:"name"              desc:"human-readable backend name (required)"`
	Description     string `json:"description"       flag:"description"       desc:"free-form description"`
	BaseURL         string `json:"base_url"          flag:"base-url"          desc:"backend API root, e.g. http://weather:9000/api (required)"`
	AuthToken       string `json:"auth_token"        flag:"auth-token"        desc:"bearer token the broker presents to the backend"`
	AuthTokenFile   string `json:"auth_token_file"   flag:"auth-token-file"   desc:"file containing the bearer token"`
	DefaultWidth    int    `json:"default_width"     flag:"default-width"     desc:"default display width for instances of this type"`
	DefaultHeight   int    `json:"default_height"    flag:"default-height"    desc:"default display height for instances of this type"`
	DefaultBitDepth int    `json:"default_bit_depth" flag:"default-bit-depth" desc:"default bits per pixel for instances of this type"`
	Inactive        bool   `json:"inactive"          flag:"inactive"          desc:"register the type without activating it"`
}

func createCommand() *cli.Command {
	var params createParams

	return &cli.Command{
		Name:    "create",
		Summary: "Register an HLSS backend type",
		Description: `Register a backend service with the broker. The type ID is the stable
key instances reference; pick a short slug like "weather" or "calendar".

The auth token is the bearer token the broker will present on every
request to the backend. Provide it with --auth-token, or --auth-token-file
to keep it out of shell history. Backends that don't authenticate the
broker can omit it.`,
		Usage: "slate hlss-type create <type-id> --name <name> --base-url <url> [flags]",
		Examples: []cli.Example{
			{
				Description: "Register a weather backend",
				Command:     "slate hlss-type create weather --name 'Weather Panels' --base-url http://weather:9000/api --auth-token-file ./weather-token",
			},
			{
				Description: "Register a backend with a default panel size",
				Command:     "slate hlss-type create calendar --name Calendar --base-url http://calendar:9100 --default-width 400 --default-height 300 --default-bit-depth 1",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("create", &params)
		},
		Run: func(args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: slate hlss-type create <type-id> --name <name> --base-url <url>")
			}
			if len(args) > 1 {
				return fmt.Errorf("unexpected argument: %s", args[1])
			}
			typeID := args[0]

			if params.Name == "" {
				return fmt.Errorf("--name is required")
			}
			if params.BaseURL == "" {
				return fmt.Errorf("--base-url is required")
			}
			authToken, err := resolveAuthToken(params.AuthToken, params.AuthTokenFile)
			if err != nil {
				return err
			}

			request := brokerclient.CreateHLSSTypeRequest{
				TypeID:          typeID,
				Name:            params.Name,
				Description:     params.Description,
				BaseURL:         params.BaseURL,
				AuthToken:       authToken,
				DefaultWidth:    params.DefaultWidth,
				DefaultHeight:   params.DefaultHeight,
				DefaultBitDepth: params.DefaultBitDepth,
			}
			if params.Inactive {
				inactive := false
				request.IsActive = &inactive
			}

			ctx, cancel := context.WithTimeout(context.Background(), params.Timeout)
			defer cancel()

			client, err := params.BrokerConfig.Client()
			if err != nil {
				return err
			}

			created, err := client.CreateHLSSType(ctx, request)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(created); done {
				return err
			}

			fmt.Fprintf(os.Stdout, "Registered %s (%s)\n", created.TypeID, created.Name)
			return nil
		},
	}
}

// resolveAuthToken picks between --auth-token and --auth-token-file.
// Both empty is fine: the backend takes unauthenticated requests.
func resolveAuthToken(token, tokenFile string) (string, error) {
	if token != "" && tokenFile != "" {
		return "", fmt.Errorf("--auth-token and --auth-token-file are mutually exclusive")
	}
	if tokenFile == "" {
		return token, nil
	}
	data, err := os.ReadFile(tokenFile)
	if err != nil {
		return "", fmt.Errorf("reading auth token file: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return "", fmt.Errorf("auth token file %s is empty", tokenFile)
	}
	return trimmed, nil
}
