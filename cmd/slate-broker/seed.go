// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Seed files describe the HLSS types and instances a broker should
// have, so a fresh deployment comes up with its fleet configured
// instead of an operator clicking through the admin API. The format is
// JSONC: JSON extended with // line comments, /* block comments */,
// and trailing commas.
//
// Applying a seed is idempotent. Types are upserted by type_id;
// instances are matched by (name, type_id) and created only when
// missing, so existing instances keep their access tokens across
// restarts.

// Seed is a parsed seed document.
type Seed struct {
	HLSSTypes []SeedHLSSType `json:"hlss_types"`
	Instances []SeedInstance `json:"instances"`
}

// SeedHLSSType declares one backend type.
type SeedHLSSType struct {
	TypeID          string `json:"type_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	BaseURL         string `json:"base_url"`
	AuthToken       string `json:"auth_token"`
	DefaultWidth    int    `json:"default_width"`
	DefaultHeight   int    `json:"default_height"`
	DefaultBitDepth int    `json:"default_bit_depth"`

	// IsActive defaults to true when omitted.
	IsActive *bool `json:"is_active"`
}

// SeedInstance declares one instance of a seeded (or pre-existing)
// type.
type SeedInstance struct {
	Name            string `json:"name"`
	TypeID          string `json:"type_id"`
	DisplayWidth    int    `json:"display_width"`
	DisplayHeight   int    `json:"display_height"`
	DisplayBitDepth int    `json:"display_bit_depth"`
	AutoInitialize  bool   `json:"auto_initialize"`
}

// ParseSeed strips JSONC comments and trailing commas from data, then
// unmarshals the result.
func ParseSeed(data []byte) (*Seed, error) {
	stripped := jsonc.ToJSON(data)

	var seed Seed
	if err := json.Unmarshal(stripped, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed: %w", err)
	}

	for i, t := range seed.HLSSTypes {
		if t.TypeID == "" || t.Name == "" || t.BaseURL == "" {
			return nil, fmt.Errorf("seed hlss_types[%d]: type_id, name, and base_url are required", i)
		}
	}
	for i, instance := range seed.Instances {
		if instance.Name == "" || instance.TypeID == "" {
			return nil, fmt.Errorf("seed instances[%d]: name and type_id are required", i)
		}
	}
	return &seed, nil
}

// ReadSeedFile reads and parses a JSONC seed file from disk.
func ReadSeedFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	seed, err := ParseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seed, nil
}

// ApplySeed upserts the seed's types and creates its missing
// instances. Auto-initialize handshake failures do not fail seeding;
// the instance is left for a later explicit initialize, same as the
// admin create path.
func (e *Engine) ApplySeed(ctx context.Context, seed *Seed) error {
	for _, entry := range seed.HLSSTypes {
		if err := e.seedHLSSType(ctx, entry); err != nil {
			return err
		}
	}
	for _, entry := range seed.Instances {
		if err := e.seedInstance(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) seedHLSSType(ctx context.Context, entry SeedHLSSType) error {
	isActive := true
	if entry.IsActive != nil {
		isActive = *entry.IsActive
	}

	_, err := e.store.CreateHLSSType(ctx, HLSSType{
		TypeID:          entry.TypeID,
		Name:            entry.Name,
		Description:     entry.Description,
		BaseURL:         entry.BaseURL,
		AuthToken:       entry.AuthToken,
		DefaultWidth:    entry.DefaultWidth,
		DefaultHeight:   entry.DefaultHeight,
		DefaultBitDepth: entry.DefaultBitDepth,
		IsActive:        isActive,
	})
	if err == nil {
		e.logger.Info("seeded hlss type", "type", entry.TypeID)
		return nil
	}
	if !errors.Is(err, ErrConflictingState) {
		return fmt.Errorf("seeding hlss type %s: %w", entry.TypeID, err)
	}

	// Already present: bring it up to date with the seed.
	_, err = e.store.UpdateHLSSType(ctx, entry.TypeID, HLSSTypePatch{
		Name:            &entry.Name,
		Description:     &entry.Description,
		BaseURL:         &entry.BaseURL,
		AuthToken:       &entry.AuthToken,
		DefaultWidth:    &entry.DefaultWidth,
		DefaultHeight:   &entry.DefaultHeight,
		DefaultBitDepth: &entry.DefaultBitDepth,
		IsActive:        &isActive,
	})
	if err != nil {
		return fmt.Errorf("updating seeded hlss type %s: %w", entry.TypeID, err)
	}
	e.logger.Info("updated seeded hlss type", "type", entry.TypeID)
	return nil
}

func (e *Engine) seedInstance(ctx context.Context, entry SeedInstance) error {
	existing, err := e.store.ListInstances(ctx, entry.TypeID)
	if err != nil {
		return fmt.Errorf("seeding instance %s: %w", entry.Name, err)
	}
	for _, instance := range existing {
		if instance.Name == entry.Name {
			e.logger.Debug("seed instance already exists",
				"instance", instance.InstanceID,
				"name", entry.Name,
				"type", entry.TypeID)
			return nil
		}
	}

	instance, err := e.CreateInstance(ctx, NewInstanceParams{
		Name:            entry.Name,
		TypeID:          entry.TypeID,
		DisplayWidth:    entry.DisplayWidth,
		DisplayHeight:   entry.DisplayHeight,
		DisplayBitDepth: entry.DisplayBitDepth,
		AutoInitialize:  entry.AutoInitialize,
	})
	if err != nil {
		return fmt.Errorf("seeding instance %s (type %s): %w", entry.Name, entry.TypeID, err)
	}
	e.logger.Info("seeded instance",
		"instance", instance.InstanceID,
		"name", entry.Name,
		"type", entry.TypeID)
	return nil
}
