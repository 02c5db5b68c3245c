// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestParseSeedAllowsComments(t *testing.T) {
	seed, err := ParseSeed([]byte(`{
		// Backend fleet for the kitchen.
		"hlss_types": [
			{
				"type_id": "news",
				"name": "News", /* headline panels */
				"base_url": "http://news.internal:8100",
				"default_width": 800,
				"default_height": 480,
				"default_bit_depth": 4,
			},
		],
		"instances": [
			{"name": "Kitchen News", "type_id": "news", "auto_initialize": true},
		],
	}`))
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}
	if len(seed.HLSSTypes) != 1 || len(seed.Instances) != 1 {
		t.Fatalf("parsed %d types and %d instances, want 1 and 1", len(seed.HLSSTypes), len(seed.Instances))
	}
	if seed.HLSSTypes[0].DefaultWidth != 800 {
		t.Fatalf("default_width = %d, want 800", seed.HLSSTypes[0].DefaultWidth)
	}
	if !seed.Instances[0].AutoInitialize {
		t.Fatalf("auto_initialize not parsed")
	}
}

func TestParseSeedRejectsIncompleteEntries(t *testing.T) {
	_, err := ParseSeed([]byte(`{"hlss_types": [{"type_id": "x"}]}`))
	if err == nil || !strings.Contains(err.Error(), "hlss_types[0]") {
		t.Fatalf("err = %v, want complaint about hlss_types[0]", err)
	}

	_, err = ParseSeed([]byte(`{"instances": [{"name": "orphan"}]}`))
	if err == nil || !strings.Contains(err.Error(), "instances[0]") {
		t.Fatalf("err = %v, want complaint about instances[0]", err)
	}

	_, err = ParseSeed([]byte(`{nonsense`))
	if err == nil {
		t.Fatalf("malformed seed parsed without error")
	}
}

func TestApplySeedIsIdempotent(t *testing.T) {
	engine, _ := newTestEngine(t)
	backend := newTestBackend(t)
	ctx := context.Background()

	seed, err := ParseSeed([]byte(fmt.Sprintf(`{
		"hlss_types": [
			{"type_id": "news", "name": "News", "base_url": %q,
			 "default_width": 64, "default_height": 32, "default_bit_depth": 1},
		],
		"instances": [
			{"name": "Kitchen News", "type_id": "news"},
			{"name": "Hall News", "type_id": "news"},
		],
	}`, backend.server.URL)))
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}

	if err := engine.ApplySeed(ctx, seed); err != nil {
		t.Fatalf("ApplySeed: %v", err)
	}

	instances, err := engine.store.ListInstances(ctx, "news")
	if err != nil {
		t.Fatalf("ListInstances: %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("seeded %d instances, want 2", len(instances))
	}
	tokens := map[string]string{}
	for _, instance := range instances {
		tokens[instance.Name] = instance.AccessToken
	}

	// Re-applying with an updated type leaves instances (and their
	// credentials) alone but refreshes the type.
	seed.HLSSTypes[0].Name = "News Panels"
	if err := engine.ApplySeed(ctx, seed); err != nil {
		t.Fatalf("ApplySeed (second run): %v", err)
	}

	instances, err = engine.store.ListInstances(ctx, "news")
	if err != nil {
		t.Fatalf("ListInstances: %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("second apply grew instances to %d", len(instances))
	}
	for _, instance := range instances {
		if tokens[instance.Name] != instance.AccessToken {
			t.Fatalf("instance %s access token changed across seed runs", instance.Name)
		}
	}

	hlssType, found, err := engine.store.HLSSTypeByID(ctx, "news")
	if err != nil || !found {
		t.Fatalf("HLSSTypeByID: found=%v err=%v", found, err)
	}
	if hlssType.Name != "News Panels" {
		t.Fatalf("type name = %q, want News Panels", hlssType.Name)
	}
}

func TestApplySeedUnknownTypeFails(t *testing.T) {
	engine, _ := newTestEngine(t)

	seed := &Seed{Instances: []SeedInstance{{Name: "Orphan", TypeID: "ghost"}}}
	if err := engine.ApplySeed(context.Background(), seed); err == nil {
		t.Fatalf("seeding an instance of an unknown type succeeded")
	}
}
