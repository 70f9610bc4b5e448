// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package router

import (
	"testing"

	"github.com/vesper-project/vesper/pkg/types"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		query string
		want  types.QueryClass
	}{
		{"What's my coding style?", types.QueryPreference},
		{"What was discussed yesterday?", types.QueryTemporal},
		{"Analyze this like before", types.QuerySkill},
		{"What is the capital of France?", types.QueryFactual},
		{"What is the status of the acme-project?", types.QueryProject},
		{"Tell me everything about the rollout", types.QueryComplex},
	}
	for _, c := range cases {
		got := Classify(c.query)
		if got.Class != c.want {
			t.Errorf("Classify(%q) = %q, want %q", c.query, got.Class, c.want)
		}
		if got.Confidence <= 0 || got.Confidence > 1 {
			t.Errorf("Classify(%q) confidence = %f, want in (0,1]", c.query, got.Confidence)
		}
	}
}

func TestExtractDomainNoun(t *testing.T) {
	cases := map[string]string{
		"What's my coding style?":   "coding",
		"What's my favorite language": "language",
		"I prefer typescript":       "typescript",
	}
	for query, want := range cases {
		if got := extractDomainNoun(query); got != want {
			t.Errorf("extractDomainNoun(%q) = %q, want %q", query, got, want)
		}
	}
}

func TestExtractEntityName(t *testing.T) {
	if got := extractEntityName("What is the status of acme-project?"); got != "acme-project" {
		t.Errorf("extractEntityName = %q, want %q", got, "acme-project")
	}
	if got := extractEntityName("Tell me about Widget"); got != "Widget" {
		t.Errorf("extractEntityName = %q, want %q", got, "Widget")
	}
}
