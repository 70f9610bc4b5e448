// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package validate

import (
	"math"
	"strings"
	"testing"

	vesperrors "github.com/vesper-project/vesper/pkg/errors"
	"github.com/vesper-project/vesper/pkg/types"
)

func TestStoreMemoryInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      StoreMemoryInput
		wantErr bool
	}{
		{"valid", StoreMemoryInput{Content: "x", MemoryType: types.MemoryTypeEpisodic}, false},
		{"empty content", StoreMemoryInput{Content: "", MemoryType: types.MemoryTypeEpisodic}, true},
		{"whitespace-only content", StoreMemoryInput{Content: "   ", MemoryType: types.MemoryTypeEpisodic}, true},
		{"content too long", StoreMemoryInput{Content: strings.Repeat("a", 100_001), MemoryType: types.MemoryTypeEpisodic}, true},
		{"bad memory type", StoreMemoryInput{Content: "x", MemoryType: "bogus"}, true},
		{"decision type ok", StoreMemoryInput{Content: "x", MemoryType: types.MemoryTypeDecision}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !vesperrors.IsInvalidInput(err) {
				t.Fatalf("error category is not validation: %v", err)
			}
		})
	}
}

func TestStoreMemoryInput_MetadataBounds(t *testing.T) {
	big := make(map[string]interface{}, 51)
	for i := 0; i < 51; i++ {
		big[strings.Repeat("k", i+1)] = i
	}
	in := StoreMemoryInput{Content: "x", MemoryType: types.MemoryTypeEpisodic, Metadata: big}
	if err := in.Validate(); err == nil {
		t.Fatal("51 metadata keys must fail")
	}

	huge := map[string]interface{}{"blob": strings.Repeat("a", 11*1024)}
	in = StoreMemoryInput{Content: "x", MemoryType: types.MemoryTypeEpisodic, Metadata: huge}
	if err := in.Validate(); err == nil {
		t.Fatal("oversized serialised metadata must fail")
	}
}

func TestRetrieveMemoryInput_Validate(t *testing.T) {
	in := RetrieveMemoryInput{Query: "what changed"}
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if in.MaxResults != 5 {
		t.Fatalf("MaxResults defaulted to %d, want 5", in.MaxResults)
	}

	in = RetrieveMemoryInput{Query: "q", MaxResults: 101}
	if err := in.Validate(); err == nil {
		t.Fatal("max_results over 100 must fail")
	}
	in = RetrieveMemoryInput{Query: ""}
	if err := in.Validate(); err == nil {
		t.Fatal("empty query must fail")
	}
}

func TestListRecentInput_Validate(t *testing.T) {
	in := ListRecentInput{}
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if in.Limit != 5 {
		t.Fatalf("Limit defaulted to %d, want 5", in.Limit)
	}
	in = ListRecentInput{Limit: -1}
	if err := in.Validate(); err == nil {
		t.Fatal("negative limit must fail")
	}
}

func TestRecordSkillOutcomeInput_Validate(t *testing.T) {
	sat := 0.8
	over := 1.5

	tests := []struct {
		name    string
		in      RecordSkillOutcomeInput
		wantErr bool
	}{
		{"success with satisfaction", RecordSkillOutcomeInput{SkillID: "s1", Outcome: "success", Satisfaction: &sat}, false},
		{"success without satisfaction", RecordSkillOutcomeInput{SkillID: "s1", Outcome: "success"}, true},
		{"satisfaction out of range", RecordSkillOutcomeInput{SkillID: "s1", Outcome: "success", Satisfaction: &over}, true},
		{"failure without satisfaction", RecordSkillOutcomeInput{SkillID: "s1", Outcome: "failure"}, false},
		{"bad outcome", RecordSkillOutcomeInput{SkillID: "s1", Outcome: "meh"}, true},
		{"missing skill id", RecordSkillOutcomeInput{SkillID: "", Outcome: "failure"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.in.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCleanString(t *testing.T) {
	if got := CleanString("  hi\x00 there  "); got != "hi there" {
		t.Fatalf("CleanString = %q", got)
	}
}

func TestCollectionName(t *testing.T) {
	valid := []string{"memory-vectors", "A", "a_b-c9"}
	for _, name := range valid {
		if !CollectionName(name) {
			t.Errorf("CollectionName(%q) = false, want true", name)
		}
	}
	invalid := []string{"", "9starts-with-digit", "-leading-dash", "has space", strings.Repeat("a", 256)}
	for _, name := range invalid {
		if CollectionName(name) {
			t.Errorf("CollectionName(%q) = true, want false", name)
		}
	}
}

func TestVector(t *testing.T) {
	good := make([]float32, 4)
	if err := Vector(good, 4); err != nil {
		t.Fatalf("Vector failed on a valid vector: %v", err)
	}
	if err := Vector(good, 8); err == nil {
		t.Fatal("dimension mismatch must fail")
	}
	bad := []float32{0, float32(math.NaN()), 0, 0}
	if err := Vector(bad, 4); err == nil {
		t.Fatal("NaN component must fail")
	}
	inf := []float32{0, 0, float32(math.Inf(1)), 0}
	if err := Vector(inf, 4); err == nil {
		t.Fatal("infinite component must fail")
	}
}
