// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package validate

import (
	"regexp"
	"strings"
)

// collectionNamePattern requires a leading letter and at most 255
// characters; userIDPattern accepts any non-empty run of letters,
// digits, '_' and '-'.
var (
	collectionNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,254}$`)
	userIDPattern         = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// CleanString strips NUL bytes and trims leading/trailing whitespace,
// the normalization every tool-facing string field receives before any
// other check runs.
func CleanString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}

// CollectionName reports whether name is a legal vector index collection
// name.
func CollectionName(name string) bool {
	return collectionNamePattern.MatchString(name)
}

// UserID reports whether id is a legal namespace/user identifier.
func UserID(id string) bool {
	return userIDPattern.MatchString(id)
}
