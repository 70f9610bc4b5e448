// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

// Package embedding wraps the EMBEDDING_SERVICE_URL HTTP endpoint that
// turns store_memory content and retrieve_memory queries into the
// 1024-float vectors the vector index adapter stores and searches.
package embedding
