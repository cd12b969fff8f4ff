// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import "github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/provider"

// Backends is the process-wide registry of named Backend factories,
// following the database/sql driver pattern: a concrete backend package
// blank-imports into this registry via init(), and app wiring selects one
// by name from config rather than importing a concrete backend type
// directly.
var Backends = provider.NewRegistry[Backend]("vector_backend")
