// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Command qdrant-gateway runs the collection-aware embedding-and-storage
// gateway, exposing its operations as MCP tools over stdio or streamable
// HTTP.
package main

import (
	"os"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/cmd/qdrant-gateway/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
