// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package backendtest

import (
	"testing"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/backend"
)

func TestMemoryBackend_ConformsToContract(t *testing.T) {
	RunConformanceTests(t, func(t *testing.T) backend.Backend {
		return NewMemoryBackend()
	}, "conformance_collection")
}
