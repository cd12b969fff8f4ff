// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package qdrant

import (
	"net"
	"os"
	"strconv"
	"testing"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/backend"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/backend/backendtest"
)

// TestBackend_ConformsToContract runs the shared backend conformance suite
// against a live Qdrant server when QDRANT_TEST_URL is set (e.g.
// "localhost:6334"). It is skipped otherwise, since dialing a real server
// is not something a unit test run should require.
func TestBackend_ConformsToContract(t *testing.T) {
	addr := os.Getenv("QDRANT_TEST_URL")
	if addr == "" {
		t.Skip("QDRANT_TEST_URL not set; skipping live Qdrant conformance run")
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("QDRANT_TEST_URL: expected host:port, got %q: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("QDRANT_TEST_URL port: %v", err)
	}

	backendtest.RunConformanceTests(t, func(t *testing.T) backend.Backend {
		b, err := NewBackend(Config{Host: host, Port: port})
		if err != nil {
			t.Fatalf("NewBackend: %v", err)
		}
		return b
	}, "backendtest_conformance")
}
