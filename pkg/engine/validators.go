// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"strings"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/coreerr"
)

const maxQueryLength = 10000

// sanitizeQuery normalizes whitespace in query and truncates it to
// maxQueryLength, mirroring original_source's validators.sanitize_query.
func sanitizeQuery(query string) (string, error) {
	sanitized := strings.Join(strings.Fields(query), " ")
	if sanitized == "" {
		return "", coreerr.InvalidField("query", "must not be empty after sanitization")
	}
	if len(sanitized) > maxQueryLength {
		sanitized = sanitized[:maxQueryLength]
	}
	return sanitized, nil
}
