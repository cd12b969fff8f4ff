// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import "context"

// StateStore persists Ensure outcomes beyond process memory. Manager's
// entries map already memoizes Ensure for the life of one process; a
// StateStore additionally records the resolved state and the model_id it
// was resolved against, for operators auditing collection->model history
// across restarts and deploys (spec.md 4.3's Collection state machine,
// made durable). A nil StateStore keeps Manager's current in-memory-only
// behavior.
type StateStore interface {
	// LoadResolved returns the last durably-recorded Resolved for
	// collectionName, if any.
	LoadResolved(ctx context.Context, collectionName string) (Resolved, bool, error)
	// SaveResolved durably records resolved, having been produced against
	// modelID, for audit purposes.
	SaveResolved(ctx context.Context, resolved Resolved, modelID string) error
}
