package types

import "errors"

// BatchMeta identifies one invocation of the CLI (a single fetch or a plan run).
// It is attached to every log line and journal record of that invocation.
type BatchMeta struct {
	// BatchID is the batch identifier. Must be globally unique.
	BatchID string
	// Archive names the archive client in use (webapi, subprocess, gcs).
	Archive string
	// Root is the output root of the materialized tree.
	Root string
}

// Validate checks that the batch has an identity.
func (m *BatchMeta) Validate() error {
	if m.BatchID == "" {
		return errors.New("batch_id must be non-empty")
	}
	if m.Root == "" {
		return errors.New("root must be non-empty")
	}
	return nil
}
