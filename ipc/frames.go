package ipc

import (
	"github.com/justapithecus/strata/archive"
	"github.com/justapithecus/strata/types"
)

// Frame type discriminants.
const (
	RetrieveType = "retrieve"
	LogType      = "log"
	ProgressType = "progress"
	ResultType   = "retrieve_result"
)

// Result statuses carried by ResultFrame.
const (
	ResultCompleted = "completed"
	ResultError     = "error"
)

// RetrieveFrame is written once to the retriever's stdin.
type RetrieveFrame struct {
	Type            string           `msgpack:"type"`
	ContractVersion string           `msgpack:"contract_version"`
	BatchID         string           `msgpack:"batch_id,omitempty"`
	Request         *archive.Request `msgpack:"request"`
}

// NewRetrieveFrame wraps req for the current contract version.
func NewRetrieveFrame(batchID string, req *archive.Request) *RetrieveFrame {
	return &RetrieveFrame{
		Type:            RetrieveType,
		ContractVersion: types.Version,
		BatchID:         batchID,
		Request:         req,
	}
}

// LogFrame carries a diagnostic line from the retriever.
type LogFrame struct {
	Type    string         `msgpack:"type"`
	Level   string         `msgpack:"level"`
	Message string         `msgpack:"message"`
	Fields  map[string]any `msgpack:"fields,omitempty"`
}

// ProgressFrame reports download progress. Total is 0 when unknown.
type ProgressFrame struct {
	Type  string `msgpack:"type"`
	Bytes int64  `msgpack:"bytes"`
	Total int64  `msgpack:"total,omitempty"`
}

// ResultFrame is the terminal frame. Status is ResultCompleted or
// ResultError; Message explains an error.
type ResultFrame struct {
	Type    string `msgpack:"type"`
	Status  string `msgpack:"status"`
	Message string `msgpack:"message,omitempty"`
	Bytes   int64  `msgpack:"bytes,omitempty"`
}

// Completed reports whether the retriever claims success.
func (f *ResultFrame) Completed() bool { return f.Status == ResultCompleted }
