package types

// Version is the canonical project version.
// The CLI, the subprocess frame contract and the journal record schema
// share this version.
const Version = "0.4.0"
