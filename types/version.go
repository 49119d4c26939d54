package types

// Version is the canonical project version.
// The CLI, the completion event schema and the transcript format share
// this version.
const Version = "0.3.0"

// ContractVersion is stamped on every published completion event and
// transcript header. It moves in lockstep with Version.
const ContractVersion = Version
