package types

// Version is the canonical project version.
// The CLI, the adapter event contract and the capture tape format share
// this version.
const Version = "0.3.0"

// ContractVersion is stamped on every adapter event.
const ContractVersion = Version
