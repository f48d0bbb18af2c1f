package types

// Version is the canonical project version.
// It is also published as the User-Agent-Version tag on every upload,
// so the CLI and the on-network tags stay in lockstep.
const Version = "0.3.7"

// PublisherName is published as the User-Agent tag on every upload.
const PublisherName = "lighthouse"

// ContractVersion is the version of the completion event contract
// published by adapters. Lockstep with Version.
const ContractVersion = Version
