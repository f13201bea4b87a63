package types

// Version is the canonical project version.
// The CLI, the archive record format and notification events share it.
const Version = "0.3.0"

// RecordFormatVersion tags archived records and published events.
// It moves in lockstep with Version.
const RecordFormatVersion = Version
