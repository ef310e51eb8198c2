package seeding

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Smoke check constants.
const (
	fullPassStages = 6
	maxSoundChecks = 10
)
