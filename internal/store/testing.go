package store

// NewTestRunLog opens a RunLog on a private in-memory database.
// This is only intended for use in tests.
func NewTestRunLog() (*RunLog, error) {
	return Open(":memory:")
}
