package factory

import (
	"time"

	"github.com/mcoot/studyroom/internal/dependencies/mocks"
	"github.com/mcoot/studyroom/internal/gateway"
	"github.com/mcoot/studyroom/internal/services/timer"
	"github.com/mcoot/studyroom/internal/storage"
	"github.com/mcoot/studyroom/internal/storage/memory"
	"github.com/mcoot/studyroom/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWith(memory.New(), timer.AuthorityClient)
}

// NewTestAppWith creates a TestApp over the given storage and tick authority
func NewTestAppWith(store storage.Storage, authority timer.Authority) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(store, mockClock, mockRandom, authority, gateway.DefaultConfig(), testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
