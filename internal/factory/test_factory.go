package factory

import (
	"time"

	"github.com/yolosopher/rps-live/internal/dependencies/mocks"
	"github.com/yolosopher/rps-live/internal/services/token"
	"github.com/yolosopher/rps-live/internal/storage/memory"
	"github.com/yolosopher/rps-live/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom

	// Store gives tests direct access to the in-memory backend
	Store *memory.Storage
}

// NewTestApp creates an App configured for testing: in-memory storage, a
// frozen clock, scripted randomness and synchronous round resolution.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(deps{
		matches:   store,
		users:     store,
		presences: store,
		tokens:    store,
		clock:     mockClock,
		random:    mockRandom,
		logger:    testutil.NopLogger(),
		tokenConfig: token.Config{
			AccessSecret:  "test-access-secret",
			RefreshSecret: "test-refresh-secret",
			AccessTTL:     time.Hour,
			RefreshTTL:    7 * 24 * time.Hour,
		},
	})

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Store:      store,
	}
}
