package constants

import "time"

// BackendKind selects which provider implementation backs the app
type BackendKind string

// Area is a top-level navigation area of the TUI
type Area int

// Tab is a screen inside the authenticated area
type Tab int

const (
	AppName           = "habitual"
	Version           = "v0.1.0"
	DefaultConfigDir  = "~/.config/habitual"
	DefaultLocalPath  = "~/.config/habitual/habitual.db"
	DefaultEndpoint   = "https://cloud.appwrite.io/v1"
	KeyringUserPrefix = "session-"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// DatetimeFormat is the wire format for document timestamps. It is fixed-width
	// UTC so that lexical comparison on the backend matches chronological order.
	DatetimeFormat = "2006-01-02T15:04:05.000Z"

	// Backend kinds
	BackendAppwrite BackendKind = "appwrite"
	BackendLocal    BackendKind = "local"

	// Default database and collection identifiers
	DefaultDatabaseID            = "habitual"
	DefaultHabitsCollectionID    = "habits"
	DefaultCompletionsCollection = "habit_completions"

	// Realtime event names (wildcard form, as delivered by the backend)
	EventDocumentCreate = "databases.*.collections.*.documents.*.create"
	EventDocumentUpdate = "databases.*.collections.*.documents.*.update"
	EventDocumentDelete = "databases.*.collections.*.documents.*.delete"
	// EventResync is raised by the client itself after the feed reconnects;
	// changes made while it was down were not delivered.
	EventResync = "habitual.resync"

	// Realtime connection constants
	RealtimePingInterval = 20 * time.Second
	RealtimeMinBackoff   = time.Second
	RealtimeMaxBackoff   = 30 * time.Second

	// Local provider constants
	LocalPollInterval = 250 * time.Millisecond
	LocalSessionTTL   = 365 * 24 * time.Hour
	LocalChangeTTL    = time.Hour
	// DefaultListLimit mirrors the hosted backend's page size when no limit is given
	DefaultListLimit = 25
	// ListLimit is the page size the app requests for its own lists
	ListLimit = 500

	// Streak update retry constants
	StreakUpdateMaxRetries = 3
	StreakUpdateRetryDelay = 200 * time.Millisecond

	// Session user-facing fallbacks
	SignUpFallbackMessage = "Something went wrong while signing up"
	SignInFallbackMessage = "Something went wrong while logging in"
	CreateFallbackMessage = "Something went wrong on the server!"
)

const (
	AreaAuth Area = iota
	AreaTabs
)

const (
	TabToday Tab = iota
	TabStreaks
	TabAddHabit
)

// String returns the tab title shown in the tab bar
func (t Tab) String() string {
	switch t {
	case TabToday:
		return "Today's Habits"
	case TabStreaks:
		return "Streaks"
	case TabAddHabit:
		return "Add Habit"
	default:
		return "unknown"
	}
}

// String returns a short name for the area
func (a Area) String() string {
	switch a {
	case AreaAuth:
		return "auth"
	case AreaTabs:
		return "tabs"
	default:
		return "unknown"
	}
}
