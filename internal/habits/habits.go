// Package habits is the signed-in user's view of their habits and of
// today's completions, plus the mutations the app performs on them.
package habits

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/julianstephens/habitual/internal/backend"
	"github.com/julianstephens/habitual/internal/constants"
	apperrors "github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/id"
	"github.com/julianstephens/habitual/internal/listsync"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/session"
	"github.com/julianstephens/habitual/internal/validation"
)

// ErrNotSignedIn is returned by operations that need an identity.
var ErrNotSignedIn = errors.New("not logged in")

// Collections names where habits and completions live.
type Collections struct {
	DatabaseID    string
	HabitsID      string
	CompletionsID string
}

// Service owns the two synchronized lists.
type Service struct {
	db       backend.Databases
	sessions *session.Manager
	cols     Collections

	// Now is the clock used for timestamps and for deciding what "today" is.
	Now func() time.Time
	// RetryDelay is the pause between streak update attempts.
	RetryDelay time.Duration

	habits      *listsync.List[models.Habit]
	completions *listsync.List[models.Completion]

	mu     sync.Mutex
	cancel context.CancelFunc
	unsubs []func()

	// completing serializes Complete so the "already done today" check and
	// the optimistic insert happen together.
	completing sync.Mutex
}

// NewService wires a service to provider. sessions supplies the identity
// every query is scoped to.
func NewService(provider backend.Provider, sessions *session.Manager, cols Collections) *Service {
	s := &Service{
		db:         provider.Databases(),
		sessions:   sessions,
		cols:       cols,
		Now:        time.Now,
		RetryDelay: constants.StreakUpdateRetryDelay,
	}
	s.habits = listsync.New("habits", provider.Realtime(),
		backend.DocumentsChannel(cols.DatabaseID, cols.HabitsID), s.fetchHabits)
	s.completions = listsync.New("completions", provider.Realtime(),
		backend.DocumentsChannel(cols.DatabaseID, cols.CompletionsID), s.fetchCompletions)
	return s
}

func (s *Service) userID() (string, error) {
	identity, ok := s.sessions.Identity()
	if !ok {
		return "", ErrNotSignedIn
	}
	return identity.ID, nil
}

func (s *Service) fetchHabits(ctx context.Context) ([]models.Habit, error) {
	userID, err := s.userID()
	if err != nil {
		return nil, err
	}
	list, err := s.db.ListDocuments(ctx, s.cols.DatabaseID, s.cols.HabitsID,
		backend.Equal("user_id", userID),
		backend.Limit(constants.ListLimit),
	)
	if err != nil {
		return nil, err
	}
	return backend.DecodeList[models.Habit](list)
}

// fetchCompletions loads completions since local midnight.
func (s *Service) fetchCompletions(ctx context.Context) ([]models.Completion, error) {
	userID, err := s.userID()
	if err != nil {
		return nil, err
	}
	midnight := models.StartOfDay(s.Now())
	list, err := s.db.ListDocuments(ctx, s.cols.DatabaseID, s.cols.CompletionsID,
		backend.Equal("user_id", userID),
		backend.GreaterThanEqual("completed_at", models.FormatDatetime(midnight)),
		backend.Limit(constants.ListLimit),
	)
	if err != nil {
		return nil, err
	}
	return backend.DecodeList[models.Completion](list)
}

// Start subscribes both lists and loads them. Fetch failures are logged and
// leave the lists empty; only a missing identity or a failed subscription is
// returned.
func (s *Service) Start(ctx context.Context) error {
	if _, err := s.userID(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	var unsubs []func()
	for _, sub := range []func(context.Context) (func(), error){s.habits.Subscribe, s.completions.Subscribe} {
		unsub, err := sub(runCtx)
		if err != nil {
			for _, u := range unsubs {
				u()
			}
			s.Stop()
			return fmt.Errorf("subscribe: %w", err)
		}
		unsubs = append(unsubs, unsub)
	}

	s.mu.Lock()
	s.unsubs = unsubs
	s.mu.Unlock()

	s.Refresh(runCtx)
	return nil
}

// Stop closes the subscriptions, cancels fetches in flight and empties both
// lists.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel, unsubs := s.cancel, s.unsubs
	s.cancel, s.unsubs = nil, nil
	s.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	if cancel != nil {
		cancel()
	}
	s.habits.Reset()
	s.completions.Reset()
}

// Running reports whether Start has been called without a matching Stop.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Load fetches both lists once and returns the first failure. Commands that
// run once use it instead of Start.
func (s *Service) Load(ctx context.Context) error {
	if _, err := s.userID(); err != nil {
		return err
	}
	if err := s.habits.Fetch(ctx); err != nil {
		return fmt.Errorf("fetch habits: %w", err)
	}
	if err := s.completions.Fetch(ctx); err != nil {
		return fmt.Errorf("fetch completions: %w", err)
	}
	return nil
}

// Refresh refetches both lists concurrently.
func (s *Service) Refresh(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = s.habits.Fetch(ctx) }()
	go func() { defer wg.Done(); _ = s.completions.Fetch(ctx) }()
	wg.Wait()
}

// OnChange calls fn after either list changes.
func (s *Service) OnChange(fn func()) func() {
	a := s.habits.OnChange(func([]models.Habit) { fn() })
	b := s.completions.OnChange(func([]models.Completion) { fn() })
	return func() { a(); b() }
}

// Habits returns the current habits in backend order.
func (s *Service) Habits() []models.Habit {
	return s.habits.Items()
}

// Completions returns today's completions.
func (s *Service) Completions() []models.Completion {
	return s.completions.Items()
}

// Habit looks up one habit by id.
func (s *Service) Habit(habitID string) (models.Habit, bool) {
	for _, h := range s.habits.Items() {
		if h.ID == habitID {
			return h, true
		}
	}
	return models.Habit{}, false
}

// Find resolves a habit by id, or by case-insensitive title when the title
// is unique.
func (s *Service) Find(ref string) (models.Habit, error) {
	if h, ok := s.Habit(ref); ok {
		return h, nil
	}
	var matches []models.Habit
	for _, h := range s.habits.Items() {
		if strings.EqualFold(h.Title, ref) {
			matches = append(matches, h)
		}
	}
	switch len(matches) {
	case 0:
		return models.Habit{}, fmt.Errorf("habit %q not found", ref)
	case 1:
		return matches[0], nil
	default:
		return models.Habit{}, fmt.Errorf("%d habits are titled %q, use the id instead", len(matches), ref)
	}
}

// IsCompleted reports whether habitID has a completion today.
func (s *Service) IsCompleted(habitID string) bool {
	today := s.Now()
	for _, c := range s.completions.Items() {
		if c.HabitID == habitID && c.CompletedOn(today) {
			return true
		}
	}
	return false
}

// Streaks returns the habits ordered by streak, longest first, then by title.
func (s *Service) Streaks() []models.Habit {
	out := s.habits.Items()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StreakCount != out[j].StreakCount {
			return out[i].StreakCount > out[j].StreakCount
		}
		return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
	})
	return out
}

// Create validates input and stores a new habit with a zero streak.
func (s *Service) Create(ctx context.Context, input validation.HabitInput) (models.Habit, error) {
	input = input.Normalized()
	if err := validation.ValidateHabit(input); err != nil {
		return models.Habit{}, err
	}
	userID, err := s.userID()
	if err != nil {
		return models.Habit{}, err
	}
	docID, err := id.Unique()
	if err != nil {
		return models.Habit{}, apperrors.Wrap("create habit", err, constants.CreateFallbackMessage)
	}

	now := models.NewDatetime(s.Now())
	fields := models.HabitFields{
		UserID:        userID,
		Title:         input.Title,
		Description:   input.Description,
		Frequency:     input.Frequency,
		StreakCount:   0,
		LastCompleted: now,
		CreatedAt:     now,
	}
	raw, err := s.db.CreateDocument(ctx, s.cols.DatabaseID, s.cols.HabitsID, docID, fields)
	if err != nil {
		logger.Error("Failed to create habit", "error", err)
		return models.Habit{}, apperrors.Wrap("create habit", err, constants.CreateFallbackMessage)
	}

	habit, err := backend.Decode[models.Habit](raw)
	if err != nil {
		return models.Habit{}, apperrors.Wrap("create habit", err, constants.CreateFallbackMessage)
	}
	s.habits.Apply(func(items []models.Habit) []models.Habit {
		for _, h := range items {
			if h.ID == habit.ID {
				return items
			}
		}
		return append(items, habit)
	})
	return habit, nil
}

// Complete marks habitID done for today and bumps its streak. It is a no-op
// when the habit is already done today or is not in the list.
//
// The completion record is written first. The streak update that follows
// sets absolute values taken from the snapshot, so retrying it is safe; if
// every attempt fails the record stays without an increment and the error is
// returned.
func (s *Service) Complete(ctx context.Context, habitID string) error {
	s.completing.Lock()
	defer s.completing.Unlock()

	userID, err := s.userID()
	if err != nil {
		return err
	}
	if s.IsCompleted(habitID) {
		logger.Debug("Habit already completed today", "habit", habitID)
		return nil
	}
	habit, ok := s.Habit(habitID)
	if !ok {
		logger.Warn("Ignoring completion for unknown habit", "habit", habitID)
		return nil
	}

	docID, err := id.Unique()
	if err != nil {
		return err
	}
	now := models.NewDatetime(s.Now())
	raw, err := s.db.CreateDocument(ctx, s.cols.DatabaseID, s.cols.CompletionsID, docID, models.CompletionFields{
		UserID:      userID,
		HabitID:     habitID,
		CompletedAt: now,
	})
	if err != nil {
		logger.Error("Failed to record completion", "habit", habitID, "error", err)
		return fmt.Errorf("record completion: %w", err)
	}

	completion, err := backend.Decode[models.Completion](raw)
	if err != nil || completion.ID == "" {
		completion = models.Completion{Meta: models.Meta{ID: docID}, UserID: userID, HabitID: habitID, CompletedAt: now}
	}
	s.completions.Apply(func(items []models.Completion) []models.Completion {
		return append(items, completion)
	})

	update := models.StreakUpdate{StreakCount: habit.StreakCount + 1, LastCompleted: now}
	if err := s.updateStreak(ctx, habitID, update); err != nil {
		logger.Error("Completion recorded but streak update failed", "habit", habitID, "completion", completion.ID, "error", err)
		return fmt.Errorf("update streak: %w", err)
	}

	s.habits.Apply(func(items []models.Habit) []models.Habit {
		for i := range items {
			if items[i].ID == habitID {
				items[i].StreakCount = update.StreakCount
				items[i].LastCompleted = update.LastCompleted
			}
		}
		return items
	})
	return nil
}

func (s *Service) updateStreak(ctx context.Context, habitID string, update models.StreakUpdate) error {
	var err error
	for attempt := 1; attempt <= constants.StreakUpdateMaxRetries; attempt++ {
		_, err = s.db.UpdateDocument(ctx, s.cols.DatabaseID, s.cols.HabitsID, habitID, update)
		if err == nil {
			return nil
		}
		if backend.IsNotFound(err) || backend.IsUnauthorized(err) {
			return err
		}
		logger.Warn("Streak update failed", "habit", habitID, "attempt", attempt, "error", err)
		if attempt == constants.StreakUpdateMaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.RetryDelay):
		}
	}
	return err
}

// Remove deletes the habit. Its completion records are left in place.
func (s *Service) Remove(ctx context.Context, habitID string) error {
	if _, err := s.userID(); err != nil {
		return err
	}
	if err := s.db.DeleteDocument(ctx, s.cols.DatabaseID, s.cols.HabitsID, habitID); err != nil {
		logger.Error("Failed to delete habit", "habit", habitID, "error", err)
		return fmt.Errorf("delete habit: %w", err)
	}
	s.habits.Apply(func(items []models.Habit) []models.Habit {
		out := items[:0]
		for _, h := range items {
			if h.ID != habitID {
				out = append(out, h)
			}
		}
		return out
	})
	return nil
}
