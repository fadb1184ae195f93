package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apexqbank/apex-backend/internal/config"
	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/apexqbank/apex-backend/internal/quiz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// criticalThreshold marks the last minutes of a timed session.
const criticalThreshold = 5 * time.Minute

// QuestionSource is the question-set provider.
type QuestionSource interface {
	Fetch(ctx context.Context, f model.QuestionFilter) ([]model.Question, error)
}

// AttemptSink receives the attempt record written at submission.
type AttemptSink interface {
	Enqueue(ctx context.Context, rec *model.AttemptRecord) error
}

// SessionEvent is pushed to live subscribers of a session.
type SessionEvent struct {
	Type string             `json:"event"`
	View *model.SessionView `json:"session"`
}

const (
	SessionEventTick      = "tick"
	SessionEventSubmitted = "submitted"
	SessionEventClosed    = "closed"
)

// QuizService hosts live quiz sessions, one Runner per session.
type QuizService struct {
	access    *AccessService
	questions QuestionSource
	attempts  AttemptSink
	cfg       config.QuizConfig
	log       zerolog.Logger

	now       func() time.Time
	newTicker func() quiz.Ticker

	mu       sync.Mutex
	sessions map[uuid.UUID]*liveSession
	byUser   map[uuid.UUID]uuid.UUID
}

// NewQuizService creates a new QuizService.
func NewQuizService(
	access *AccessService,
	questions QuestionSource,
	attempts AttemptSink,
	cfg config.QuizConfig,
	log zerolog.Logger,
) *QuizService {
	return &QuizService{
		access:    access,
		questions: questions,
		attempts:  attempts,
		cfg:       cfg,
		log:       log.With().Str("component", "quiz_service").Logger(),
		now:       time.Now,
		sessions:  make(map[uuid.UUID]*liveSession),
		byUser:    make(map[uuid.UUID]uuid.UUID),
	}
}

type liveSession struct {
	id        uuid.UUID
	userID    uuid.UUID
	attemptID uuid.UUID
	questions []model.Question
	byID      map[int64]*model.Question
	runner    *quiz.Runner

	mu       sync.Mutex
	lastSeen time.Time
	counting bool
	subs     map[chan SessionEvent]struct{}
	closed   bool
}

func (ls *liveSession) touch(now time.Time) {
	ls.mu.Lock()
	ls.lastSeen = now
	ls.mu.Unlock()
}

// reapable reports whether the session may be closed for inactivity. A timed
// session stays alive while its countdown runs so expiry can submit it.
func (ls *liveSession) reapable(now time.Time, ttl time.Duration) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return !ls.counting && now.Sub(ls.lastSeen) > ttl
}

func (ls *liveSession) stopCounting() {
	ls.mu.Lock()
	ls.counting = false
	ls.mu.Unlock()
}

// publish fans ev out without blocking. A slow subscriber misses ticks, but a
// non-tick event evicts the oldest buffered one so it is always delivered.
func (ls *liveSession) publish(ev SessionEvent) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.closed {
		return
	}
	for ch := range ls.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		if ev.Type == SessionEventTick {
			continue
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

func (ls *liveSession) subscribe() (<-chan SessionEvent, func()) {
	ch := make(chan SessionEvent, 8)

	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.closed {
		close(ch)
		return ch, func() {}
	}
	ls.subs[ch] = struct{}{}

	return ch, func() {
		ls.mu.Lock()
		defer ls.mu.Unlock()
		if _, ok := ls.subs[ch]; ok {
			delete(ls.subs, ch)
			close(ch)
		}
	}
}

func (ls *liveSession) shutdown() {
	ls.runner.Close()

	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.closed = true
	for ch := range ls.subs {
		select {
		case ch <- SessionEvent{Type: SessionEventClosed}:
		default:
		}
		close(ch)
		delete(ls.subs, ch)
	}
}

// ─── Lifecycle ────────────────────────────────────────────────────────

// resolve turns a start request into an engine config and a fetch filter.
func (s *QuizService) resolve(req *model.StartQuizRequest) (quiz.Config, model.QuestionFilter, error) {
	mode, err := quiz.ParseMode(req.Mode)
	if err != nil {
		return quiz.Config{}, model.QuestionFilter{}, err
	}

	cfg := quiz.Config{Mode: mode, Budget: s.cfg.TimedBudget}
	filter := model.QuestionFilter{Subject: req.Subject}

	if req.Preset == model.PresetPractice {
		cfg.Budget = s.cfg.PracticeBudget
		filter.Limit = s.cfg.PracticeLimit
	}
	if req.DurationSeconds > 0 {
		cfg.Budget = time.Duration(req.DurationSeconds) * time.Second
	}
	if req.Limit > 0 {
		filter.Limit = req.Limit
	}
	if filter.Limit <= 0 || filter.Limit > s.cfg.MaxLimit {
		filter.Limit = s.cfg.MaxLimit
	}

	return cfg, filter, nil
}

// Start checks the learner, fetches questions and opens a session. A learner
// has at most one live session; an older one is discarded.
func (s *QuizService) Start(ctx context.Context, userID uuid.UUID, req *model.StartQuizRequest) (*model.SessionView, error) {
	if _, err := s.access.Check(ctx, userID); err != nil {
		return nil, err
	}

	cfg, filter, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	questions, err := s.questions.Fetch(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch questions: %v", ErrDataUnavailable, err)
	}

	engineQuestions := make([]quiz.Question, len(questions))
	for i := range questions {
		engineQuestions[i] = questions[i].Engine()
	}

	now := s.now()
	session, err := quiz.New(engineQuestions, cfg, now)
	if err != nil {
		return nil, err
	}

	ls := &liveSession{
		id:        uuid.New(),
		userID:    userID,
		attemptID: uuid.New(),
		questions: questions,
		byID:      make(map[int64]*model.Question, len(questions)),
		lastSeen:  now,
		counting:  cfg.Mode == quiz.ModeTimed,
		subs:      make(map[chan SessionEvent]struct{}),
	}
	for i := range ls.questions {
		ls.byID[ls.questions[i].ID] = &ls.questions[i]
	}

	var ticker quiz.Ticker
	if cfg.Mode == quiz.ModeTimed && s.newTicker != nil {
		ticker = s.newTicker()
	}

	ls.runner = quiz.NewRunner(session, quiz.RunnerOptions{
		Ticker: ticker,
		Clock:  s.now,
		OnTick: func(sn quiz.Snapshot) {
			ls.publish(SessionEvent{Type: SessionEventTick, View: s.view(ls, sn)})
		},
		OnTerminal: func(sn quiz.Snapshot) {
			s.finish(ls, sn)
		},
	})

	s.mu.Lock()
	previous := s.sessions[s.byUser[userID]]
	if previous != nil {
		delete(s.sessions, previous.id)
	}
	s.sessions[ls.id] = ls
	s.byUser[userID] = ls.id
	s.mu.Unlock()

	if previous != nil {
		previous.shutdown()
		s.log.Debug().Str("session_id", previous.id.String()).Msg("Replaced previous quiz session")
	}

	s.log.Info().
		Str("session_id", ls.id.String()).
		Str("user_id", userID.String()).
		Str("mode", string(cfg.Mode)).
		Int("questions", len(questions)).
		Msg("Quiz session started")

	return s.view(ls, session.Snapshot()), nil
}

// finish runs on the session goroutine at the terminal transition.
func (s *QuizService) finish(ls *liveSession, sn quiz.Snapshot) {
	ls.stopCounting()
	rec := s.record(ls, sn)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.attempts.Enqueue(ctx, rec); err != nil {
		s.log.Error().Err(err).Str("attempt_id", rec.ID.String()).Msg("Failed to queue attempt record")
	}

	s.log.Info().
		Str("session_id", ls.id.String()).
		Int("correct", rec.Correct).
		Int("total", rec.Total).
		Bool("auto_submitted", rec.AutoSubmitted).
		Msg("Quiz session submitted")

	ls.publish(SessionEvent{Type: SessionEventSubmitted, View: s.view(ls, sn)})
}

func (s *QuizService) record(ls *liveSession, sn quiz.Snapshot) *model.AttemptRecord {
	ids := make([]int64, len(ls.questions))
	for i, q := range ls.questions {
		ids[i] = q.ID
	}
	selections := make(map[int64]string, len(sn.Selections))
	for id, l := range sn.Selections {
		selections[id] = string(l)
	}

	rec := &model.AttemptRecord{
		ID:              ls.attemptID,
		UserID:          ls.userID,
		Mode:            string(sn.Mode),
		QuestionIDs:     ids,
		Selections:      selections,
		AutoSubmitted:   sn.AutoSubmitted,
		StartedAt:       sn.StartedAt,
		SubmittedAt:     sn.SubmittedAt,
		DurationSeconds: int(sn.SubmittedAt.Sub(sn.StartedAt).Seconds()),
	}
	if sn.Result != nil {
		rec.Total = sn.Result.Total
		rec.Correct = sn.Result.Correct
		rec.Incorrect = sn.Result.Incorrect
		rec.Accuracy = sn.Result.Accuracy
	}
	return rec
}

func (s *QuizService) lookup(userID, sessionID uuid.UUID) (*liveSession, error) {
	s.mu.Lock()
	ls, ok := s.sessions[sessionID]
	s.mu.Unlock()

	if !ok || ls.userID != userID {
		return nil, ErrSessionNotFound
	}
	ls.touch(s.now())
	return ls, nil
}

// apply runs fn on the session goroutine and renders the resulting state.
func (s *QuizService) apply(ctx context.Context, userID, sessionID uuid.UUID, fn func(*quiz.Session) error) (*model.SessionView, error) {
	ls, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}

	var sn quiz.Snapshot
	err = ls.runner.Do(ctx, func(q *quiz.Session) error {
		if err := fn(q); err != nil {
			return err
		}
		sn = q.Snapshot()
		return nil
	})
	if err != nil {
		if errors.Is(err, quiz.ErrSessionClosed) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s.view(ls, sn), nil
}

// Get returns the current state of a session.
func (s *QuizService) Get(ctx context.Context, userID, sessionID uuid.UUID) (*model.SessionView, error) {
	return s.apply(ctx, userID, sessionID, func(*quiz.Session) error { return nil })
}

// Advance moves to the next question.
func (s *QuizService) Advance(ctx context.Context, userID, sessionID uuid.UUID) (*model.SessionView, error) {
	return s.apply(ctx, userID, sessionID, func(q *quiz.Session) error {
		q.Advance()
		return nil
	})
}

// Retreat moves to the previous question.
func (s *QuizService) Retreat(ctx context.Context, userID, sessionID uuid.UUID) (*model.SessionView, error) {
	return s.apply(ctx, userID, sessionID, func(q *quiz.Session) error {
		q.Retreat()
		return nil
	})
}

// SelectAnswer records a choice.
func (s *QuizService) SelectAnswer(ctx context.Context, userID, sessionID uuid.UUID, questionID int64, label string) (*model.SessionView, error) {
	l, err := quiz.ParseLabel(label)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, userID, sessionID, func(q *quiz.Session) error {
		return q.SelectAnswer(questionID, l)
	})
}

// Reveal shows tutor-mode feedback for one question and locks it.
func (s *QuizService) Reveal(ctx context.Context, userID, sessionID uuid.UUID, questionID int64) (*model.RevealResponse, error) {
	var fb quiz.Feedback
	view, err := s.apply(ctx, userID, sessionID, func(q *quiz.Session) error {
		var err error
		fb, err = q.Reveal(questionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &model.RevealResponse{Feedback: fb, Session: view}, nil
}

// Submit scores the session. Repeated calls return the same result.
func (s *QuizService) Submit(ctx context.Context, userID, sessionID uuid.UUID) (*model.SessionView, error) {
	return s.apply(ctx, userID, sessionID, func(q *quiz.Session) error {
		q.Submit(s.now())
		return nil
	})
}

// Close tears a session down. An unsubmitted session is discarded.
func (s *QuizService) Close(userID, sessionID uuid.UUID) error {
	s.mu.Lock()
	ls, ok := s.sessions[sessionID]
	if !ok || ls.userID != userID {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	s.remove(ls)
	s.mu.Unlock()

	ls.shutdown()
	return nil
}

// remove must be called with s.mu held.
func (s *QuizService) remove(ls *liveSession) {
	delete(s.sessions, ls.id)
	if s.byUser[ls.userID] == ls.id {
		delete(s.byUser, ls.userID)
	}
}

// Subscribe streams tick and submission events of a session.
func (s *QuizService) Subscribe(userID, sessionID uuid.UUID) (<-chan SessionEvent, func(), error) {
	ls, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := ls.subscribe()
	return ch, cancel, nil
}

// Active returns the number of hosted sessions.
func (s *QuizService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Reap closes sessions idle for longer than the configured TTL. Timed sessions
// are left to their countdown and become reapable once submitted.
func (s *QuizService) Reap(now time.Time) int {
	var stale []*liveSession

	s.mu.Lock()
	for _, ls := range s.sessions {
		if ls.reapable(now, s.cfg.IdleTTL) {
			stale = append(stale, ls)
		}
	}
	for _, ls := range stale {
		s.remove(ls)
	}
	s.mu.Unlock()

	for _, ls := range stale {
		ls.shutdown()
	}
	return len(stale)
}

// StartJanitor reaps idle sessions until ctx is cancelled, then closes the rest.
func (s *QuizService) StartJanitor(ctx context.Context) {
	interval := s.cfg.ReapInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return
		case <-ticker.C:
			if n := s.Reap(s.now()); n > 0 {
				s.log.Info().Int("reaped", n).Msg("Closed idle quiz sessions")
			}
		}
	}
}

// Shutdown closes every hosted session.
func (s *QuizService) Shutdown() {
	s.mu.Lock()
	all := make([]*liveSession, 0, len(s.sessions))
	for _, ls := range s.sessions {
		all = append(all, ls)
	}
	s.sessions = make(map[uuid.UUID]*liveSession)
	s.byUser = make(map[uuid.UUID]uuid.UUID)
	s.mu.Unlock()

	for _, ls := range all {
		ls.shutdown()
	}
}

// ─── Rendering ────────────────────────────────────────────────────────

func (s *QuizService) view(ls *liveSession, sn quiz.Snapshot) *model.SessionView {
	v := &model.SessionView{
		ID:               ls.id,
		Mode:             string(sn.Mode),
		State:            string(sn.State),
		Position:         sn.Position,
		Total:            sn.Total,
		Answered:         len(sn.Selections),
		BudgetSeconds:    int(sn.Budget / time.Second),
		RemainingSeconds: int(sn.Remaining / time.Second),
		Critical:         sn.Critical(criticalThreshold),
		AutoSubmitted:    sn.AutoSubmitted,
		Selections:       make(map[int64]string, len(sn.Selections)),
		Result:           sn.Result,
	}
	for id, l := range sn.Selections {
		v.Selections[id] = string(l)
	}
	if sn.Terminal() {
		id := ls.attemptID
		v.AttemptID = &id
	}

	if q, ok := ls.byID[sn.Current.ID]; ok {
		v.Current = questionView(q, sn)
	}
	return v
}

func questionView(q *model.Question, sn quiz.Snapshot) *model.QuestionView {
	qv := &model.QuestionView{
		ID:           q.ID,
		Subject:      q.Subject,
		QuestionText: q.QuestionText,
		ImageURL:     q.ImageURL,
		Options:      make(map[string]string, len(quiz.Labels)),
		Revealed:     sn.Revealed[q.ID] || sn.Terminal(),
	}
	for _, l := range quiz.Labels {
		qv.Options[string(l)] = q.Option(l)
	}

	sel, answered := sn.Selections[q.ID]
	if answered {
		s := string(sel)
		qv.Selected = &s
	}

	if qv.Revealed {
		key := q.CorrectOption
		qv.CorrectOption = &key
		qv.Explanation = q.Explanation
		qv.Reference = q.Reference
		correct := answered && string(sel) == q.CorrectOption
		qv.IsCorrect = &correct
	}
	return qv
}
