package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/harrisonoakess/aluehealth-backend/models"
	"github.com/harrisonoakess/aluehealth-backend/utils"
)

// SessionState is the capture pipeline phase. Idle isn't represented: no
// session means idle. Failed and Cancelled aren't held either: both discard
// the session, so the account is back to idle immediately.
type SessionState string

const (
	StateCaptured   SessionState = "captured"
	StateNoted      SessionState = "noted"
	StateAnalyzing  SessionState = "analyzing"
	StateReviewing  SessionState = "reviewing"
	StateConfirming SessionState = "confirming"
	StateDone       SessionState = "done"
)

// Abandoned sessions (never analyzed, never cancelled) hold image bytes, so
// they get swept after this long. Anonymous captures have no account slot and
// rely entirely on the sweep.
const SessionTTL = 15 * time.Minute

// CaptureSession holds the transient state of one capture: the normalized
// image, the optional note, and after analysis the result awaiting review.
type CaptureSession struct {
	ID         uuid.UUID
	AccountID  string
	State      SessionState
	Image      []byte
	Mime       string
	Note       string
	Result     *models.AnalysisResult
	CapturedAt time.Time
}

// FoodChecker is the optional pre-analysis gate (Rekognition in production).
type FoodChecker interface {
	LooksLikeFood(ctx context.Context, image []byte) (bool, []string, error)
}

// MealEventSink receives a notification after a meal is persisted.
type MealEventSink interface {
	MealLogged(accountID string, mealID uuid.UUID, caloriesTotal int)
}

// CaptureService owns the session registry and drives each capture through
// capture → analyze → review → confirm. At most one session per account, and
// a session that is analyzing or confirming blocks new captures.
type CaptureService struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*CaptureSession
	byAccount map[string]uuid.UUID

	analyzer Analyzer
	vision   FoodChecker // nil disables the pre-check
	meals    MealStore
	store    ObjectStore
	events   MealEventSink // nil disables notifications
}

func NewCaptureService(analyzer Analyzer, vision FoodChecker, meals MealStore, store ObjectStore, events MealEventSink) *CaptureService {
	return &CaptureService{
		sessions:  make(map[uuid.UUID]*CaptureSession),
		byAccount: make(map[string]uuid.UUID),
		analyzer:  analyzer,
		vision:    vision,
		meals:     meals,
		store:     store,
		events:    events,
	}
}

// StartCapture opens a session for a freshly picked image. A previous session
// still in review is silently replaced (picking a new photo abandons the old
// one, side-effect free); one that is mid-analysis or mid-save blocks.
func (s *CaptureService) StartCapture(accountID string, image []byte, filename, note string) (*CaptureSession, error) {
	norm := utils.NormalizeImage(image, filename)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired(time.Now().UTC())

	if accountID != "" {
		if sid, ok := s.byAccount[accountID]; ok {
			prev := s.sessions[sid]
			if prev.State == StateAnalyzing || prev.State == StateConfirming {
				return nil, ErrSessionBusy
			}
			delete(s.sessions, sid)
		}
	}

	sess := &CaptureSession{
		ID:         uuid.New(),
		AccountID:  accountID,
		State:      StateCaptured,
		Image:      norm.Data,
		Mime:       norm.Mime,
		Note:       note,
		CapturedAt: time.Now().UTC(),
	}
	if note != "" {
		sess.State = StateNoted
	}
	s.sessions[sess.ID] = sess
	if accountID != "" {
		s.byAccount[accountID] = sess.ID
	}
	return sess, nil
}

// AttachNote sets or replaces the note before analysis.
func (s *CaptureService) AttachNote(accountID string, sid uuid.UUID, note string) (*CaptureSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.owned(accountID, sid)
	if err != nil {
		return nil, err
	}
	if sess.State != StateCaptured && sess.State != StateNoted {
		return nil, &InvalidTransitionError{From: sess.State, Op: "attach a note"}
	}
	sess.Note = note
	sess.State = StateNoted
	return sess, nil
}

// Analyze runs the image through the analysis endpoint. On failure the session
// is discarded (back to idle) and the error surfaced; on success the result is
// held for review, not yet persisted.
func (s *CaptureService) Analyze(ctx context.Context, accountID string, sid uuid.UUID) (*models.AnalysisResult, error) {
	s.mu.Lock()
	sess, err := s.owned(accountID, sid)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if sess.State != StateCaptured && sess.State != StateNoted {
		s.mu.Unlock()
		return nil, &InvalidTransitionError{From: sess.State, Op: "analyze"}
	}
	sess.State = StateAnalyzing
	image, mime, note := sess.Image, sess.Mime, sess.Note
	s.mu.Unlock()

	if s.vision != nil {
		ok, labels, verr := s.vision.LooksLikeFood(ctx, image)
		if verr != nil {
			// best effort: a broken pre-check must not block analysis
			log.WithError(verr).Warn("food pre-check unavailable, skipping")
		} else if !ok {
			s.drop(sid)
			log.WithField("labels", labels).Info("capture rejected by food pre-check")
			return nil, &AnalysisFailedError{Status: 422, Message: "no food detected in the photo"}
		}
	}

	result, err := s.analyzer.AnalyzeMeal(ctx, image, mime, note, accountID)
	if err != nil {
		s.drop(sid)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Result = result
	sess.State = StateReviewing
	return result, nil
}

// Confirm uploads the image and persists the reviewed result, in that order.
// On any failure the session is discarded and nothing stays persisted (the
// insert is transactional; a stray blob is overwritten by the next attempt
// with the same key).
func (s *CaptureService) Confirm(ctx context.Context, accountID string, sid uuid.UUID) (uuid.UUID, error) {
	if accountID == "" {
		return uuid.Nil, ErrPermissionDenied
	}

	s.mu.Lock()
	sess, err := s.owned(accountID, sid)
	if err != nil {
		s.mu.Unlock()
		return uuid.Nil, err
	}
	if sess.State != StateReviewing {
		s.mu.Unlock()
		return uuid.Nil, &InvalidTransitionError{From: sess.State, Op: "confirm"}
	}
	sess.State = StateConfirming
	image, mime, result := sess.Image, sess.Mime, sess.Result
	s.mu.Unlock()

	// Provisional analysis id keys the object when present, so a retried
	// confirm overwrites rather than duplicates.
	fileID := result.MealID
	if fileID == "" {
		fileID = sid.String()
	}

	path, storedMime, err := s.store.UploadMealImage(ctx, accountID, fileID, image, mime)
	if err != nil {
		s.drop(sid)
		return uuid.Nil, err
	}

	mealID, err := s.meals.SaveAnalyzedMeal(ctx, accountID, result, path, storedMime)
	if err != nil {
		s.drop(sid)
		return uuid.Nil, err
	}

	s.mu.Lock()
	sess.State = StateDone
	s.mu.Unlock()
	s.drop(sid)

	if s.events != nil {
		s.events.MealLogged(accountID, mealID, int(result.CaloriesTotal))
	}
	return mealID, nil
}

// Cancel discards the session with zero external side effects. Not allowed
// once analysis or the save sequence is in flight.
func (s *CaptureService) Cancel(accountID string, sid uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.owned(accountID, sid)
	if err != nil {
		return err
	}
	if sess.State == StateAnalyzing || sess.State == StateConfirming {
		return ErrCancelTooLate
	}
	s.remove(sess)
	return nil
}

// Session returns a snapshot of the current session state, for polling.
func (s *CaptureService) Session(accountID string, sid uuid.UUID) (*CaptureSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owned(accountID, sid)
}

func (s *CaptureService) owned(accountID string, sid uuid.UUID) (*CaptureSession, error) {
	sess, ok := s.sessions[sid]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.AccountID != accountID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *CaptureService) drop(sid uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sid]; ok {
		s.remove(sess)
	}
}

// evictExpired drops sessions past SessionTTL. Caller holds s.mu. Sessions
// mid-analysis or mid-save are left alone; they discard themselves when the
// in-flight call returns.
func (s *CaptureService) evictExpired(now time.Time) {
	for _, sess := range s.sessions {
		if sess.State == StateAnalyzing || sess.State == StateConfirming {
			continue
		}
		if now.Sub(sess.CapturedAt) > SessionTTL {
			s.remove(sess)
		}
	}
}

func (s *CaptureService) remove(sess *CaptureSession) {
	delete(s.sessions, sess.ID)
	if sess.AccountID != "" && s.byAccount[sess.AccountID] == sess.ID {
		delete(s.byAccount, sess.AccountID)
	}
}
