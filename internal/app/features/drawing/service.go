// internal/app/features/drawing/service.go
package drawing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	"github.com/dalemusser/secretsanta/internal/app/system/auditlog"
	"github.com/dalemusser/secretsanta/internal/app/system/bus"
	"github.com/dalemusser/secretsanta/internal/app/system/draw"
	"github.com/dalemusser/secretsanta/internal/app/system/lease"
	"github.com/dalemusser/secretsanta/internal/app/system/metrics"
	"github.com/dalemusser/secretsanta/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 8
	DefaultLeaseTTL    = 2 * time.Minute
)

// Result reports one draw run.
type Result struct {
	RunID         string
	GroupID       string
	Total         int // approved participants at draw time
	SuccessCount  int // assignments persisted
	FailureCount  int // assignments not persisted
	ResetFailures int // giftee resets that failed in phase 1
	Finalized     bool
	Assignments   draw.Assignment // giver userID -> receiver userID
}

// Summary is the one-line message shown to the moderator.
func (r Result) Summary() string {
	switch {
	case r.Finalized:
		return fmt.Sprintf("Draw complete: %d of %d assignments saved.", r.SuccessCount, r.Total)
	case r.FailureCount > 0:
		return fmt.Sprintf("Draw incomplete: %d of %d assignments saved, %d failed. Run the draw again to retry.",
			r.SuccessCount, r.Total, r.FailureCount)
	default:
		return fmt.Sprintf("Draw not finalized: %d of %d assignments saved.", r.SuccessCount, r.Total)
	}
}

// Option configures a Service.
type Option func(*Service)

// WithLocker adds a cross-process lease taken for the duration of a draw.
func WithLocker(l lease.Locker, ttl time.Duration) Option {
	return func(s *Service) {
		s.locker = l
		if ttl > 0 {
			s.leaseTTL = ttl
		}
	}
}

// WithPublisher publishes a bus.DrawCompleted event after each finalized draw.
func WithPublisher(p bus.Publisher) Option {
	return func(s *Service) { s.bus = p }
}

func WithAudit(a *auditlog.Logger) Option {
	return func(s *Service) { s.audit = a }
}

func WithMetrics(m *metrics.Draw) Option {
	return func(s *Service) { s.metrics = m }
}

// WithConcurrency bounds the number of in-flight participant writes.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// Service runs draws. It is the only writer of participant giftees and the
// only component that moves a group from open to drawn.
type Service struct {
	participants storeapi.Participants
	groups       storeapi.Groups
	engine       *draw.Engine
	log          *zap.Logger

	locker      lease.Locker
	leaseTTL    time.Duration
	bus         bus.Publisher
	audit       *auditlog.Logger
	metrics     *metrics.Draw
	concurrency int

	activeMu sync.RWMutex
	active   map[string]string // groupID -> runID

	newRunID func() string
	now      func() time.Time
}

// NewService wires a Service. A nil engine gets a clock-seeded draw.Engine.
func NewService(participants storeapi.Participants, groups storeapi.Groups, engine *draw.Engine, logger *zap.Logger, opts ...Option) *Service {
	if engine == nil {
		engine = draw.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		participants: participants,
		groups:       groups,
		engine:       engine,
		log:          logger,
		leaseTTL:     DefaultLeaseTTL,
		concurrency:  DefaultConcurrency,
		active:       make(map[string]string),
		newRunID:     uuid.NewString,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Running reports the run ID of an in-process draw for groupID, if any.
func (s *Service) Running(groupID string) (string, bool) {
	s.activeMu.RLock()
	defer s.activeMu.RUnlock()
	runID, ok := s.active[groupID]
	return runID, ok
}

func (s *Service) markActive(groupID, runID string) bool {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	if _, busy := s.active[groupID]; busy {
		return false
	}
	s.active[groupID] = runID
	return true
}

func (s *Service) clearActive(groupID string) {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	delete(s.active, groupID)
}

// PerformDraw assigns every approved participant of groupID a giftee.
//
// Precondition failures (*draw.ValidationError, ErrGroupNotFound) happen
// before any write. Otherwise the draw resets all approved giftees, computes
// a derangement from the approved user IDs snapshotted at the start, writes
// each giftee independently and marks the group drawn only when every write
// succeeded. A partial persist returns the Result together with a
// *PartialFailureError and leaves the group open for a retry.
//
// Canceling ctx stops new writes; writes already issued are not undone and
// the pairs never attempted count as failures.
func (s *Service) PerformDraw(ctx context.Context, groupID string) (Result, error) {
	runID := s.newRunID()
	res := Result{RunID: runID, GroupID: groupID}
	log := s.log.With(zap.String("run_id", runID), zap.String("group_id", groupID))

	if !s.markActive(groupID, runID) {
		s.metrics.Run(metrics.OutcomeConflict)
		return res, ErrDrawInProgress
	}
	defer s.clearActive(groupID)

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, "draw:"+groupID, s.leaseTTL)
		if errors.Is(err, lease.ErrHeld) {
			s.metrics.Run(metrics.OutcomeConflict)
			return res, ErrDrawInProgress
		}
		if err != nil {
			s.metrics.Run(metrics.OutcomeFailed)
			return res, fmt.Errorf("acquire draw lease: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("release draw lease failed", zap.Error(err))
			}
		}()
	}

	group, approved, err := s.load(ctx, groupID)
	if err != nil {
		s.metrics.Run(metrics.OutcomeRejected)
		return res, err
	}
	res.Total = len(approved)

	givers := make([]string, len(approved))
	for i, p := range approved {
		givers[i] = p.UserID
	}
	if err := draw.CheckGivers(givers); err != nil {
		s.metrics.Run(metrics.OutcomeRejected)
		return res, err
	}

	start := s.now()
	defer s.metrics.Begin()()
	defer s.metrics.Observe(start)
	log.Info("draw started", zap.Int("participants", len(approved)))

	// Phase 1: reset.
	resetFailed, resetErr := s.fanOut(ctx, approved, func(ctx context.Context, p models.Participant) error {
		_, err := s.participants.WriteParticipant(ctx, p.ID, storeapi.ParticipantPatch{ClearGiftee: true})
		return err
	})
	res.ResetFailures = resetFailed
	s.metrics.Writes("reset", len(approved)-resetFailed, resetFailed)
	if resetFailed > 0 {
		log.Warn("giftee reset incomplete", zap.Int("failed", resetFailed), zap.Error(resetErr))
	}

	// Phase 2: compute.
	assignment, err := s.engine.Assign(givers)
	if err != nil {
		log.Error("draw compute failed", zap.Error(err))
		s.metrics.Run(metrics.OutcomeFailed)
		s.audit.DrawFailed(ctx, groupID, runID, err.Error())
		return res, err
	}
	res.Assignments = assignment

	// Phase 3: persist.
	persistFailed, persistErr := s.fanOut(ctx, approved, func(ctx context.Context, p models.Participant) error {
		receiver := assignment[p.UserID]
		_, err := s.participants.WriteParticipant(ctx, p.ID, storeapi.ParticipantPatch{GifteeID: &receiver})
		return err
	})
	res.FailureCount = persistFailed
	res.SuccessCount = len(approved) - persistFailed
	s.metrics.Writes("persist", res.SuccessCount, persistFailed)

	outcome := auditlog.DrawOutcome{
		RunID:         runID,
		Total:         res.Total,
		SuccessCount:  res.SuccessCount,
		FailureCount:  res.FailureCount,
		ResetFailures: res.ResetFailures,
	}
	if persistFailed > 0 {
		log.Warn("draw persisted partially",
			zap.Int("saved", res.SuccessCount),
			zap.Int("failed", persistFailed),
			zap.Error(persistErr))
		s.metrics.Run(metrics.OutcomePartial)
		s.audit.DrawPartial(ctx, groupID, outcome)
		return res, &PartialFailureError{
			GroupID:       groupID,
			Total:         res.Total,
			Failed:        persistFailed,
			ResetFailures: resetFailed,
			Err:           persistErr,
		}
	}

	// Phase 4: finalize. Participant moderation does not bump the group
	// version, so the approved set is compared against the snapshot first.
	if err := s.checkRoster(ctx, groupID, approved); err != nil {
		log.Error("finalize group failed", zap.Error(err))
		if errors.Is(err, storeapi.ErrVersionConflict) {
			s.metrics.Run(metrics.OutcomeConflict)
		} else {
			s.metrics.Run(metrics.OutcomeFailed)
		}
		s.audit.DrawFailed(ctx, groupID, runID, "finalize: "+err.Error())
		return res, fmt.Errorf("finalize group %s: %w", groupID, err)
	}

	done := true
	drawn := models.GroupDrawn
	version := group.Version
	if _, err := s.groups.WriteGroup(ctx, groupID, storeapi.GroupPatch{
		IsDrawDone: &done,
		Status:     &drawn,
		IfVersion:  &version,
	}); err != nil {
		log.Error("finalize group failed", zap.Error(err))
		outcomeLabel := metrics.OutcomeFailed
		if errors.Is(err, storeapi.ErrVersionConflict) {
			outcomeLabel = metrics.OutcomeConflict
		}
		s.metrics.Run(outcomeLabel)
		s.audit.DrawFailed(ctx, groupID, runID, "finalize: "+err.Error())
		return res, fmt.Errorf("finalize group %s: %w", groupID, err)
	}
	res.Finalized = true

	log.Info("draw completed", zap.Int("participants", res.Total))
	s.metrics.Run(metrics.OutcomeCompleted)
	s.audit.DrawCompleted(ctx, groupID, outcome)
	s.publish(ctx, log, res)
	return res, nil
}

// load reads the group and its approved participants and checks the
// preconditions that need no engine.
func (s *Service) load(ctx context.Context, groupID string) (models.Group, []models.Participant, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if errors.Is(err, storeapi.ErrNotFound) {
		return models.Group{}, nil, ErrGroupNotFound
	}
	if err != nil {
		return models.Group{}, nil, fmt.Errorf("load group %s: %w", groupID, err)
	}
	if group.IsDrawDone || group.Status == models.GroupDrawn {
		return models.Group{}, nil, &draw.ValidationError{Err: ErrAlreadyDrawn}
	}

	approved, err := s.participants.ListParticipants(ctx, storeapi.ParticipantFilter{
		GroupID: groupID,
		Status:  models.ParticipantApproved,
	})
	if err != nil {
		return models.Group{}, nil, fmt.Errorf("list approved participants: %w", err)
	}
	if len(approved) < 2 {
		return models.Group{}, nil, &draw.ValidationError{Err: ErrInsufficientParticipants}
	}
	return group, approved, nil
}

// checkRoster fails with storeapi.ErrVersionConflict when the approved
// participants of groupID no longer match snapshot.
func (s *Service) checkRoster(ctx context.Context, groupID string, snapshot []models.Participant) error {
	current, err := s.participants.ListParticipants(ctx, storeapi.ParticipantFilter{
		GroupID: groupID,
		Status:  models.ParticipantApproved,
	})
	if err != nil {
		return fmt.Errorf("recheck approved participants: %w", err)
	}
	want := make(map[string]string, len(snapshot))
	for _, p := range snapshot {
		want[p.ID] = p.UserID
	}
	changed := len(current) != len(snapshot)
	for _, p := range current {
		if uid, ok := want[p.ID]; !ok || uid != p.UserID {
			changed = true
		}
	}
	if changed {
		return fmt.Errorf("%w: %w", storeapi.ErrVersionConflict, ErrRosterChanged)
	}
	return nil
}

// fanOut runs write for every participant with bounded concurrency, waits
// for all of them and returns the failure count with the combined errors.
// Once ctx is done no further writes are issued; the skipped ones count as
// failures.
func (s *Service) fanOut(ctx context.Context, ps []models.Participant, write func(context.Context, models.Participant) error) (int, error) {
	var (
		mu     sync.Mutex
		failed int
		errs   error
	)
	fail := func(p models.Participant, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed++
		errs = multierr.Append(errs, fmt.Errorf("participant %s: %w", p.ID, err))
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, p := range ps {
		if err := ctx.Err(); err != nil {
			fail(p, err)
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				fail(p, err)
				return nil
			}
			if err := write(ctx, p); err != nil {
				fail(p, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return failed, errs
}

func (s *Service) publish(ctx context.Context, log *zap.Logger, res Result) {
	if s.bus == nil {
		return
	}
	ev := bus.DrawCompleted{
		RunID:        res.RunID,
		GroupID:      res.GroupID,
		Participants: res.Total,
		At:           s.now().UTC().Format(time.RFC3339),
	}
	if err := s.bus.Publish(ctx, bus.SubjectDrawCompleted, ev); err != nil {
		log.Warn("publish draw event failed", zap.Error(err))
	}
}
