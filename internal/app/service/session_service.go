package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mrops-br/inventory-scanner/internal/app/dto"
	"github.com/mrops-br/inventory-scanner/internal/app/workflow"
	"github.com/mrops-br/inventory-scanner/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ErrSessionNotFound is returned for unknown or already closed session ids
var ErrSessionNotFound = errors.New("scan session not found")

// ScanPipeline groups the collaborators every scan session shares
type ScanPipeline struct {
	Source    workflow.ImageSource
	Decoder   workflow.Decoder
	Resolver  workflow.Resolver
	Committer workflow.Committer
}

type scannerView struct {
	ctrl    *workflow.Controller
	surface *workflow.Surface
}

func (v *scannerView) response() *dto.SessionResponse {
	return dto.ToSessionResponse(v.ctrl.State(), v.surface.Snapshot())
}

// SessionService keeps one workflow controller per open scanner view
type SessionService struct {
	pipeline    ScanPipeline
	idleTimeout time.Duration
	now         func() time.Time

	tracer   trace.Tracer
	logger   *slog.Logger
	attempts metric.Int64Counter
	active   metric.Int64UpDownCounter

	mu       sync.RWMutex
	sessions map[string]*scannerView
}

// SessionOption configures a SessionService
type SessionOption func(*SessionService)

// WithSessionClock overrides the clock used for idle tracking
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionService) {
		s.now = now
	}
}

// NewSessionService creates a new session registry
func NewSessionService(
	pipeline ScanPipeline,
	idleTimeout time.Duration,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
	opts ...SessionOption,
) *SessionService {
	attempts, _ := meter.Int64Counter(
		"scan.attempts",
		metric.WithDescription("Scan attempts by trigger and outcome"),
	)

	active, _ := meter.Int64UpDownCounter(
		"scan.sessions.active",
		metric.WithDescription("Number of open scanner sessions"),
	)

	s := &SessionService{
		pipeline:    pipeline,
		idleTimeout: idleTimeout,
		now:         time.Now,
		tracer:      tracer,
		logger:      logger,
		attempts:    attempts,
		active:      active,
		sessions:    make(map[string]*scannerView),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a scanner view and starts its camera. A camera failure is
// reported in the returned state, not as an error.
func (s *SessionService) Open(ctx context.Context) (*dto.SessionResponse, error) {
	id := uuid.New().String()

	surface := workflow.NewSurface()
	view := &scannerView{
		surface: surface,
		ctrl: workflow.NewController(id, workflow.Deps{
			Source:    s.pipeline.Source,
			Decoder:   s.pipeline.Decoder,
			Resolver:  s.pipeline.Resolver,
			Committer: s.pipeline.Committer,
			View:      surface,
			Tracer:    s.tracer,
			Logger:    s.logger.With(slog.String("session_id", id)),
			Attempts:  s.attempts,
			Now:       s.now,
		}),
	}

	s.mu.Lock()
	s.sessions[id] = view
	s.mu.Unlock()
	s.active.Add(ctx, 1)

	s.logger.InfoContext(ctx, "Scan session opened", slog.String("session_id", id))

	if _, err := view.ctrl.StartScan(ctx); err != nil {
		return nil, err
	}
	return view.response(), nil
}

// Get returns the current state of a session
func (s *SessionService) Get(_ context.Context, id string) (*dto.SessionResponse, error) {
	view, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return view.response(), nil
}

// Start reopens the camera of a session
func (s *SessionService) Start(ctx context.Context, id string) (*dto.SessionResponse, error) {
	return s.run(ctx, id, func(c *workflow.Controller) (workflow.State, error) {
		return c.StartScan(ctx)
	})
}

// Capture scans the current camera frame
func (s *SessionService) Capture(ctx context.Context, id string) (*dto.SessionResponse, error) {
	return s.run(ctx, id, func(c *workflow.Controller) (workflow.State, error) {
		return c.Capture(ctx)
	})
}

// Upload scans a user-selected image
func (s *SessionService) Upload(ctx context.Context, id string, upload *domain.Upload) (*dto.SessionResponse, error) {
	return s.run(ctx, id, func(c *workflow.Controller) (workflow.State, error) {
		return c.Upload(ctx, upload)
	})
}

// Symbol resolves a barcode detected by the client
func (s *SessionService) Symbol(ctx context.Context, id string, raw string) (*dto.SessionResponse, error) {
	symbol, err := domain.ParseSymbol(raw)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, id, func(c *workflow.Controller) (workflow.State, error) {
		return c.SymbolDetected(ctx, symbol)
	})
}

// Edit changes fields of the resolved record
func (s *SessionService) Edit(ctx context.Context, id string, req *dto.EditRecordRequest) (*dto.SessionResponse, error) {
	return s.run(ctx, id, func(c *workflow.Controller) (workflow.State, error) {
		return c.EditRecord(ctx, req.ToEdit())
	})
}

// Commit adds the resolved record to the inventory
func (s *SessionService) Commit(ctx context.Context, id string) (*dto.SessionResponse, error) {
	return s.run(ctx, id, func(c *workflow.Controller) (workflow.State, error) {
		return c.ConfirmCommit(ctx)
	})
}

// Restart discards the current result
func (s *SessionService) Restart(ctx context.Context, id string) (*dto.SessionResponse, error) {
	return s.run(ctx, id, func(c *workflow.Controller) (workflow.State, error) {
		return c.Restart(ctx)
	})
}

// Close tears a session down and forgets it
func (s *SessionService) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	view, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	return s.closeView(ctx, id, view, "closed")
}

// Sweep closes sessions idle since before now minus the idle timeout and
// returns how many were closed
func (s *SessionService) Sweep(ctx context.Context, now time.Time) int {
	if s.idleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-s.idleTimeout)

	s.mu.RLock()
	views := make(map[string]*scannerView, len(s.sessions))
	for id, view := range s.sessions {
		views[id] = view
	}
	s.mu.RUnlock()

	// controllers are read outside the registry lock
	stale := make(map[string]*scannerView)
	for id, view := range views {
		if view.ctrl.UpdatedAt().Before(cutoff) {
			stale[id] = view
		}
	}

	s.mu.Lock()
	expired := make(map[string]*scannerView, len(stale))
	for id, view := range stale {
		if s.sessions[id] == view {
			expired[id] = view
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for id, view := range expired {
		if err := s.closeView(ctx, id, view, "expired"); err != nil {
			s.logger.WarnContext(ctx, "Failed to close expired session",
				slog.String("session_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return len(expired)
}

// RunJanitor sweeps idle sessions every interval until ctx is done
func (s *SessionService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(ctx, s.now()); n > 0 {
				s.logger.InfoContext(ctx, "Closed idle scan sessions", slog.Int("count", n))
			}
		}
	}
}

// CloseAll releases every open session, used on shutdown
func (s *SessionService) CloseAll(ctx context.Context) error {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*scannerView)
	s.mu.Unlock()

	var errs []error
	for id, view := range all {
		if err := s.closeView(ctx, id, view, "shutdown"); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Count returns the number of open sessions
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionService) lookup(id string) (*scannerView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return view, nil
}

func (s *SessionService) run(ctx context.Context, id string, cmd func(*workflow.Controller) (workflow.State, error)) (*dto.SessionResponse, error) {
	view, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("scan.session_id", id))

	if _, err := cmd(view.ctrl); err != nil {
		s.logger.InfoContext(ctx, "Scan command rejected",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return view.response(), nil
}

func (s *SessionService) closeView(ctx context.Context, id string, view *scannerView, reason string) error {
	s.active.Add(ctx, -1)
	err := view.ctrl.Close(ctx)
	s.logger.InfoContext(ctx, "Scan session released",
		slog.String("session_id", id),
		slog.String("reason", reason),
	)
	return err
}
