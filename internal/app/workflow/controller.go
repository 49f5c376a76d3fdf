package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mrops-br/inventory-scanner/internal/domain"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/camera"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ImageSource acquires still images
type ImageSource interface {
	OpenStream(ctx context.Context, c camera.Constraints) (camera.Stream, error)
	CaptureFrame(ctx context.Context, stream camera.Stream) (domain.ImageBlob, error)
	AcceptUpload(upload *domain.Upload) (domain.ImageBlob, error)
}

// Decoder turns an image into a barcode symbol
type Decoder interface {
	Decode(ctx context.Context, blob domain.ImageBlob) (domain.Detection, error)
}

// Resolver resolves a symbol to product metadata
type Resolver interface {
	Resolve(ctx context.Context, symbol domain.Symbol) (*domain.Resolution, error)
}

// Committer persists a confirmed record
type Committer interface {
	Commit(ctx context.Context, record *domain.ProductRecord) error
}

// Deps are the already-initialized collaborators of a Controller
type Deps struct {
	Source      ImageSource
	Decoder     Decoder
	Resolver    Resolver
	Committer   Committer
	View        View
	Constraints camera.Constraints
	Tracer      trace.Tracer
	Logger      *slog.Logger
	// Attempts counts finished scan attempts; optional
	Attempts metric.Int64Counter
	Now      func() time.Time
}

const (
	triggerCapture = "capture"
	triggerUpload  = "upload"
	triggerSymbol  = "symbol"
)

// Controller drives one ScanSession through Idle, Loading, Result and Error.
// It allows a single attempt in flight; Restart, StartScan and Close abandon
// a running attempt by bumping the generation so its result is dropped.
type Controller struct {
	id   string
	deps Deps

	mu          sync.Mutex
	session     *ScanSession
	generation  uint64
	streamEpoch uint64
	closed      bool
	updatedAt   time.Time
}

// NewController creates a controller for the scanner view id. The session
// starts Idle without a stream; call StartScan to open the camera.
func NewController(id string, deps Deps) *Controller {
	if deps.View == nil {
		deps.View = nopView{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Constraints == (camera.Constraints{}) {
		deps.Constraints = camera.DefaultConstraints()
	}
	c := &Controller{
		id:        id,
		deps:      deps,
		session:   newScanSession(id, nil),
		updatedAt: deps.Now(),
	}
	render(c.deps.View, c.session, false)
	return c
}

// ID returns the scanner view id
func (c *Controller) ID() string {
	return c.id
}

// State returns a snapshot of the session
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// UpdatedAt reports the last time a command touched the session
func (c *Controller) UpdatedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}

// StartScan (re)opens the scanner view: any running attempt is abandoned, the
// previous stream is released and a new one requested. A device failure
// leaves the session in the Error phase with an actionable message.
// The device is opened without holding the lock; a stream that arrives after
// Close or a newer StartScan is released instead of attached.
func (c *Controller) StartScan(ctx context.Context) (State, error) {
	ctx, span := c.deps.Tracer.Start(ctx, "ScanWorkflow.StartScan")
	defer span.End()

	c.mu.Lock()
	if c.closed {
		defer c.mu.Unlock()
		return c.stateLocked(), ErrSessionClosed
	}
	c.generation++
	c.streamEpoch++
	epoch := c.streamEpoch
	c.releaseStreamLocked(ctx)
	c.session = newScanSession(c.id, nil)
	c.touchLocked()
	render(c.deps.View, c.session, false)
	c.mu.Unlock()

	stream, err := c.deps.Source.OpenStream(ctx, c.deps.Constraints)

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.streamEpoch || c.closed {
		if stream != nil {
			if cerr := stream.Close(); cerr != nil {
				c.deps.Logger.WarnContext(ctx, "Failed to release late camera stream",
					slog.String("stream_id", stream.ID()),
					slog.String("error", cerr.Error()),
				)
			}
		}
		c.deps.Logger.InfoContext(ctx, "Dropping camera stream opened for a superseded scanner")
		return c.stateLocked(), nil
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to open camera")
		c.deps.Logger.ErrorContext(ctx, "Failed to access camera",
			slog.String("error", err.Error()),
		)
		// an upload started meanwhile keeps its own phase
		if c.session.Phase == PhaseIdle {
			c.session.Phase = PhaseError
			c.session.Failure = err
			c.touchLocked()
			render(c.deps.View, c.session, false)
		}
		return c.stateLocked(), nil
	}

	c.session.Stream = stream
	c.touchLocked()
	render(c.deps.View, c.session, false)

	c.deps.Logger.InfoContext(ctx, "Scanner started",
		slog.String("stream_id", stream.ID()),
	)
	span.SetStatus(codes.Ok, "Scanner started")
	return c.stateLocked(), nil
}

// Capture snapshots the camera and runs a scan attempt on the frame
func (c *Controller) Capture(ctx context.Context) (State, error) {
	c.mu.Lock()
	if err := c.checkReadyLocked(); err != nil {
		defer c.mu.Unlock()
		return c.stateLocked(), err
	}
	stream := c.session.Stream
	if stream == nil {
		defer c.mu.Unlock()
		return c.stateLocked(), ErrNoActiveStream
	}
	gen := c.beginAttemptLocked()
	c.mu.Unlock()

	return c.runAttempt(ctx, gen, triggerCapture, func(ctx context.Context) (domain.Symbol, error) {
		blob, err := c.deps.Source.CaptureFrame(ctx, stream)
		if err != nil {
			return "", err
		}
		return c.decode(ctx, blob)
	})
}

// Upload runs a scan attempt on a user-selected file
func (c *Controller) Upload(ctx context.Context, upload *domain.Upload) (State, error) {
	c.mu.Lock()
	if err := c.checkReadyLocked(); err != nil {
		defer c.mu.Unlock()
		return c.stateLocked(), err
	}
	gen := c.beginAttemptLocked()
	c.mu.Unlock()

	return c.runAttempt(ctx, gen, triggerUpload, func(ctx context.Context) (domain.Symbol, error) {
		blob, err := c.deps.Source.AcceptUpload(upload)
		if err != nil {
			return "", err
		}
		return c.decode(ctx, blob)
	})
}

// SymbolDetected runs a scan attempt for a symbol found outside the decoder,
// e.g. by a client-side barcode reader
func (c *Controller) SymbolDetected(ctx context.Context, symbol domain.Symbol) (State, error) {
	c.mu.Lock()
	if err := c.checkReadyLocked(); err != nil {
		defer c.mu.Unlock()
		return c.stateLocked(), err
	}
	gen := c.beginAttemptLocked()
	c.mu.Unlock()

	return c.runAttempt(ctx, gen, triggerSymbol, func(context.Context) (domain.Symbol, error) {
		if symbol == "" {
			return "", domain.ErrNoSymbol
		}
		return symbol, nil
	})
}

// EditRecord applies user edits to the resolved record before commit
func (c *Controller) EditRecord(ctx context.Context, edit domain.RecordEdit) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkReadyLocked(); err != nil {
		return c.stateLocked(), err
	}
	if c.session.Record == nil || c.session.Symbol == "" {
		return c.stateLocked(), ErrNoResult
	}

	c.session.Record = edit.Apply(c.session.Record)
	c.session.Record.Symbol = c.session.Symbol
	c.touchLocked()
	render(c.deps.View, c.session, false)

	c.deps.Logger.DebugContext(ctx, "Scan result edited",
		slog.String("symbol", c.session.Symbol.String()),
	)
	return c.stateLocked(), nil
}

// ConfirmCommit writes the current record to the inventory. On success the
// session returns to Idle with the stream left open for the next scan.
func (c *Controller) ConfirmCommit(ctx context.Context) (State, error) {
	ctx, span := c.deps.Tracer.Start(ctx, "ScanWorkflow.ConfirmCommit")
	defer span.End()

	c.mu.Lock()
	if err := c.checkReadyLocked(); err != nil {
		defer c.mu.Unlock()
		return c.stateLocked(), err
	}
	if c.session.Symbol == "" || c.session.Record == nil {
		defer c.mu.Unlock()
		return c.stateLocked(), ErrNothingToCommit
	}
	record := c.session.Record.Clone()
	record.Symbol = c.session.Symbol
	gen := c.generation
	c.session.Phase = PhaseLoading
	c.session.Notice = ""
	c.touchLocked()
	render(c.deps.View, c.session, false)
	c.mu.Unlock()

	span.SetAttributes(attribute.String("product.symbol", record.Symbol.String()))
	err := c.deps.Committer.Commit(ctx, record)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.closed {
		c.deps.Logger.InfoContext(ctx, "Commit finished after session was reset",
			slog.String("symbol", record.Symbol.String()),
		)
		return c.stateLocked(), nil
	}

	c.touchLocked()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Commit failed")
		c.deps.Logger.ErrorContext(ctx, "Failed to add item to inventory",
			slog.String("symbol", record.Symbol.String()),
			slog.String("error", err.Error()),
		)
		c.session.Phase = PhaseError
		c.session.Failure = err
		render(c.deps.View, c.session, false)
		return c.stateLocked(), nil
	}

	c.session.clearScan()
	c.session.Phase = PhaseIdle
	c.session.Notice = NoticeCommitted
	render(c.deps.View, c.session, false)

	span.SetStatus(codes.Ok, "Committed")
	return c.stateLocked(), nil
}

// Restart discards the current result or error and returns to Idle.
// An attempt still in flight is abandoned.
func (c *Controller) Restart(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.stateLocked(), ErrSessionClosed
	}

	c.generation++
	c.session.clearScan()
	c.session.Phase = PhaseIdle
	c.touchLocked()
	render(c.deps.View, c.session, false)

	c.deps.Logger.DebugContext(ctx, "Scanner restarted")
	return c.stateLocked(), nil
}

// Close tears the session down and releases the stream. It is safe to call
// more than once; the stream is released exactly once.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.generation++
	c.streamEpoch++
	err := c.releaseStreamLocked(ctx)
	c.session.clearScan()
	c.session.Phase = PhaseIdle
	c.touchLocked()
	render(c.deps.View, c.session, true)

	c.deps.Logger.InfoContext(ctx, "Scanner closed")
	return err
}

func (c *Controller) decode(ctx context.Context, blob domain.ImageBlob) (domain.Symbol, error) {
	det, err := c.deps.Decoder.Decode(ctx, blob)
	if err != nil {
		return "", err
	}
	if det.Symbol == "" {
		return "", domain.ErrNoSymbol
	}
	return det.Symbol, nil
}

// runAttempt runs acquire, then lookup, outside the lock and applies the
// outcome only if no newer command reset the session meanwhile.
func (c *Controller) runAttempt(ctx context.Context, gen uint64, trigger string, acquire func(context.Context) (domain.Symbol, error)) (State, error) {
	ctx, span := c.deps.Tracer.Start(ctx, "ScanWorkflow.Attempt")
	defer span.End()

	span.SetAttributes(attribute.String("scan.trigger", trigger))

	symbol, err := acquire(ctx)
	var res *domain.Resolution
	if err == nil {
		span.SetAttributes(attribute.String("barcode.symbol", symbol.String()))
		res, err = c.deps.Resolver.Resolve(ctx, symbol)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.closed {
		span.SetAttributes(attribute.Bool("scan.discarded", true))
		c.countAttempt(ctx, trigger, "discarded", "")
		c.deps.Logger.InfoContext(ctx, "Discarding result of abandoned scan attempt",
			slog.String("trigger", trigger),
		)
		return c.stateLocked(), nil
	}

	c.touchLocked()
	c.session.Symbol = symbol
	if err != nil {
		kind := domain.Classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Scan failed")
		c.deps.Logger.WarnContext(ctx, "Scan attempt failed",
			slog.String("trigger", trigger),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		c.session.Phase = PhaseError
		c.session.Failure = err
		c.countAttempt(ctx, trigger, "error", kind)
		render(c.deps.View, c.session, false)
		return c.stateLocked(), nil
	}

	c.session.Record = res.Record.Clone()
	c.session.Record.Symbol = symbol
	c.session.Source = res.Source
	c.session.Phase = PhaseResult
	c.countAttempt(ctx, trigger, "result", "")
	render(c.deps.View, c.session, false)

	c.deps.Logger.InfoContext(ctx, "Scan attempt resolved",
		slog.String("trigger", trigger),
		slog.String("symbol", symbol.String()),
		slog.String("source", string(res.Source)),
	)
	span.SetStatus(codes.Ok, "Scan resolved")
	return c.stateLocked(), nil
}

func (c *Controller) checkReadyLocked() error {
	if c.closed {
		return ErrSessionClosed
	}
	if c.session.Phase == PhaseLoading {
		return ErrAttemptInFlight
	}
	return nil
}

// beginAttemptLocked moves the session to Loading and returns the attempt's generation
func (c *Controller) beginAttemptLocked() uint64 {
	c.generation++
	c.session.clearScan()
	c.session.Phase = PhaseLoading
	c.touchLocked()
	render(c.deps.View, c.session, false)
	return c.generation
}

func (c *Controller) releaseStreamLocked(ctx context.Context) error {
	stream := c.session.Stream
	if stream == nil {
		return nil
	}
	c.session.Stream = nil
	if err := stream.Close(); err != nil {
		c.deps.Logger.WarnContext(ctx, "Failed to release camera stream",
			slog.String("stream_id", stream.ID()),
			slog.String("error", err.Error()),
		)
		return err
	}
	c.deps.Logger.DebugContext(ctx, "Camera stream released",
		slog.String("stream_id", stream.ID()),
	)
	return nil
}

func (c *Controller) countAttempt(ctx context.Context, trigger, outcome string, kind domain.Kind) {
	if c.deps.Attempts == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("trigger", trigger),
		attribute.String("outcome", outcome),
	}
	if kind != "" {
		attrs = append(attrs, attribute.String("error.kind", string(kind)))
	}
	c.deps.Attempts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (c *Controller) touchLocked() {
	c.updatedAt = c.deps.Now()
}

func (c *Controller) stateLocked() State {
	return c.session.snapshot(c.closed, c.updatedAt)
}

// IsContractViolation reports whether err is a misuse of the controller
// rather than a scan failure
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrAttemptInFlight) ||
		errors.Is(err, ErrNoActiveStream) ||
		errors.Is(err, ErrNothingToCommit) ||
		errors.Is(err, ErrNoResult) ||
		errors.Is(err, ErrSessionClosed)
}
