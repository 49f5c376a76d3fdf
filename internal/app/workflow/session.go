// Package workflow sequences a barcode scan: acquire an image, decode it,
// resolve the symbol to a product and, on confirmation, commit it to the
// inventory. A Controller owns exactly one ScanSession and decides which
// transitions are legal; UI layers drive it through its command methods.
package workflow

import (
	"errors"
	"time"

	"github.com/mrops-br/inventory-scanner/internal/domain"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/camera"
)

// Phase is the user-visible state of the scanner
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseResult  Phase = "result"
	PhaseError   Phase = "error"
)

// Contract violations. These are returned to the caller and never change the phase.
var (
	ErrAttemptInFlight = errors.New("a scan attempt is already in progress")
	ErrNoActiveStream  = errors.New("camera has not been started")
	ErrNothingToCommit = errors.New("scan a valid barcode before adding to inventory")
	ErrNoResult        = errors.New("no scan result to edit")
	ErrSessionClosed   = errors.New("scan session closed")
)

// User-facing messages
const (
	MessageScanFailed   = "Scan failed. Please try again."
	MessageDeviceFailed = "Failed to access camera. Please ensure camera permissions are granted."
	MessageCommitFailed = "Failed to add item to inventory. Please try again."
	NoticeCommitted     = "Item added to inventory successfully!"
)

// ScanSession is the mutable state of one scanner view
type ScanSession struct {
	ID      string
	Stream  camera.Stream
	Symbol  domain.Symbol
	Record  *domain.ProductRecord
	Source  domain.RecordSource
	Phase   Phase
	Failure error
	Notice  string
}

func newScanSession(id string, stream camera.Stream) *ScanSession {
	return &ScanSession{ID: id, Stream: stream, Phase: PhaseIdle}
}

// clearScan drops the result of the previous attempt, keeping the stream
func (s *ScanSession) clearScan() {
	s.Symbol = ""
	s.Record = nil
	s.Source = ""
	s.Failure = nil
	s.Notice = ""
}

// State is an immutable snapshot of a session for callers
type State struct {
	SessionID    string
	Phase        Phase
	Symbol       domain.Symbol
	Record       *domain.ProductRecord
	Source       domain.RecordSource
	StreamActive bool
	ErrorKind    domain.Kind
	Error        string
	Message      string
	Notice       string
	Closed       bool
	UpdatedAt    time.Time
}

func (s *ScanSession) snapshot(closed bool, updatedAt time.Time) State {
	st := State{
		SessionID:    s.ID,
		Phase:        s.Phase,
		Symbol:       s.Symbol,
		Record:       s.Record.Clone(),
		Source:       s.Source,
		StreamActive: s.Stream != nil,
		Notice:       s.Notice,
		Closed:       closed,
		UpdatedAt:    updatedAt,
	}
	if s.Phase == PhaseError && s.Failure != nil {
		st.ErrorKind = domain.Classify(s.Failure)
		st.Error = s.Failure.Error()
		st.Message = messageFor(s.Failure)
	}
	return st
}

func messageFor(err error) string {
	switch domain.Classify(err) {
	case domain.KindDevice:
		return MessageDeviceFailed
	case domain.KindWrite:
		return MessageCommitFailed
	default:
		return MessageScanFailed
	}
}
