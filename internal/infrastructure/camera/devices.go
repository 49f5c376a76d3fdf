package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mrops-br/inventory-scanner/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxFrameBytes = 16 << 20

// Unavailable is the device used when no camera is configured
type Unavailable struct{}

func (Unavailable) Open(context.Context, Constraints) (Stream, error) {
	return nil, fmt.Errorf("%w: no camera configured", domain.ErrDevice)
}

// SnapshotDevice is a network camera exposing a still-image URL (IP webcams,
// phone camera bridges). Each frame is a GET of the snapshot URL.
type SnapshotDevice struct {
	url    string
	client *http.Client
}

func NewSnapshotDevice(url string, timeout time.Duration) *SnapshotDevice {
	return &SnapshotDevice{
		url: url,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Open probes the snapshot URL so permission and reachability problems
// surface when the scanner opens rather than on first capture.
func (d *SnapshotDevice) Open(ctx context.Context, _ Constraints) (Stream, error) {
	st := &snapshotStream{
		id:     uuid.NewString(),
		device: d,
	}
	if _, err := d.fetch(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

func (d *SnapshotDevice) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDevice, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDevice, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, domain.ErrPermissionDenied
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: snapshot status %d", domain.ErrDevice, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDevice, err)
	}
	return data, nil
}

type snapshotStream struct {
	id     string
	device *SnapshotDevice

	mu     sync.Mutex
	closed bool
}

func (s *snapshotStream) ID() string { return s.id }

func (s *snapshotStream) Frame(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrStreamClosed
	}
	return s.device.fetch(ctx)
}

func (s *snapshotStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
