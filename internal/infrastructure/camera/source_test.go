package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mrops-br/inventory-scanner/internal/domain"
	"go.opentelemetry.io/otel/trace/noop"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.SetGray(x, 0, color.Gray{Y: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func newTestSource(device Device) *Source {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSource(device, noop.NewTracerProvider().Tracer("test"), logger)
}

func TestAcceptUploadRequiresFile(t *testing.T) {
	src := newTestSource(Unavailable{})

	if _, err := src.AcceptUpload(nil); !errors.Is(err, domain.ErrNoFileSelected) {
		t.Fatalf("expected ErrNoFileSelected for nil upload, got %v", err)
	}
	if _, err := src.AcceptUpload(&domain.Upload{Name: "empty.jpg"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty upload, got %v", err)
	}
	if _, err := src.AcceptUpload(&domain.Upload{Data: []byte("not an image")}); !errors.Is(err, domain.ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
}

func TestAcceptUploadDetectsImage(t *testing.T) {
	src := newTestSource(Unavailable{})

	blob, err := src.AcceptUpload(&domain.Upload{Data: pngBytes(t, 40, 20)})
	if err != nil {
		t.Fatalf("AcceptUpload() error = %v", err)
	}
	if blob.Width != 40 || blob.Height != 20 {
		t.Fatalf("unexpected dimensions %dx%d", blob.Width, blob.Height)
	}
	if blob.ContentType != "image/png" || blob.Name != "upload.png" {
		t.Fatalf("unexpected blob metadata: %q %q", blob.ContentType, blob.Name)
	}
}

func TestUnavailableDeviceIsDeviceError(t *testing.T) {
	src := newTestSource(Unavailable{})

	_, err := src.OpenStream(context.Background(), DefaultConstraints())
	if domain.Classify(err) != domain.KindDevice {
		t.Fatalf("expected device error, got %v", err)
	}
}

func TestSnapshotDevicePermissionDenied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	src := newTestSource(NewSnapshotDevice(server.URL, time.Second))
	_, err := src.OpenStream(context.Background(), DefaultConstraints())
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestSnapshotCaptureFrame(t *testing.T) {
	frame := pngBytes(t, 64, 32)
	var empty atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if empty.Load() {
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(frame)
	}))
	defer server.Close()

	ctx := context.Background()
	src := newTestSource(NewSnapshotDevice(server.URL, time.Second))
	stream, err := src.OpenStream(ctx, DefaultConstraints())
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}

	blob, err := src.CaptureFrame(ctx, stream)
	if err != nil {
		t.Fatalf("CaptureFrame() error = %v", err)
	}
	if blob.Width != 64 || blob.Height != 32 {
		t.Fatalf("unexpected frame size %dx%d", blob.Width, blob.Height)
	}

	empty.Store(true)
	if _, err := src.CaptureFrame(ctx, stream); !errors.Is(err, domain.ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame for empty snapshot, got %v", err)
	}

	if err := stream.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := src.CaptureFrame(ctx, stream); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("expected ErrStreamClosed after close, got %v", err)
	}
}
