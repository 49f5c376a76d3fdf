// Package camera acquires still images for barcode decoding, either from a
// camera stream or from a user-selected file.
package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"

	"github.com/mrops-br/inventory-scanner/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "golang.org/x/image/webp"
)

// ErrStreamClosed is returned when capturing from a released stream
var ErrStreamClosed = fmt.Errorf("%w: stream closed", domain.ErrDevice)

// Constraints are the preferred stream settings. They are ideal values; a
// device may deliver a different resolution.
type Constraints struct {
	FacingMode string
	Width      int
	Height     int
}

// DefaultConstraints asks for the rear camera at 1280x720
func DefaultConstraints() Constraints {
	return Constraints{FacingMode: "environment", Width: 1280, Height: 720}
}

// Stream is an open camera handle
type Stream interface {
	ID() string
	Frame(ctx context.Context) ([]byte, error)
	Close() error
}

// Device opens camera streams
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Source is the image source used by the scan workflow
type Source struct {
	device Device
	tracer trace.Tracer
	logger *slog.Logger
}

func NewSource(device Device, tracer trace.Tracer, logger *slog.Logger) *Source {
	return &Source{device: device, tracer: tracer, logger: logger}
}

// OpenStream requests a camera stream. Failures always wrap domain.ErrDevice.
func (s *Source) OpenStream(ctx context.Context, c Constraints) (Stream, error) {
	ctx, span := s.tracer.Start(ctx, "ImageSource.OpenStream")
	defer span.End()

	span.SetAttributes(
		attribute.String("camera.facing_mode", c.FacingMode),
		attribute.Int("camera.ideal_width", c.Width),
		attribute.Int("camera.ideal_height", c.Height),
	)

	stream, err := s.device.Open(ctx, c)
	if err != nil {
		if !errors.Is(err, domain.ErrDevice) {
			err = fmt.Errorf("%w: %v", domain.ErrDevice, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to open camera stream")
		return nil, err
	}

	s.logger.InfoContext(ctx, "Camera stream opened", slog.String("stream_id", stream.ID()))
	span.SetStatus(codes.Ok, "Camera stream opened")
	return stream, nil
}

// CaptureFrame snapshots the current frame of the stream into a still image
func (s *Source) CaptureFrame(ctx context.Context, stream Stream) (domain.ImageBlob, error) {
	ctx, span := s.tracer.Start(ctx, "ImageSource.CaptureFrame")
	defer span.End()

	if stream == nil {
		return domain.ImageBlob{}, ErrStreamClosed
	}
	span.SetAttributes(attribute.String("camera.stream_id", stream.ID()))

	data, err := stream.Frame(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrDevice) {
			err = fmt.Errorf("%w: %v", domain.ErrDevice, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to read frame")
		return domain.ImageBlob{}, err
	}

	cfg, format, err := inspect(data)
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		span.SetStatus(codes.Error, "Stream has not produced a frame")
		return domain.ImageBlob{}, domain.ErrNoFrame
	}

	span.SetAttributes(
		attribute.Int("image.width", cfg.Width),
		attribute.Int("image.height", cfg.Height),
	)
	span.SetStatus(codes.Ok, "Frame captured")
	return domain.ImageBlob{
		Data:        data,
		ContentType: "image/" + format,
		Name:        "captured-barcode." + format,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}

// AcceptUpload validates a user-selected file and turns it into an image blob
func (s *Source) AcceptUpload(upload *domain.Upload) (domain.ImageBlob, error) {
	if upload == nil || len(upload.Data) == 0 {
		return domain.ImageBlob{}, domain.ErrNoFileSelected
	}

	cfg, format, err := inspect(upload.Data)
	if err != nil {
		return domain.ImageBlob{}, fmt.Errorf("%w: %v", domain.ErrUnsupportedImage, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return domain.ImageBlob{}, domain.ErrUnsupportedImage
	}

	contentType := upload.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(upload.Data)
	}
	name := upload.Name
	if name == "" {
		name = "upload." + format
	}

	return domain.ImageBlob{
		Data:        upload.Data,
		ContentType: contentType,
		Name:        name,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}

func inspect(data []byte) (image.Config, string, error) {
	if len(data) == 0 {
		return image.Config{}, "", errors.New("empty image")
	}
	return image.DecodeConfig(bytes.NewReader(data))
}
