// Package decoder adapts barcode recognition capabilities, either the
// in-process gozxing reader or a remote scan endpoint, to a single contract.
package decoder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mrops-br/inventory-scanner/internal/domain"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/config"
	"go.opentelemetry.io/otel/trace"
)

const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Decoder turns a still image into a barcode symbol.
// Implementations return domain.ErrNoSymbol when the image holds no barcode
// and domain.ErrDecode when the capability itself failed. They never retry.
type Decoder interface {
	Decode(ctx context.Context, blob domain.ImageBlob) (domain.Detection, error)
}

// New builds the decoder selected in configuration
func New(cfg *config.DecoderConfig, tracer trace.Tracer, logger *slog.Logger) (Decoder, error) {
	switch cfg.Mode {
	case "", ModeLocal:
		return NewZXingDecoder(tracer, logger), nil
	case ModeRemote:
		if cfg.URL == "" {
			return nil, fmt.Errorf("%w: DECODER_URL is required in remote mode", domain.ErrDecode)
		}
		return NewRemoteDecoder(cfg.URL, cfg.Timeout, tracer, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown decoder mode %q", domain.ErrDecode, cfg.Mode)
	}
}
