package decoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/mrops-br/inventory-scanner/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "golang.org/x/image/webp"
)

// Retail symbologies accepted from the one-dimensional reader
var acceptedFormats = map[gozxing.BarcodeFormat]bool{
	gozxing.BarcodeFormat_EAN_13:   true,
	gozxing.BarcodeFormat_EAN_8:    true,
	gozxing.BarcodeFormat_UPC_A:    true,
	gozxing.BarcodeFormat_UPC_E:    true,
	gozxing.BarcodeFormat_CODE_128: true,
	gozxing.BarcodeFormat_CODE_39:  true,
}

// ZXingDecoder decodes barcodes in-process with gozxing
type ZXingDecoder struct {
	tracer trace.Tracer
	logger *slog.Logger
}

func NewZXingDecoder(tracer trace.Tracer, logger *slog.Logger) *ZXingDecoder {
	return &ZXingDecoder{tracer: tracer, logger: logger}
}

// Decode finds the first supported linear barcode in the image
func (d *ZXingDecoder) Decode(ctx context.Context, blob domain.ImageBlob) (domain.Detection, error) {
	ctx, span := d.tracer.Start(ctx, "ZXingDecoder.Decode")
	defer span.End()

	span.SetAttributes(attribute.Int("image.bytes", len(blob.Data)))

	img, _, err := image.Decode(bytes.NewReader(blob.Data))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unsupported image")
		return domain.Detection{}, fmt.Errorf("%w: %v", domain.ErrUnsupportedImage, err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to binarize image")
		return domain.Detection{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	// Readers keep per-decode state, so each call gets its own
	reader := oned.NewMultiFormatOneDReader(hints)
	result, err := reader.Decode(bmp, hints)
	if err != nil {
		d.logger.DebugContext(ctx, "No barcode found in image", slog.String("reason", err.Error()))
		span.SetStatus(codes.Error, "No barcode detected")
		return domain.Detection{}, domain.ErrNoSymbol
	}

	format := result.GetBarcodeFormat()
	if !acceptedFormats[format] || result.GetText() == "" {
		span.SetStatus(codes.Error, "Unsupported symbology")
		return domain.Detection{}, domain.ErrNoSymbol
	}

	detection := domain.Detection{
		Symbol: domain.Symbol(result.GetText()),
		Format: format.String(),
	}
	span.SetAttributes(
		attribute.String("barcode.symbol", detection.Symbol.String()),
		attribute.String("barcode.format", detection.Format),
	)
	span.SetStatus(codes.Ok, "Barcode decoded")
	return detection, nil
}
