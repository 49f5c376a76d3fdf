package decoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/mrops-br/inventory-scanner/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ScanResponse is the body of a barcode scan endpoint
type ScanResponse struct {
	Barcode string `json:"barcode,omitempty"`
	Type    string `json:"type,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RemoteDecoder posts images to a barcode scan endpoint
type RemoteDecoder struct {
	endpoint   string
	httpClient *http.Client
	tracer     trace.Tracer
	logger     *slog.Logger
}

func NewRemoteDecoder(endpoint string, timeout time.Duration, tracer trace.Tracer, logger *slog.Logger) *RemoteDecoder {
	return &RemoteDecoder{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tracer: tracer,
		logger: logger,
	}
}

// Decode uploads the image as multipart field "image"
func (d *RemoteDecoder) Decode(ctx context.Context, blob domain.ImageBlob) (domain.Detection, error) {
	ctx, span := d.tracer.Start(ctx, "RemoteDecoder.Decode")
	defer span.End()

	body, contentType, err := multipartImage(blob)
	if err != nil {
		return domain.Detection{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, body)
	if err != nil {
		return domain.Detection{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Decoder request failed")
		return domain.Detection{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusNotFound {
		span.SetStatus(codes.Error, "No barcode detected")
		return domain.Detection{}, domain.ErrNoSymbol
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: decoder returned status %d", domain.ErrDecode, resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Decoder error status")
		return domain.Detection{}, err
	}

	var payload ScanResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid decoder response")
		return domain.Detection{}, fmt.Errorf("%w: decode response: %v", domain.ErrDecode, err)
	}

	symbol := strings.TrimSpace(payload.Barcode)
	if symbol == "" {
		span.SetStatus(codes.Error, "No barcode detected")
		return domain.Detection{}, domain.ErrNoSymbol
	}

	d.logger.DebugContext(ctx, "Remote decoder found barcode",
		slog.String("symbol", symbol),
		slog.String("format", payload.Type),
	)
	span.SetStatus(codes.Ok, "Barcode decoded")
	return domain.Detection{Symbol: domain.Symbol(symbol), Format: payload.Type}, nil
}

func multipartImage(blob domain.ImageBlob) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	name := blob.Name
	if name == "" {
		name = "captured-barcode.jpg"
	}
	ct := blob.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, name))
	header.Set("Content-Type", ct)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(blob.Data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
