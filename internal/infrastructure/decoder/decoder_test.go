package decoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/mrops-br/inventory-scanner/internal/domain"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/config"
	"go.opentelemetry.io/otel/trace/noop"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestZXingDecodesEAN13(t *testing.T) {
	matrix, err := oned.NewEAN13Writer().Encode("4006381333931", gozxing.BarcodeFormat_EAN_13, 300, 120, nil)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	dec := NewZXingDecoder(noop.NewTracerProvider().Tracer("test"), discardLogger())
	got, err := dec.Decode(context.Background(), domain.ImageBlob{Data: encodePNG(t, matrix)})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Symbol != "4006381333931" {
		t.Fatalf("expected symbol 4006381333931, got %q", got.Symbol)
	}
	if got.Format != gozxing.BarcodeFormat_EAN_13.String() {
		t.Fatalf("expected EAN_13 format, got %q", got.Format)
	}
}

func TestZXingBlankImageHasNoSymbol(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	dec := NewZXingDecoder(noop.NewTracerProvider().Tracer("test"), discardLogger())
	_, err := dec.Decode(context.Background(), domain.ImageBlob{Data: encodePNG(t, img)})
	if !errors.Is(err, domain.ErrNoSymbol) {
		t.Fatalf("expected ErrNoSymbol, got %v", err)
	}
}

func TestZXingRejectsNonImage(t *testing.T) {
	dec := NewZXingDecoder(noop.NewTracerProvider().Tracer("test"), discardLogger())
	_, err := dec.Decode(context.Background(), domain.ImageBlob{Data: []byte("plain text")})
	if !errors.Is(err, domain.ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
}

func TestRemoteDecoderSendsMultipartImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("FormFile() error = %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "jpeg-bytes" {
			t.Fatalf("unexpected upload body %q", data)
		}
		if header.Filename != "captured-barcode.jpg" {
			t.Fatalf("unexpected filename %q", header.Filename)
		}
		_ = json.NewEncoder(w).Encode(ScanResponse{Barcode: "012345678905", Type: "UPC_A"})
	}))
	defer server.Close()

	dec := NewRemoteDecoder(server.URL, time.Second, noop.NewTracerProvider().Tracer("test"), discardLogger())
	got, err := dec.Decode(context.Background(), domain.ImageBlob{Data: []byte("jpeg-bytes"), ContentType: "image/jpeg"})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Symbol != "012345678905" || got.Format != "UPC_A" {
		t.Fatalf("unexpected detection %+v", got)
	}
}

func TestRemoteDecoderOutcomes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "not found status", status: http.StatusNotFound, body: `{"error":"No barcode detected"}`, want: domain.ErrNoSymbol},
		{name: "missing barcode field", status: http.StatusOK, body: `{}`, want: domain.ErrNoSymbol},
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`, want: domain.ErrDecode},
		{name: "garbage body", status: http.StatusOK, body: `<html>`, want: domain.ErrDecode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			dec := NewRemoteDecoder(server.URL, time.Second, noop.NewTracerProvider().Tracer("test"), discardLogger())
			_, err := dec.Decode(context.Background(), domain.ImageBlob{Data: []byte("x")})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestNewByMode(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")
	logger := discardLogger()

	if _, err := New(&config.DecoderConfig{Mode: ModeLocal}, tracer, logger); err != nil {
		t.Fatalf("local mode error = %v", err)
	}
	if _, err := New(&config.DecoderConfig{Mode: ModeRemote}, tracer, logger); !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("expected ErrDecode for remote mode without URL, got %v", err)
	}
	if _, err := New(&config.DecoderConfig{Mode: "opencv"}, tracer, logger); err == nil {
		t.Fatalf("expected unknown mode error")
	}
}
