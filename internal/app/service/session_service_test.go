package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/mrops-br/inventory-scanner/internal/app/dto"
	"github.com/mrops-br/inventory-scanner/internal/app/workflow"
	"github.com/mrops-br/inventory-scanner/internal/domain"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/camera"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"
)

type staticDecoder struct {
	symbol domain.Symbol
}

func (d staticDecoder) Decode(context.Context, domain.ImageBlob) (domain.Detection, error) {
	if d.symbol == "" {
		return domain.Detection{}, domain.ErrNoSymbol
	}
	return domain.Detection{Symbol: d.symbol, Format: "EAN_13"}, nil
}

func pngFixture(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

type sessionFixture struct {
	svc  *SessionService
	repo domain.InventoryRepository
	now  time.Time
}

func newSessionFixture(idle time.Duration) *sessionFixture {
	f := &sessionFixture{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	tracer := noop.NewTracerProvider().Tracer("test")
	meter := metricnoop.NewMeterProvider().Meter("test")
	repo := newMemoryRepo()
	f.repo = repo

	cat := &stubCatalog{records: map[domain.Symbol]*domain.ProductRecord{
		"012345678905": {Symbol: "012345678905", Name: "Tea", Brand: "BrandX", QuantityLabel: "250g"},
	}}
	pipeline := ScanPipeline{
		Source:    camera.NewSource(camera.Unavailable{}, tracer, testLogger()),
		Decoder:   staticDecoder{symbol: "012345678905"},
		Resolver:  newLookup(repo, cat),
		Committer: newInventory(repo),
	}
	f.svc = NewSessionService(pipeline, idle, tracer, meter, testLogger(),
		WithSessionClock(func() time.Time { return f.now }),
	)
	return f
}

func TestOpenWithoutCameraReportsDeviceError(t *testing.T) {
	f := newSessionFixture(time.Minute)

	resp, err := f.svc.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if resp.ID == "" {
		t.Fatal("expected a session id")
	}
	if resp.Phase != string(workflow.PhaseError) || resp.Error == nil || resp.Error.Kind != string(domain.KindDevice) {
		t.Fatalf("expected device error, got %+v", resp)
	}
	if resp.Error.Message != workflow.MessageDeviceFailed {
		t.Fatalf("unexpected message %q", resp.Error.Message)
	}
	if !resp.Regions[workflow.RegionUploadInput].Visible {
		t.Fatal("upload input must remain available")
	}
}

func TestSessionScanAndCommit(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(time.Minute)
	opened, err := f.svc.Open(ctx)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	resp, err := f.svc.Upload(ctx, opened.ID, &domain.Upload{Name: "tea.png", Data: pngFixture(t)})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if resp.Phase != string(workflow.PhaseResult) || resp.Record == nil || resp.Record.Name != "Tea" {
		t.Fatalf("expected resolved record, got %+v", resp)
	}

	qty := "500g"
	if _, err := f.svc.Edit(ctx, opened.ID, &dto.EditRecordRequest{QuantityLabel: &qty}); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	resp, err = f.svc.Commit(ctx, opened.ID)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if resp.Phase != string(workflow.PhaseIdle) || resp.Notice != workflow.NoticeCommitted {
		t.Fatalf("expected idle with notice, got %+v", resp)
	}

	item, err := f.repo.FindBySymbol(ctx, "012345678905")
	if err != nil {
		t.Fatalf("FindBySymbol() error = %v", err)
	}
	if item.QuantityLabel != "500g" {
		t.Fatalf("expected edited quantity to be stored, got %q", item.QuantityLabel)
	}
}

func TestSessionSymbolValidation(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(time.Minute)
	opened, _ := f.svc.Open(ctx)

	if _, err := f.svc.Symbol(ctx, opened.ID, "  "); !errors.Is(err, domain.ErrInvalidSymbol) {
		t.Fatalf("expected ErrInvalidSymbol, got %v", err)
	}
	if _, err := f.svc.Commit(ctx, opened.ID); !errors.Is(err, workflow.ErrNothingToCommit) {
		t.Fatalf("expected ErrNothingToCommit, got %v", err)
	}
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	f := newSessionFixture(time.Minute)

	if _, err := f.svc.Get(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := f.svc.Close(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSweepClosesIdleSessions(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(10 * time.Minute)

	stale, _ := f.svc.Open(ctx)
	f.now = f.now.Add(8 * time.Minute)
	fresh, _ := f.svc.Open(ctx)

	if n := f.svc.Sweep(ctx, f.now.Add(5*time.Minute)); n != 1 {
		t.Fatalf("expected one expired session, got %d", n)
	}
	if _, err := f.svc.Get(ctx, stale.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected stale session gone, got %v", err)
	}
	if _, err := f.svc.Get(ctx, fresh.ID); err != nil {
		t.Fatalf("fresh session must survive, got %v", err)
	}

	if err := f.svc.CloseAll(ctx); err != nil {
		t.Fatalf("CloseAll() error = %v", err)
	}
	if f.svc.Count() != 0 {
		t.Fatalf("expected no sessions after CloseAll, got %d", f.svc.Count())
	}
}
