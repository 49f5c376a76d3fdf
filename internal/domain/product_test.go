package domain

import (
	"errors"
	"testing"
)

func TestParseSymbol(t *testing.T) {
	got, err := ParseSymbol("  012345678905\n")
	if err != nil {
		t.Fatalf("ParseSymbol() error = %v", err)
	}
	if got != "012345678905" {
		t.Fatalf("expected trimmed symbol, got %q", got)
	}

	if _, err := ParseSymbol("   "); !errors.Is(err, ErrInvalidSymbol) {
		t.Fatalf("expected ErrInvalidSymbol, got %v", err)
	}
}

func TestRecordEditApply(t *testing.T) {
	img := "https://img.example/tea.jpg"
	base := &ProductRecord{Symbol: "012345678905", Name: "Tea", Brand: "BrandX", QuantityLabel: "250g", ImageURL: &img}

	name := "Green Tea"
	edited := RecordEdit{Name: &name}.Apply(base)
	if edited.Name != "Green Tea" || edited.Brand != "BrandX" || edited.ImageURL == nil {
		t.Fatalf("unexpected edit result %+v", edited)
	}
	if base.Name != "Tea" {
		t.Fatal("Apply must not modify the input")
	}
	if edited.ImageURL == base.ImageURL {
		t.Fatal("Apply must not share the image pointer")
	}

	empty := ""
	cleared := RecordEdit{ImageURL: &empty}.Apply(base)
	if cleared.ImageURL != nil {
		t.Fatalf("empty image edit should clear the image, got %q", *cleared.ImageURL)
	}
}

func TestProductRecordValidate(t *testing.T) {
	if err := (&ProductRecord{Name: "Tea"}).Validate(); !errors.Is(err, ErrInvalidSymbol) {
		t.Fatalf("expected ErrInvalidSymbol, got %v", err)
	}
	if err := (&ProductRecord{Symbol: "1", Name: " "}).Validate(); !errors.Is(err, ErrInvalidProductName) {
		t.Fatalf("expected ErrInvalidProductName, got %v", err)
	}
	if err := (&ProductRecord{Symbol: "1", Name: "Tea"}).Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestCloneNil(t *testing.T) {
	var p *ProductRecord
	if p.Clone() != nil {
		t.Fatal("Clone of nil should be nil")
	}
}
