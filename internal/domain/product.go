package domain

import (
	"strings"
	"time"
)

// Defaults applied when the catalog omits a field
const (
	DefaultProductName   = "Unknown Product"
	DefaultBrandName     = "Unknown Brand"
	DefaultQuantityLabel = "N/A"
)

// Symbol is a decoded barcode value, e.g. an EAN-13 or UPC-A code
type Symbol string

// ParseSymbol trims the input and rejects empty values
func ParseSymbol(raw string) (Symbol, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrInvalidSymbol
	}
	return Symbol(s), nil
}

func (s Symbol) String() string {
	return string(s)
}

// ProductRecord represents resolved product metadata for a symbol
type ProductRecord struct {
	Symbol        Symbol
	Name          string
	Brand         string
	QuantityLabel string
	ImageURL      *string
}

// Validate checks the record can be stored under its symbol
func (p *ProductRecord) Validate() error {
	if p.Symbol == "" {
		return ErrInvalidSymbol
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrInvalidProductName
	}
	return nil
}

// Clone returns a deep copy so callers can edit without sharing the image pointer
func (p *ProductRecord) Clone() *ProductRecord {
	if p == nil {
		return nil
	}
	c := *p
	if p.ImageURL != nil {
		img := *p.ImageURL
		c.ImageURL = &img
	}
	return &c
}

// RecordEdit carries user changes applied to a record before commit.
// Nil fields are left untouched; the symbol is never editable.
type RecordEdit struct {
	Name          *string
	Brand         *string
	QuantityLabel *string
	ImageURL      *string
}

// Apply returns a copy of the record with the edit applied
func (e RecordEdit) Apply(p *ProductRecord) *ProductRecord {
	out := p.Clone()
	if e.Name != nil {
		out.Name = *e.Name
	}
	if e.Brand != nil {
		out.Brand = *e.Brand
	}
	if e.QuantityLabel != nil {
		out.QuantityLabel = *e.QuantityLabel
	}
	if e.ImageURL != nil {
		if *e.ImageURL == "" {
			out.ImageURL = nil
		} else {
			img := *e.ImageURL
			out.ImageURL = &img
		}
	}
	return out
}

// InventoryItem is a product record as persisted in the inventory store
type InventoryItem struct {
	ProductRecord
	LastUpdated time.Time
}

// RecordSource tells where a resolved record came from
type RecordSource string

const (
	SourceInventory RecordSource = "inventory"
	SourceCatalog   RecordSource = "catalog"
)

// Detection is the output of a barcode decoder
type Detection struct {
	Symbol Symbol
	Format string
}

// ImageBlob is a still image handed to the decoder
type ImageBlob struct {
	Data        []byte
	ContentType string
	Name        string
	Width       int
	Height      int
}

// Upload is a user-selected image file
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Resolution is a product record together with where it was found
type Resolution struct {
	Record *ProductRecord
	Source RecordSource
}
