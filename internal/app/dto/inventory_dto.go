package dto

import (
	"time"

	"github.com/mrops-br/inventory-scanner/internal/domain"
)

// ProductRecordDTO is the wire form of a product record
type ProductRecordDTO struct {
	Symbol        string  `json:"upc"`
	Name          string  `json:"name"`
	Brand         string  `json:"brand"`
	QuantityLabel string  `json:"quantity"`
	ImageURL      *string `json:"image"`
}

// InventoryItemResponse represents a stored inventory document
type InventoryItemResponse struct {
	ProductRecordDTO
	LastUpdated time.Time `json:"lastUpdated"`
}

// UpsertInventoryRequest is the body of PUT /inventory/{upc}
type UpsertInventoryRequest struct {
	Name          string  `json:"name"`
	Brand         string  `json:"brand"`
	QuantityLabel string  `json:"quantity"`
	ImageURL      *string `json:"image"`
}

// EditRecordRequest is the body of PATCH /sessions/{id}/record
type EditRecordRequest struct {
	Name          *string `json:"name"`
	Brand         *string `json:"brand"`
	QuantityLabel *string `json:"quantity"`
	ImageURL      *string `json:"image"`
}

// LookupResponse is the body of GET /lookup/{upc}
type LookupResponse struct {
	Record *ProductRecordDTO `json:"record"`
	Source string            `json:"source"`
}

// ToRecord builds a domain record for the given symbol
func (r *UpsertInventoryRequest) ToRecord(symbol domain.Symbol) *domain.ProductRecord {
	return &domain.ProductRecord{
		Symbol:        symbol,
		Name:          r.Name,
		Brand:         r.Brand,
		QuantityLabel: r.QuantityLabel,
		ImageURL:      r.ImageURL,
	}
}

// ToEdit converts the request into a domain edit
func (r *EditRecordRequest) ToEdit() domain.RecordEdit {
	return domain.RecordEdit{
		Name:          r.Name,
		Brand:         r.Brand,
		QuantityLabel: r.QuantityLabel,
		ImageURL:      r.ImageURL,
	}
}

// ToProductRecordDTO converts a domain record, returning nil for nil input
func ToProductRecordDTO(p *domain.ProductRecord) *ProductRecordDTO {
	if p == nil {
		return nil
	}
	return &ProductRecordDTO{
		Symbol:        p.Symbol.String(),
		Name:          p.Name,
		Brand:         p.Brand,
		QuantityLabel: p.QuantityLabel,
		ImageURL:      p.ImageURL,
	}
}

// ToInventoryItemResponse converts a domain InventoryItem to its response
func ToInventoryItemResponse(item *domain.InventoryItem) *InventoryItemResponse {
	return &InventoryItemResponse{
		ProductRecordDTO: *ToProductRecordDTO(&item.ProductRecord),
		LastUpdated:      item.LastUpdated,
	}
}

// ToInventoryItemResponseList converts a list of domain items
func ToInventoryItemResponseList(items []*domain.InventoryItem) []*InventoryItemResponse {
	responses := make([]*InventoryItemResponse, len(items))
	for i, item := range items {
		responses[i] = ToInventoryItemResponse(item)
	}
	return responses
}

// ToLookupResponse converts a resolution
func ToLookupResponse(r *domain.Resolution) *LookupResponse {
	return &LookupResponse{
		Record: ToProductRecordDTO(r.Record),
		Source: string(r.Source),
	}
}
