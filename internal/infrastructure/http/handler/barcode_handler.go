package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mrops-br/inventory-scanner/internal/app/workflow"
	"github.com/mrops-br/inventory-scanner/internal/domain"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/http/response"
)

// ScanResponse is the body of a successful decode
type ScanResponse struct {
	Barcode string `json:"barcode"`
	Type    string `json:"type"`
}

// BarcodeHandler serves the stateless decode endpoint
type BarcodeHandler struct {
	source  workflow.ImageSource
	decoder workflow.Decoder
	logger  *slog.Logger
}

// NewBarcodeHandler creates a new barcode handler
func NewBarcodeHandler(source workflow.ImageSource, decoder workflow.Decoder, logger *slog.Logger) *BarcodeHandler {
	return &BarcodeHandler{
		source:  source,
		decoder: decoder,
		logger:  logger,
	}
}

// Scan handles POST /api/barcode/scan
func (h *BarcodeHandler) Scan(w http.ResponseWriter, r *http.Request) {
	upload, err := readUpload(w, r)
	if err != nil {
		response.JSON(w, http.StatusBadRequest, response.ScanErrorResponse{Error: err.Error(), Status: "error"})
		return
	}
	if upload == nil {
		response.JSON(w, http.StatusBadRequest, response.ScanErrorResponse{Error: "No image file provided"})
		return
	}

	blob, err := h.source.AcceptUpload(upload)
	if err != nil {
		response.JSON(w, http.StatusBadRequest, response.ScanErrorResponse{Error: err.Error(), Status: "error"})
		return
	}

	det, err := h.decoder.Decode(r.Context(), blob)
	if err != nil {
		if errors.Is(err, domain.ErrNoSymbol) {
			response.JSON(w, http.StatusNotFound, response.ScanErrorResponse{Error: "No barcode detected"})
			return
		}
		h.logger.ErrorContext(r.Context(), "Barcode decode failed",
			slog.String("error", err.Error()),
		)
		response.JSON(w, http.StatusInternalServerError, response.ScanErrorResponse{Error: err.Error(), Status: "error"})
		return
	}

	response.JSON(w, http.StatusOK, ScanResponse{
		Barcode: det.Symbol.String(),
		Type:    det.Format,
	})
}
