package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mrops-br/inventory-scanner/internal/domain"
)

// maxUploadBytes bounds multipart image bodies
const maxUploadBytes = 10 << 20

const imageField = "image"

// readUpload reads the "image" part of a multipart request. A request without
// that part yields a nil upload and no error.
func readUpload(w http.ResponseWriter, r *http.Request) (*domain.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}

	file, header, err := r.FormFile(imageField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &domain.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
