package dto

import (
	"time"

	"github.com/mrops-br/inventory-scanner/internal/app/workflow"
)

// SessionResponse represents the state of a scanner view
type SessionResponse struct {
	ID           string                                   `json:"id"`
	Phase        string                                   `json:"phase"`
	Symbol       string                                   `json:"barcode,omitempty"`
	Record       *ProductRecordDTO                        `json:"record,omitempty"`
	Source       string                                   `json:"source,omitempty"`
	StreamActive bool                                     `json:"streamActive"`
	Error        *SessionError                            `json:"error,omitempty"`
	Notice       string                                   `json:"notice,omitempty"`
	Closed       bool                                     `json:"closed"`
	Regions      map[workflow.Region]workflow.RegionState `json:"regions"`
	UpdatedAt    time.Time                                `json:"updatedAt"`
}

// SessionError describes why the last attempt failed
type SessionError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// SymbolRequest is the body of POST /sessions/{id}/symbol
type SymbolRequest struct {
	Barcode string `json:"barcode"`
}

// ToSessionResponse converts a workflow state and its rendered regions
func ToSessionResponse(st workflow.State, regions map[workflow.Region]workflow.RegionState) *SessionResponse {
	resp := &SessionResponse{
		ID:           st.SessionID,
		Phase:        string(st.Phase),
		Symbol:       st.Symbol.String(),
		Record:       ToProductRecordDTO(st.Record),
		Source:       string(st.Source),
		StreamActive: st.StreamActive,
		Notice:       st.Notice,
		Closed:       st.Closed,
		Regions:      regions,
		UpdatedAt:    st.UpdatedAt,
	}
	if st.Phase == workflow.PhaseError && st.Message != "" {
		resp.Error = &SessionError{
			Kind:    string(st.ErrorKind),
			Message: st.Message,
			Detail:  st.Error,
		}
	}
	return resp
}
