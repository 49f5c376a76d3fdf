package workflow

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mrops-br/inventory-scanner/internal/domain"
)

// Region names a UI surface the controller toggles
type Region string

const (
	RegionCameraPreview Region = "camera-preview"
	RegionUploadInput   Region = "upload-input"
	RegionResult        Region = "result"
	RegionError         Region = "error"
	RegionLoading       Region = "loading"
)

// Regions lists every region in render order
var Regions = []Region{RegionCameraPreview, RegionUploadInput, RegionLoading, RegionResult, RegionError}

// View is the UI collaborator. Layout is its own business.
type View interface {
	SetVisible(region Region, visible bool)
	SetText(region Region, text string)
}

// RegionState is what a region currently shows
type RegionState struct {
	Visible bool   `json:"visible"`
	Text    string `json:"text,omitempty"`
}

// Surface is an in-memory View whose snapshot can be handed to remote UIs
type Surface struct {
	mu      sync.RWMutex
	regions map[Region]RegionState
}

func NewSurface() *Surface {
	return &Surface{regions: make(map[Region]RegionState, len(Regions))}
}

func (s *Surface) SetVisible(region Region, visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.regions[region]
	rs.Visible = visible
	s.regions[region] = rs
}

func (s *Surface) SetText(region Region, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.regions[region]
	rs.Text = text
	s.regions[region] = rs
}

// Snapshot copies the current region states
func (s *Surface) Snapshot() map[Region]RegionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Region]RegionState, len(s.regions))
	for k, v := range s.regions {
		out[k] = v
	}
	return out
}

type nopView struct{}

func (nopView) SetVisible(Region, bool) {}
func (nopView) SetText(Region, string)  {}

// render pushes the session onto the view
func render(v View, s *ScanSession, closed bool) {
	if closed {
		for _, r := range Regions {
			v.SetVisible(r, false)
		}
		return
	}

	v.SetVisible(RegionCameraPreview, s.Stream != nil)
	v.SetVisible(RegionUploadInput, true)
	v.SetVisible(RegionLoading, s.Phase == PhaseLoading)

	if s.Phase == PhaseResult && s.Record != nil {
		v.SetText(RegionResult, describeRecord(s.Record))
		v.SetVisible(RegionResult, true)
	} else {
		v.SetText(RegionResult, s.Notice)
		v.SetVisible(RegionResult, s.Notice != "")
	}

	if s.Phase == PhaseError && s.Failure != nil {
		v.SetText(RegionError, messageFor(s.Failure))
		v.SetVisible(RegionError, true)
	} else {
		v.SetText(RegionError, "")
		v.SetVisible(RegionError, false)
	}
}

func describeRecord(r *domain.ProductRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "UPC: %s\n", r.Symbol)
	fmt.Fprintf(&b, "Name: %s\n", r.Name)
	fmt.Fprintf(&b, "Brand: %s\n", r.Brand)
	fmt.Fprintf(&b, "Quantity: %s", r.QuantityLabel)
	if r.ImageURL != nil {
		fmt.Fprintf(&b, "\nImage: %s", *r.ImageURL)
	}
	return b.String()
}
