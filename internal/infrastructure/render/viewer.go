package render

import (
	"context"
	"time"

	"github.com/turtacn/IsomerScope/internal/domain/geometry"
	"github.com/turtacn/IsomerScope/internal/domain/molecule"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
)

// Highlight colour and sphere scales of the 3D viewer.
const (
	HighlightColor  = "#FF0000"
	HighlightScale  = 0.4
	BackgroundScale = 0.25
)

// StickStyle is a 3Dmol.js stick style. An empty value selects the viewer
// defaults.
type StickStyle struct {
	Color string `json:"color,omitempty"`
}

// SphereStyle is a 3Dmol.js sphere style.
type SphereStyle struct {
	Color string  `json:"color,omitempty"`
	Scale float64 `json:"scale"`
}

// AtomStyle is the style applied to one atom.
type AtomStyle struct {
	Sphere *SphereStyle `json:"sphere,omitempty"`
	Stick  *StickStyle  `json:"stick,omitempty"`
}

// SerialStyle binds a style to a 1-based atom serial, the graph index + 1.
type SerialStyle struct {
	Serial int       `json:"serial"`
	Style  AtomStyle `json:"style"`
}

// ViewerPayload is everything a 3Dmol.js viewer needs for one isomer.
type ViewerPayload struct {
	MolBlock    string        `json:"molblock"`
	Format      string        `json:"format"`
	Styles      []SerialStyle `json:"styles"`
	Highlighted []int         `json:"highlighted,omitempty"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	// Attempt is the embedding attempt that succeeded.
	Attempt int `json:"attempt"`
}

// ConformerSource produces 3D conformers.
type ConformerSource interface {
	Embed(ctx context.Context, m *molecule.Molecule) (*geometry.Conformer, error)
}

// ViewerBuilder embeds isomers and styles them for the 3D viewer.
type ViewerBuilder struct {
	embedder      ConformerSource
	width, height int
	logger        logging.Logger
}

// NewViewerBuilder constructs a ViewerBuilder for a viewer of the given size.
func NewViewerBuilder(embedder ConformerSource, width, height int, logger logging.Logger) *ViewerBuilder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ViewerBuilder{embedder: embedder, width: width, height: height, logger: logger}
}

// Build embeds m with explicit hydrogens and returns the payload. Atoms in
// highlight (graph indices, typically the allene terminals) are drawn as red
// spheres and sticks; every other atom as a default stick with a small sphere.
func (v *ViewerBuilder) Build(ctx context.Context, m *molecule.Molecule, highlight []int) (*ViewerPayload, error) {
	start := time.Now()
	conf, err := v.embedder.Embed(ctx, m)
	if err != nil {
		v.logger.Warn("3D embedding failed", logging.Err(err), logging.Int("atoms", m.NumAtoms()))
		return nil, err
	}
	block, err := molecule.WriteMolBlock(conf.Molecule, conf.Coords, molecule.MolBlockOptions{
		Title: m.Name, Program: "isoscope", Dim: "3D",
	})
	if err != nil {
		return nil, err
	}
	payload := &ViewerPayload{
		MolBlock: block,
		Format:   "mol",
		Styles:   AtomStyles(conf.Molecule.NumAtoms(), highlight),
		Width:    v.width,
		Height:   v.height,
		Attempt:  conf.Attempt,
	}
	for _, a := range highlight {
		payload.Highlighted = append(payload.Highlighted, a+1)
	}
	logging.LogOperationDuration(v.logger, "viewer_3d", start,
		logging.Int("atoms", conf.Molecule.NumAtoms()), logging.Int("attempt", conf.Attempt))
	return payload, nil
}

// AtomStyles returns one style per atom serial 1..n.
func AtomStyles(n int, highlight []int) []SerialStyle {
	hl := make(map[int]bool, len(highlight))
	for _, a := range highlight {
		hl[a] = true
	}
	out := make([]SerialStyle, n)
	for i := 0; i < n; i++ {
		style := AtomStyle{Stick: &StickStyle{}, Sphere: &SphereStyle{Scale: BackgroundScale}}
		if hl[i] {
			style = AtomStyle{
				Sphere: &SphereStyle{Color: HighlightColor, Scale: HighlightScale},
				Stick:  &StickStyle{Color: HighlightColor},
			}
		}
		out[i] = SerialStyle{Serial: i + 1, Style: style}
	}
	return out
}

//Personal.AI order the ending
