// Package render turns stereoisomers into the artefacts shown to users: an
// annotated 2D PNG depiction and a 3D viewer payload built from an embedded
// conformer.
package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/colornames"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/turtacn/IsomerScope/internal/config"
	"github.com/turtacn/IsomerScope/internal/domain/geometry"
	"github.com/turtacn/IsomerScope/internal/domain/molecule"
	"github.com/turtacn/IsomerScope/internal/domain/stereo"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

// PNGDataURIPrefix starts every depiction data URI.
const PNGDataURIPrefix = "data:image/png;base64,"

// Options controls 2D depiction.
type Options struct {
	Width      int
	Height     int
	BondLength float64
	LineWidth  float64
	FontSize   float64
	// ExplicitMethyl labels terminal CH3 groups instead of leaving a bare
	// line end.
	ExplicitMethyl bool
	// Annotate draws CIP descriptors next to their atoms and bonds.
	Annotate bool
}

// DefaultOptions returns a 500x500 canvas with 35 px bonds and 4 px lines.
func DefaultOptions() Options {
	return Options{
		Width:          config.DefaultRenderSize,
		Height:         config.DefaultRenderSize,
		BondLength:     config.DefaultBondLength,
		LineWidth:      config.DefaultLineWidth,
		FontSize:       config.DefaultFontSize,
		ExplicitMethyl: true,
		Annotate:       true,
	}
}

// OptionsFromConfig maps the render configuration section.
func OptionsFromConfig(c config.RenderConfig) Options {
	return Options{
		Width:          c.Width,
		Height:         c.Height,
		BondLength:     c.BondLength,
		LineWidth:      c.LineWidth,
		FontSize:       c.FontSize,
		ExplicitMethyl: c.ExplicitMethyl,
		Annotate:       c.Annotate,
	}
}

// Depiction is a rendered 2D structure.
type Depiction struct {
	PNG    []byte
	Coords []molecule.Coord
	Wedges []geometry.Wedge
	// MolBlock is the 2D molblock with wedge and hash bonds.
	MolBlock string
}

// DataURI returns the PNG as a self-contained data URI.
func (d *Depiction) DataURI() string {
	return PNGDataURIPrefix + base64.StdEncoding.EncodeToString(d.PNG)
}

var (
	fontOnce  sync.Once
	fontErr   error
	regularTT *truetype.Font
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		regularTT, fontErr = truetype.Parse(goregular.TTF)
	})
	return regularTT, fontErr
}

func fontFace(size float64) (font.Face, error) {
	f, err := loadFont()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDrawingFailed, "parse font")
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}

var labelColors = map[string]string{
	"N": "#3050F8", "O": "#E00000", "S": "#B8A000", "F": "#1FA01F", "Cl": "#1FA01F",
	"Br": "#A62929", "I": "#940094", "P": "#FF8000", "B": "#D2691E",
}

var annotationColor color.Color = colornames.Darkviolet

// Depictor draws 2D structures with gg.
type Depictor struct {
	opts   Options
	logger logging.Logger
}

// NewDepictor constructs a Depictor. A nil logger is replaced by a nop logger.
func NewDepictor(opts Options, logger logging.Logger) *Depictor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Depictor{opts: opts, logger: logger}
}

// Depict lays m out, assigns wedges for its tetrahedral tags and draws it.
// Descriptors are drawn as annotations when the options ask for them.
func (d *Depictor) Depict(m *molecule.Molecule, descriptors []stereo.Descriptor) (*Depiction, error) {
	start := time.Now()
	if m == nil || m.NumAtoms() == 0 {
		return nil, errors.New(errors.ErrCodeDrawingFailed, "nothing to draw")
	}
	coords, err := geometry.Compute2DCoords(m)
	if err != nil {
		return nil, err
	}
	wedges := geometry.AssignWedges(m, coords)

	stereoCodes, begin := geometry.WedgeMaps(wedges)
	block, err := molecule.WriteMolBlock(m, coords, molecule.MolBlockOptions{
		Title: m.Name, Program: "isoscope", Dim: "2D", BondStereo: stereoCodes, WedgeBegin: begin,
	})
	if err != nil {
		return nil, err
	}

	c := newCanvas(d.opts, coords)
	labelFace, err := fontFace(d.opts.FontSize)
	if err != nil {
		return nil, err
	}
	noteFace, err := fontFace(d.opts.FontSize * 0.8)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(d.opts.Width, d.opts.Height)
	dc.SetColor(colornames.White)
	dc.Clear()

	drawn := m
	if k, kerr := molecule.Kekulize(m); kerr == nil {
		drawn = k
	}
	wedgeOf := map[int]geometry.Wedge{}
	for _, w := range wedges {
		wedgeOf[w.Bond] = w
	}
	dc.SetColor(colornames.Black)
	dc.SetLineCap(gg.LineCapRound)
	for bi := 0; bi < drawn.NumBonds(); bi++ {
		if w, ok := wedgeOf[bi]; ok {
			c.drawWedge(dc, drawn, w)
			continue
		}
		c.drawBond(dc, drawn, bi)
	}

	dc.SetFontFace(labelFace)
	for i := 0; i < m.NumAtoms(); i++ {
		text := atomLabel(m, i, d.opts.ExplicitMethyl)
		if text == "" {
			continue
		}
		c.drawLabel(dc, text, m.Atom(i).Symbol, coords[i])
	}

	if d.opts.Annotate && len(descriptors) > 0 {
		dc.SetFontFace(noteFace)
		for _, desc := range descriptors {
			c.drawAnnotation(dc, m, desc)
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDrawingFailed, "encode png")
	}
	logging.LogOperationDuration(d.logger, "depict_2d", start,
		logging.Int("atoms", m.NumAtoms()), logging.Int("wedges", len(wedges)))
	return &Depiction{PNG: buf.Bytes(), Coords: coords, Wedges: wedges, MolBlock: block}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Canvas mapping
// ─────────────────────────────────────────────────────────────────────────────

type canvas struct {
	opts   Options
	coords []molecule.Coord
	scale  float64
	cx, cy float64
}

// newCanvas fixes the layout-to-pixel transform: the configured bond length,
// shrunk when the structure would not fit with a margin of two font sizes.
func newCanvas(opts Options, coords []molecule.Coord) *canvas {
	lo, hi := geometry.BoundingBox(coords)
	margin := 2 * opts.FontSize
	scale := opts.BondLength
	if w := hi.X - lo.X; w > 0 {
		scale = math.Min(scale, (float64(opts.Width)-2*margin)/w)
	}
	if h := hi.Y - lo.Y; h > 0 {
		scale = math.Min(scale, (float64(opts.Height)-2*margin)/h)
	}
	return &canvas{opts: opts, coords: coords, scale: scale, cx: (lo.X + hi.X) / 2, cy: (lo.Y + hi.Y) / 2}
}

func (c *canvas) px(i int) (float64, float64) {
	return c.point(c.coords[i])
}

func (c *canvas) point(p molecule.Coord) (float64, float64) {
	return float64(c.opts.Width)/2 + (p.X-c.cx)*c.scale, float64(c.opts.Height)/2 - (p.Y-c.cy)*c.scale
}

// ─────────────────────────────────────────────────────────────────────────────
// Bonds
// ─────────────────────────────────────────────────────────────────────────────

func (c *canvas) drawBond(dc *gg.Context, m *molecule.Molecule, bi int) {
	b := m.Bond(bi)
	x1, y1 := c.px(b.Begin)
	x2, y2 := c.px(b.End)
	lw := c.opts.LineWidth
	gap := c.scale * 0.18
	nx, ny := perpendicular(x1, y1, x2, y2)

	dc.SetLineWidth(lw)
	switch b.Order {
	case molecule.BondDouble:
		if ring := smallestRing(m, bi); ring != nil {
			// inner line towards the ring centre, shortened at both ends
			rx, ry := c.ringCentre(ring)
			if (rx-x1)*nx+(ry-y1)*ny < 0 {
				nx, ny = -nx, -ny
			}
			dc.DrawLine(x1, y1, x2, y2)
			dc.Stroke()
			sx, sy := (x2-x1)*0.15, (y2-y1)*0.15
			dc.DrawLine(x1+sx+nx*gap, y1+sy+ny*gap, x2-sx+nx*gap, y2-sy+ny*gap)
			dc.Stroke()
			return
		}
		h := gap / 2
		dc.DrawLine(x1+nx*h, y1+ny*h, x2+nx*h, y2+ny*h)
		dc.Stroke()
		dc.DrawLine(x1-nx*h, y1-ny*h, x2-nx*h, y2-ny*h)
		dc.Stroke()
	case molecule.BondTriple:
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
		dc.DrawLine(x1+nx*gap, y1+ny*gap, x2+nx*gap, y2+ny*gap)
		dc.Stroke()
		dc.DrawLine(x1-nx*gap, y1-ny*gap, x2-nx*gap, y2-ny*gap)
		dc.Stroke()
	case molecule.BondAromatic:
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
		dc.SetDash(lw, lw*1.5)
		dc.DrawLine(x1+nx*gap, y1+ny*gap, x2+nx*gap, y2+ny*gap)
		dc.Stroke()
		dc.SetDash()
	default:
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
	}
}

// drawWedge draws a filled wedge or a hashed wedge with its narrow end at the
// stereocentre.
func (c *canvas) drawWedge(dc *gg.Context, m *molecule.Molecule, w geometry.Wedge) {
	other := m.Bond(w.Bond).Other(w.Atom)
	x1, y1 := c.px(w.Atom)
	x2, y2 := c.px(other)
	nx, ny := perpendicular(x1, y1, x2, y2)
	half := c.scale * 0.14

	if w.Kind == molecule.MolBondStereoWedge {
		dc.MoveTo(x1, y1)
		dc.LineTo(x2+nx*half, y2+ny*half)
		dc.LineTo(x2-nx*half, y2-ny*half)
		dc.ClosePath()
		dc.Fill()
		return
	}
	const stripes = 7
	dc.SetLineWidth(math.Max(1, c.opts.LineWidth/2))
	for k := 1; k <= stripes; k++ {
		t := float64(k) / stripes
		mx, my := x1+(x2-x1)*t, y1+(y2-y1)*t
		dc.DrawLine(mx+nx*half*t, my+ny*half*t, mx-nx*half*t, my-ny*half*t)
		dc.Stroke()
	}
}

func perpendicular(x1, y1, x2, y2 float64) (float64, float64) {
	dx, dy := x2-x1, y2-y1
	l := math.Hypot(dx, dy)
	if l == 0 {
		return 0, 0
	}
	return -dy / l, dx / l
}

func smallestRing(m *molecule.Molecule, bi int) []int {
	if !m.IsRingBond(bi) {
		return nil
	}
	b := m.Bond(bi)
	var best []int
	for _, ring := range m.Rings() {
		if !inRing(ring, b.Begin) || !inRing(ring, b.End) {
			continue
		}
		if best == nil || len(ring) < len(best) {
			best = ring
		}
	}
	return best
}

func inRing(ring []int, a int) bool {
	for _, r := range ring {
		if r == a {
			return true
		}
	}
	return false
}

func (c *canvas) ringCentre(ring []int) (float64, float64) {
	var sx, sy float64
	for _, a := range ring {
		x, y := c.px(a)
		sx += x
		sy += y
	}
	n := float64(len(ring))
	return sx / n, sy / n
}

// ─────────────────────────────────────────────────────────────────────────────
// Labels
// ─────────────────────────────────────────────────────────────────────────────

// atomLabel returns the text drawn at atom i, empty for skeletal carbons.
func atomLabel(m *molecule.Molecule, i int, explicitMethyl bool) string {
	a := m.Atom(i)
	if a.Symbol == "C" {
		methyl := explicitMethyl && m.Degree(i) == 1 && a.HCount == 3
		if m.Degree(i) > 0 && !methyl && a.Charge == 0 && a.Isotope == 0 {
			return ""
		}
	}
	text := a.Symbol
	if a.Isotope > 0 {
		text = strconv.Itoa(a.Isotope) + text
	}
	switch {
	case a.HCount == 1:
		text += "H"
	case a.HCount > 1:
		text += "H" + strconv.Itoa(a.HCount)
	}
	switch {
	case a.Charge == 1:
		text += "+"
	case a.Charge == -1:
		text += "-"
	case a.Charge > 1:
		text += strconv.Itoa(a.Charge) + "+"
	case a.Charge < -1:
		text += strconv.Itoa(-a.Charge) + "-"
	}
	return text
}

func (c *canvas) drawLabel(dc *gg.Context, text, symbol string, at molecule.Coord) {
	x, y := c.point(at)
	w, h := dc.MeasureString(text)
	dc.SetColor(colornames.White)
	dc.DrawRectangle(x-w/2-2, y-h/2-2, w+4, h+4)
	dc.Fill()
	if hex, ok := labelColors[symbol]; ok {
		dc.SetHexColor(hex)
	} else {
		dc.SetColor(colornames.Black)
	}
	dc.DrawStringAnchored(text, x, y, 0.5, 0.35)
}

// drawAnnotation writes "(R)", "(S)", "(E)" or "(Z)" beside its atom, away
// from the neighbours, or beside the middle of its bond.
func (c *canvas) drawAnnotation(dc *gg.Context, m *molecule.Molecule, d stereo.Descriptor) {
	text := fmt.Sprintf("(%s)", d.Label)
	var at, away molecule.Coord
	if d.Atom >= 0 {
		at = c.coords[d.Atom]
		for _, n := range m.Neighbors(d.Atom) {
			away = away.Add(at.Sub(c.coords[n]))
		}
	} else {
		b := m.Bond(d.Bond)
		p, q := c.coords[b.Begin], c.coords[b.End]
		at = p.Add(q).Scale(0.5)
		away = molecule.Coord{X: -(q.Y - p.Y), Y: q.X - p.X}
	}
	if l := math.Hypot(away.X, away.Y); l > 1e-9 {
		away = away.Scale(0.55 / l)
	} else {
		away = molecule.Coord{Y: 0.55}
	}
	x, y := c.point(at.Add(away))
	dc.SetColor(annotationColor)
	dc.DrawStringAnchored(text, x, y, 0.5, 0.5)
}

//Personal.AI order the ending
