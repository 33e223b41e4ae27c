package geometry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/turtacn/IsomerScope/internal/domain/molecule"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

const (
	defaultEmbedAttempts  = 10
	defaultEmbedIters     = 400
	defaultEmbedSeed      = 0xf00d
	minChiralVolume       = 1.0
	minAxialVolume        = 1.0
	chiralWeight          = 1.0
	planarityWeight       = 0.1
	axialWeight           = 1.0
	maxBondDeviation      = 0.25
	maxContactPenetration = 0.5
)

// EmbedOptions controls the distance geometry embedder.
type EmbedOptions struct {
	// Attempts is the number of random starts before giving up.
	Attempts int `mapstructure:"attempts" json:"attempts"`
	// Seed makes embedding reproducible. Attempt k uses Seed+k.
	Seed int64 `mapstructure:"seed" json:"seed"`
	// MaxIterations bounds each L-BFGS refinement.
	MaxIterations int `mapstructure:"max_iterations" json:"max_iterations"`
}

// DefaultEmbedOptions returns the embedder defaults.
func DefaultEmbedOptions() EmbedOptions {
	return EmbedOptions{Attempts: defaultEmbedAttempts, Seed: defaultEmbedSeed, MaxIterations: defaultEmbedIters}
}

// Conformer is a 3D structure. Molecule carries explicit hydrogens and Coords
// is indexed by its atoms.
type Conformer struct {
	Molecule *molecule.Molecule
	Coords   []molecule.Coord
	Energy   float64
	Attempt  int
}

// Embedder produces 3D conformers that honour every chirality tag, cis/trans
// assignment and allene placeholder of the input. It satisfies the
// embeddability check of the stereoisomer enumerator.
type Embedder struct {
	opts   EmbedOptions
	logger logging.Logger
}

// NewEmbedder constructs an Embedder. Zero option fields take defaults.
func NewEmbedder(opts EmbedOptions, logger logging.Logger) *Embedder {
	def := DefaultEmbedOptions()
	if opts.Attempts <= 0 {
		opts.Attempts = def.Attempts
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if opts.Seed == 0 {
		opts.Seed = def.Seed
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Embedder{opts: opts, logger: logger}
}

// Embeddable reports whether m admits a 3D structure with its stereo
// configuration.
func (e *Embedder) Embeddable(ctx context.Context, m *molecule.Molecule) bool {
	_, err := e.Embed(ctx, m)
	return err == nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Stereo constraints
// ─────────────────────────────────────────────────────────────────────────────

type chiralTerm struct {
	ref  [4]int
	sign float64
}

type planarTerm struct {
	centre int
	nbrs   [3]int
}

// axialTerm fixes the helicity of an allene: t0=c=t2 with a1 on t0 and b1 on
// t2. The sign of (a1-t0)·((t2-t0)×(b1-t2)) follows the tag on t0.
type axialTerm struct {
	a1, t0, t2, b1 int
	sign           float64
}

type cisTransCheck struct {
	x, b, e, y int
	cis        bool
}

type embedProblem struct {
	h       *molecule.Molecule
	n       int
	bounds  *boundsMatrix
	chiral  []chiralTerm
	planar  []planarTerm
	axial   []axialTerm
	doubles []cisTransCheck
}

func newEmbedProblem(h *molecule.Molecule) *embedProblem {
	p := &embedProblem{h: h, n: h.NumAtoms()}
	for _, c := range h.ChiralAtoms() {
		ref := h.ReferenceOrder(c)
		if len(ref) != 4 || h.HasMultipleBond(c) {
			continue
		}
		p.chiral = append(p.chiral, chiralTerm{
			ref:  [4]int{ref[0], ref[1], ref[2], ref[3]},
			sign: float64(h.Atom(c).Chiral.Sign()),
		})
	}
	for i := 0; i < p.n; i++ {
		if h.Degree(i) == 3 && isTrigonal(h, i) {
			nb := h.Neighbors(i)
			p.planar = append(p.planar, planarTerm{centre: i, nbrs: [3]int{nb[0], nb[1], nb[2]}})
		}
	}
	for _, mt := range h.AlleneMatches() {
		t0, c, t2 := mt[0], mt[1], mt[2]
		tag := h.Atom(t0).Chiral
		if tag == molecule.ChiralUnspecified {
			if h.Atom(t2).Chiral == molecule.ChiralUnspecified {
				continue
			}
			t0, t2 = t2, t0
			tag = h.Atom(t0).Chiral
		}
		a1, b1 := firstOtherThan(h, t0, c), firstOtherThan(h, t2, c)
		if a1 < 0 || b1 < 0 {
			continue
		}
		p.axial = append(p.axial, axialTerm{a1: a1, t0: t0, t2: t2, b1: b1, sign: float64(tag.Sign())})
	}
	for _, bi := range h.StereoBonds() {
		b := h.Bond(bi)
		if b.StereoAtoms[0] < 0 || b.StereoAtoms[1] < 0 {
			continue
		}
		p.doubles = append(p.doubles, cisTransCheck{
			x: b.StereoAtoms[0], b: b.Begin, e: b.End, y: b.StereoAtoms[1],
			cis: b.Stereo == molecule.StereoCis,
		})
	}
	return p
}

func firstOtherThan(m *molecule.Molecule, atom, skip int) int {
	for _, n := range m.ReferenceOrder(atom) {
		if n != skip && n != molecule.ImplicitH {
			return n
		}
	}
	return -1
}

// ─────────────────────────────────────────────────────────────────────────────
// Error function
// ─────────────────────────────────────────────────────────────────────────────

// energy evaluates the distance, chirality, planarity and allene terms over
// flat 3N coordinates and fills grad when it is non-nil.
func (p *embedProblem) energy(x, grad []float64) float64 {
	if grad != nil {
		for i := range grad {
			grad[i] = 0
		}
	}
	var e float64
	for i := 0; i < p.n; i++ {
		pi := coordsAt(x, i)
		for j := i + 1; j < p.n; j++ {
			d := pi.Sub(coordsAt(x, j))
			d2 := d.Dot(d)
			u, l := p.bounds.u(i, j), p.bounds.l(i, j)
			var dEds float64
			switch {
			case u < boundUnset && d2 > u*u:
				f := d2/(u*u) - 1
				e += f * f
				dEds = 2 * f / (u * u)
			case d2 < l*l:
				q := l*l + d2
				f := 2*l*l/q - 1
				e += f * f
				dEds = 2 * f * (-2 * l * l / (q * q))
			default:
				continue
			}
			if grad != nil {
				g := d.Scale(2 * dEds)
				addAt(grad, i, g)
				addAt(grad, j, g.Scale(-1))
			}
		}
	}

	for _, t := range p.chiral {
		pts := [4]vec{coordsAt(x, t.ref[0]), coordsAt(x, t.ref[1]), coordsAt(x, t.ref[2]), coordsAt(x, t.ref[3])}
		v := signedVolume(pts[0], pts[1], pts[2], pts[3])
		if short := minChiralVolume - t.sign*v; short > 0 {
			e += chiralWeight * short * short
			if grad != nil {
				volumeGrad(grad, t.ref, pts, -2*chiralWeight*t.sign*short)
			}
		}
	}

	for _, t := range p.planar {
		idx := [4]int{t.centre, t.nbrs[0], t.nbrs[1], t.nbrs[2]}
		pts := [4]vec{coordsAt(x, idx[0]), coordsAt(x, idx[1]), coordsAt(x, idx[2]), coordsAt(x, idx[3])}
		v := signedVolume(pts[0], pts[1], pts[2], pts[3])
		e += planarityWeight * v * v
		if grad != nil {
			volumeGrad(grad, idx, pts, 2*planarityWeight*v)
		}
	}

	for _, t := range p.axial {
		u := coordsAt(x, t.a1).Sub(coordsAt(x, t.t0))
		v := coordsAt(x, t.t2).Sub(coordsAt(x, t.t0))
		w := coordsAt(x, t.b1).Sub(coordsAt(x, t.t2))
		tv := u.Dot(v.Cross(w))
		short := minAxialVolume - t.sign*tv
		if short <= 0 {
			continue
		}
		e += axialWeight * short * short
		if grad == nil {
			continue
		}
		k := -2 * axialWeight * t.sign * short
		du, dv, dw := v.Cross(w).Scale(k), w.Cross(u).Scale(k), u.Cross(v).Scale(k)
		addAt(grad, t.a1, du)
		addAt(grad, t.t0, du.Add(dv).Scale(-1))
		addAt(grad, t.t2, dv.Sub(dw))
		addAt(grad, t.b1, dw)
	}
	return e
}

// volumeGrad adds k·dV/dp for V = det(p1-p0, p2-p0, p3-p0).
func volumeGrad(grad []float64, idx [4]int, pts [4]vec, k float64) {
	a, b, c := pts[1].Sub(pts[0]), pts[2].Sub(pts[0]), pts[3].Sub(pts[0])
	g1, g2, g3 := b.Cross(c).Scale(k), c.Cross(a).Scale(k), a.Cross(b).Scale(k)
	addAt(grad, idx[1], g1)
	addAt(grad, idx[2], g2)
	addAt(grad, idx[3], g3)
	addAt(grad, idx[0], g1.Add(g2).Add(g3).Scale(-1))
}

// ─────────────────────────────────────────────────────────────────────────────
// Verification
// ─────────────────────────────────────────────────────────────────────────────

// stereoMismatches counts chiral and axial terms with the wrong sign and
// reports whether a cis/trans assignment is violated.
func (p *embedProblem) stereoMismatches(x []float64) (wrong int, doubleBad bool) {
	for _, t := range p.chiral {
		v := signedVolume(coordsAt(x, t.ref[0]), coordsAt(x, t.ref[1]), coordsAt(x, t.ref[2]), coordsAt(x, t.ref[3]))
		if t.sign*v <= 0 {
			wrong++
		}
	}
	for _, t := range p.axial {
		u := coordsAt(x, t.a1).Sub(coordsAt(x, t.t0))
		v := coordsAt(x, t.t2).Sub(coordsAt(x, t.t0))
		w := coordsAt(x, t.b1).Sub(coordsAt(x, t.t2))
		if t.sign*u.Dot(v.Cross(w)) <= 0 {
			wrong++
		}
	}
	for _, c := range p.doubles {
		if cisByTorsion(coordsAt(x, c.x), coordsAt(x, c.b), coordsAt(x, c.e), coordsAt(x, c.y)) != c.cis {
			doubleBad = true
		}
	}
	return wrong, doubleBad
}

func (p *embedProblem) geometryOK(x []float64) bool {
	for i := 0; i < p.h.NumBonds(); i++ {
		b := p.h.Bond(i)
		d := dist(coordsAt(x, b.Begin), coordsAt(x, b.End))
		if math.Abs(d-bondLength(p.h, i)) > maxBondDeviation {
			return false
		}
	}
	for i := 0; i < p.n; i++ {
		for j := i + 1; j < p.n; j++ {
			if p.bounds.l(i, j)-dist(coordsAt(x, i), coordsAt(x, j)) > maxContactPenetration {
				return false
			}
		}
	}
	return true
}

// ─────────────────────────────────────────────────────────────────────────────
// Embedding
// ─────────────────────────────────────────────────────────────────────────────

// Embed adds explicit hydrogens to a copy of m and returns a conformer whose
// geometry reproduces every stereo assignment. It fails with
// ErrCodeEmbeddingFailed after the configured number of attempts.
func (e *Embedder) Embed(ctx context.Context, m *molecule.Molecule) (*Conformer, error) {
	if m == nil || m.NumAtoms() == 0 {
		return nil, errors.New(errors.ErrCodeEmbeddingFailed, "empty molecule")
	}
	start := time.Now()
	h := molecule.AddHs(m)
	p := newEmbedProblem(h)
	if p.n == 1 {
		return &Conformer{Molecule: h, Coords: make([]molecule.Coord, 1)}, nil
	}
	p.bounds = buildBounds(h)
	if err := p.bounds.smooth(); err != nil {
		e.logger.Debug("distance bounds inconsistent", logging.Err(err))
		return nil, err
	}

	for attempt := 0; attempt < e.opts.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "embedding cancelled")
		}
		rng := rand.New(rand.NewSource(e.opts.Seed + int64(attempt)))
		x, energy, ok := e.attempt(p, rng)
		if !ok {
			continue
		}
		coords := make([]molecule.Coord, p.n)
		for i := range coords {
			coords[i] = coordsAt(x, i)
		}
		logging.LogOperationDuration(e.logger, "embed_3d", start,
			logging.Int("atoms", p.n), logging.Int("attempt", attempt+1), logging.Float64("energy", energy))
		return &Conformer{Molecule: h, Coords: coords, Energy: energy, Attempt: attempt + 1}, nil
	}
	return nil, errors.Newf(errors.ErrCodeEmbeddingFailed,
		"no conformer honours the stereo configuration after %d attempts", e.opts.Attempts)
}

func (e *Embedder) attempt(p *embedProblem, rng *rand.Rand) ([]float64, float64, bool) {
	d := make([][]float64, p.n)
	for i := range d {
		d[i] = make([]float64, p.n)
	}
	for i := 0; i < p.n; i++ {
		for j := i + 1; j < p.n; j++ {
			l, u := p.bounds.l(i, j), p.bounds.u(i, j)
			v := l + rng.Float64()*(u-l)
			d[i][j], d[j][i] = v, v
		}
	}
	x, err := classicalScaling(d, 3)
	if err != nil {
		return nil, 0, false
	}
	x, energy := e.refine(p, x)

	wrong, doubleBad := p.stereoMismatches(x)
	total := len(p.chiral) + len(p.axial)
	if wrong > 0 && wrong == total && !doubleBad {
		// every handed constraint is inverted: the mirror image fixes all of them
		for i := 0; i < p.n; i++ {
			x[3*i+2] = -x[3*i+2]
		}
		x, energy = e.refine(p, x)
		wrong, doubleBad = p.stereoMismatches(x)
	}
	if wrong > 0 || doubleBad || !p.geometryOK(x) {
		return nil, 0, false
	}
	return x, energy, true
}

func (e *Embedder) refine(p *embedProblem, x0 []float64) ([]float64, float64) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 { return p.energy(x, nil) },
		Grad: func(grad, x []float64) { p.energy(x, grad) },
	}
	res, err := optimize.Minimize(problem, x0, &optimize.Settings{
		MajorIterations:   e.opts.MaxIterations,
		GradientThreshold: 1e-5,
	}, &optimize.LBFGS{})
	if res == nil || len(res.X) != len(x0) || math.IsNaN(res.F) {
		if err != nil {
			e.logger.Debug("refinement failed", logging.Err(err))
		}
		return x0, p.energy(x0, nil)
	}
	return res.X, res.F
}

//Personal.AI order the ending
