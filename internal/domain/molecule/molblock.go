package molecule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/turtacn/IsomerScope/pkg/errors"
)

// Coord is a point in Angstrom (3D) or drawing units (2D, Z = 0).
type Coord struct {
	X, Y, Z float64
}

// Sub returns c - o.
func (c Coord) Sub(o Coord) Coord { return Coord{c.X - o.X, c.Y - o.Y, c.Z - o.Z} }

// Add returns c + o.
func (c Coord) Add(o Coord) Coord { return Coord{c.X + o.X, c.Y + o.Y, c.Z + o.Z} }

// Scale returns c * f.
func (c Coord) Scale(f float64) Coord { return Coord{c.X * f, c.Y * f, c.Z * f} }

// Dot returns the scalar product.
func (c Coord) Dot(o Coord) float64 { return c.X*o.X + c.Y*o.Y + c.Z*o.Z }

// Cross returns the vector product.
func (c Coord) Cross(o Coord) Coord {
	return Coord{c.Y*o.Z - c.Z*o.Y, c.Z*o.X - c.X*o.Z, c.X*o.Y - c.Y*o.X}
}

// MolBlock bond stereo codes for 2D depictions.
const (
	MolBondStereoNone  = 0
	MolBondStereoWedge = 1
	MolBondStereoHash  = 6
)

// MolBlockOptions controls WriteMolBlock.
type MolBlockOptions struct {
	Title   string
	Program string
	// Dim is "2D" or "3D" in the header line.
	Dim string
	// BondStereo carries wedge/hash codes per bond index.
	BondStereo map[int]int
	// Wedged bonds are written from this atom; keyed by bond index.
	WedgeBegin map[int]int
}

// WriteMolBlock renders m with coords as an MDL V2000 molblock. Aromatic bonds
// are written in Kekulé form when possible.
func WriteMolBlock(m *Molecule, coords []Coord, opts MolBlockOptions) (string, error) {
	if len(coords) != len(m.Atoms) {
		return "", errors.Newf(errors.ErrCodeMoleculeConversionFailed,
			"molblock: %d coordinates for %d atoms", len(coords), len(m.Atoms))
	}
	if len(m.Atoms) > 999 || len(m.Bonds) > 999 {
		return "", errors.New(errors.ErrCodeMoleculeConversionFailed, "molblock: V2000 holds at most 999 atoms and bonds")
	}
	src := m
	if k, err := Kekulize(m); err == nil {
		src = k
	}
	program := opts.Program
	if program == "" {
		program = "IsomerScope"
	}
	dim := opts.Dim
	if dim == "" {
		dim = "3D"
	}

	var sb strings.Builder
	sb.WriteString(opts.Title + "\n")
	sb.WriteString(fmt.Sprintf("  %-8.8s          %s\n", program, dim))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%3d%3d  0  0%3d  0  0  0  0  0999 V2000\n",
		len(src.Atoms), len(src.Bonds), boolInt(len(src.ChiralAtoms()) > 0)))

	var charged []int
	for i := range src.Atoms {
		a := &src.Atoms[i]
		c := coords[i]
		sb.WriteString(fmt.Sprintf("%10.4f%10.4f%10.4f %-3s 0%3d  0  0  0  0  0  0  0  0  0  0\n",
			c.X, c.Y, c.Z, a.Symbol, chargeCode(a.Charge)))
		if a.Charge != 0 {
			charged = append(charged, i)
		}
	}
	for bi := range src.Bonds {
		b := &src.Bonds[bi]
		begin, end := b.Begin, b.End
		stereo := opts.BondStereo[bi]
		if stereo != MolBondStereoNone {
			if wb, ok := opts.WedgeBegin[bi]; ok && wb == end {
				begin, end = end, begin
			}
		}
		sb.WriteString(fmt.Sprintf("%3d%3d%3d%3d\n", begin+1, end+1, int(b.Order), stereo))
	}
	for start := 0; start < len(charged); start += 8 {
		chunk := charged[start:min(start+8, len(charged))]
		sb.WriteString(fmt.Sprintf("M  CHG%3d", len(chunk)))
		for _, i := range chunk {
			sb.WriteString(fmt.Sprintf(" %3d %3d", i+1, src.Atoms[i].Charge))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("M  END\n")
	return sb.String(), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// chargeCode maps a formal charge to the V2000 atom-block charge field.
func chargeCode(charge int) int {
	switch charge {
	case 3:
		return 1
	case 2:
		return 2
	case 1:
		return 3
	case -1:
		return 5
	case -2:
		return 6
	case -3:
		return 7
	default:
		return 0
	}
}

// ParseMolBlock reads the first molecule of a V2000 molblock. Hydrogen counts
// of heavy atoms are derived from valence; explicit H atoms stay atoms.
func ParseMolBlock(block string) (*Molecule, []Coord, error) {
	lines := strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n")
	counts := -1
	for i, l := range lines {
		if len(l) >= 39 && strings.Contains(l, "V2000") {
			counts = i
			break
		}
	}
	if counts < 0 {
		return nil, nil, errors.New(errors.ErrCodeMoleculeParsingFailed, "molblock: V2000 counts line not found")
	}
	nAtoms, err1 := strconv.Atoi(strings.TrimSpace(lines[counts][0:3]))
	nBonds, err2 := strconv.Atoi(strings.TrimSpace(lines[counts][3:6]))
	if err1 != nil || err2 != nil {
		return nil, nil, errors.New(errors.ErrCodeMoleculeParsingFailed, "molblock: malformed counts line")
	}
	body := lines[counts+1:]
	if len(body) < nAtoms+nBonds {
		return nil, nil, errors.New(errors.ErrCodeMoleculeParsingFailed, "molblock: truncated atom or bond block")
	}

	m := New()
	coords := make([]Coord, 0, nAtoms)
	for i := 0; i < nAtoms; i++ {
		l := body[i]
		if len(l) < 34 {
			return nil, nil, errors.Newf(errors.ErrCodeMoleculeParsingFailed, "molblock: short atom line %d", i+1)
		}
		x, _ := strconv.ParseFloat(strings.TrimSpace(l[0:10]), 64)
		y, _ := strconv.ParseFloat(strings.TrimSpace(l[10:20]), 64)
		z, _ := strconv.ParseFloat(strings.TrimSpace(l[20:30]), 64)
		a := Atom{Symbol: strings.TrimSpace(l[31:34])}
		if len(l) >= 39 {
			if code, err := strconv.Atoi(strings.TrimSpace(l[36:39])); err == nil && code > 0 && code < 8 {
				a.Charge = 4 - code
			}
		}
		m.AddAtom(a)
		coords = append(coords, Coord{x, y, z})
	}
	for i := 0; i < nBonds; i++ {
		l := body[nAtoms+i]
		if len(l) < 9 {
			return nil, nil, errors.Newf(errors.ErrCodeMoleculeParsingFailed, "molblock: short bond line %d", i+1)
		}
		from, _ := strconv.Atoi(strings.TrimSpace(l[0:3]))
		to, _ := strconv.Atoi(strings.TrimSpace(l[3:6]))
		order, _ := strconv.Atoi(strings.TrimSpace(l[6:9]))
		if _, err := m.AddBond(from-1, to-1, BondOrder(order)); err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrCodeMoleculeParsingFailed, "molblock: bad bond")
		}
	}
	for _, l := range body[nAtoms+nBonds:] {
		if !strings.HasPrefix(l, "M  CHG") {
			continue
		}
		f := strings.Fields(l[6:])
		for k := 1; k+1 < len(f); k += 2 {
			idx, _ := strconv.Atoi(f[k])
			chg, _ := strconv.Atoi(f[k+1])
			if idx >= 1 && idx <= nAtoms {
				m.Atoms[idx-1].Charge = chg
			}
		}
	}
	for i := range m.Atoms {
		if m.Atoms[i].Charge != 0 {
			m.Atoms[i].Bracket = true
		}
	}
	if err := AssignImplicitHydrogens(m); err != nil {
		return nil, nil, err
	}
	return m, coords, nil
}

//Personal.AI order the ending
