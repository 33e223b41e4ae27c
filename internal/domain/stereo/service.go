package stereo

import (
	"context"
	"time"

	"github.com/turtacn/IsomerScope/internal/domain/molecule"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
)

// Isomer is one stereoisomer with its display label.
type Isomer struct {
	Index       int
	Label       string
	Molecule    *molecule.Molecule
	Descriptors []Descriptor
	// Mirrored is set on a variant added by mirror-pair completion.
	Mirrored bool
}

// Analysis is the stereo outcome for one structure.
type Analysis struct {
	// Patched is the input with allene placeholders applied.
	Patched *molecule.Molecule
	Allenes []molecule.Match
	// Enumerated counts the variants before mirror-pair completion.
	Enumerated int
	Isomers    []Isomer
}

// HasAllene reports whether the analysed structure contains an allene unit.
func (a *Analysis) HasAllene() bool { return len(a.Allenes) > 0 }

// AlleneTerminals returns the patched terminal atoms.
func (a *Analysis) AlleneTerminals() []int { return AlleneTerminals(a.Allenes) }

// Service runs patch, enumeration, mirror-pair completion and labelling.
type Service struct {
	opts   Options
	logger logging.Logger
}

// NewService constructs a stereo service. A nil logger is replaced by a nop
// logger.
func NewService(opts Options, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{opts: opts, logger: logger}
}

// Options returns the enumeration options in effect.
func (s *Service) Options() Options { return s.opts }

// Analyze works on a copy of m, so the caller's molecule keeps its tags.
func (s *Service) Analyze(ctx context.Context, m *molecule.Molecule) (*Analysis, error) {
	start := time.Now()
	patched := m.Clone()
	allenes := PatchAllenes(patched)
	if len(allenes) > 0 {
		s.logger.Debug("allene terminals patched",
			logging.Int("matches", len(allenes)),
			logging.Any("terminals", AlleneTerminals(allenes)))
	}

	variants, err := Enumerate(ctx, patched, s.opts)
	if err != nil {
		s.logger.Warn("stereoisomer enumeration failed", logging.Err(err))
		return nil, err
	}
	enumerated := len(variants)
	variants = CompleteMirrorPair(variants, patched)

	res := &Analysis{Patched: patched, Allenes: allenes, Enumerated: enumerated}
	for i, v := range variants {
		iso := Isomer{
			Index:       i + 1,
			Molecule:    v,
			Descriptors: AssignCIP(v),
			Mirrored:    i >= enumerated,
		}
		iso.Label = Label(i, v, len(allenes) > 0)
		res.Isomers = append(res.Isomers, iso)
	}

	s.logger.Info("stereoisomers enumerated",
		logging.Int("enumerated", enumerated),
		logging.Int("isomers", len(res.Isomers)),
		logging.Int("allenes", len(allenes)),
		logging.Duration("elapsed", time.Since(start)))
	return res, nil
}

// Label names the i-th variant: allene structures use the positional axial
// label, other structures their CIP descriptors, falling back to the
// positional label when there are none.
func Label(i int, v *molecule.Molecule, allene bool) string {
	if !allene {
		if l := CIPLabel(v); l != "" {
			return l
		}
	}
	return AxialLabel(i)
}

//Personal.AI order the ending
