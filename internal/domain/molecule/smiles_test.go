package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/IsomerScope/pkg/errors"
)

const phenylAllene = "CC=C=C(C)c1ccccc1"

func TestParseSMILES_Allene(t *testing.T) {
	m, err := ParseSMILES(phenylAllene)
	require.NoError(t, err)

	assert.Equal(t, 11, m.NumAtoms())
	assert.Equal(t, 11, m.NumBonds())
	assert.Equal(t, BondDouble, m.Bond(m.BondBetween(1, 2)).Order)
	assert.Equal(t, BondDouble, m.Bond(m.BondBetween(2, 3)).Order)

	wantH := []int{3, 1, 0, 0, 3, 0, 1, 1, 1, 1, 1}
	for i, h := range wantH {
		assert.Equalf(t, h, m.Atom(i).HCount, "atom %d", i)
	}
	for i := 5; i < 11; i++ {
		assert.True(t, m.Atom(i).Aromatic)
	}
	assert.Equal(t, "C11H12", m.Formula())
}

func TestParseSMILES_KekuleIsAromatised(t *testing.T) {
	m, err := ParseSMILES("CC=C=C(C)C1=CC=CC=C1")
	require.NoError(t, err)

	for i := 5; i < 11; i++ {
		assert.Truef(t, m.Atom(i).Aromatic, "atom %d", i)
	}
	assert.Equal(t, BondAromatic, m.Bond(m.BondBetween(5, 10)).Order)
	assert.Equal(t, phenylAllene, WriteSMILES(m))
}

func TestParseSMILES_Chirality(t *testing.T) {
	tests := []struct {
		name   string
		smiles string
		atom   int
		want   ChiralTag
	}{
		// implicit H follows the preceding atom in SMILES but leads the
		// reference order, so the written tag flips
		{"preceded atom with H", "N[C@@H](C)C(=O)O", 1, ChiralCCW},
		{"leading atom with H", "[C@@H](N)(C)C(=O)O", 0, ChiralCW},
		{"no hydrogen", "F[C@](Cl)(Br)I", 1, ChiralCCW},
		{"unspecified", "NC(C)C(=O)O", 1, ChiralUnspecified},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := ParseSMILES(tt.smiles)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Atom(tt.atom).Chiral)
		})
	}
}

func TestParseSMILES_BondStereo(t *testing.T) {
	tests := []struct {
		smiles string
		want   BondStereo
	}{
		{"F/C=C/F", StereoTrans},
		{"F\\C=C\\F", StereoTrans},
		{"F/C=C\\F", StereoCis},
		{"C(/F)=C/F", StereoCis},
		{"FC=CF", StereoNone},
	}
	for _, tt := range tests {
		m, err := ParseSMILES(tt.smiles)
		require.NoError(t, err, tt.smiles)
		bi := m.BondBetween(1, 2)
		if tt.smiles == "C(/F)=C/F" {
			bi = m.BondBetween(0, 2)
		}
		require.GreaterOrEqual(t, bi, 0, tt.smiles)
		assert.Equal(t, tt.want, m.Bond(bi).Stereo, tt.smiles)
	}
}

func TestParseSMILES_BracketAtoms(t *testing.T) {
	m, err := ParseSMILES("[13CH3][N+](C)(C)C.[Cl-]")
	require.NoError(t, err)

	assert.Equal(t, 13, m.Atom(0).Isotope)
	assert.Equal(t, 3, m.Atom(0).HCount)
	assert.Equal(t, 1, m.Atom(1).Charge)
	assert.Equal(t, 0, m.Atom(1).HCount)
	assert.Equal(t, -1, m.Atom(5).Charge)
	assert.Len(t, m.Fragments(), 2)
}

func TestParseSMILES_Pyrrole(t *testing.T) {
	m, err := ParseSMILES("c1cc[nH]c1")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Atom(3).HCount)
	for _, i := range []int{0, 1, 2, 4} {
		assert.Equal(t, 1, m.Atom(i).HCount)
	}
}

func TestParseSMILES_Errors(t *testing.T) {
	tests := []struct {
		smiles string
		code   errors.ErrorCode
	}{
		{"", errors.CodeMoleculeInvalidSMILES},
		{"C1CC", errors.CodeMoleculeInvalidSMILES},
		{"C(C", errors.CodeMoleculeInvalidSMILES},
		{"CC)", errors.CodeMoleculeInvalidSMILES},
		{"[Xx]", errors.CodeMoleculeInvalidSMILES},
		{"C==C", errors.CodeMoleculeInvalidSMILES},
		{"Q", errors.CodeMoleculeInvalidSMILES},
		{"C(C)(C)(C)(C)C", errors.ErrCodeValenceViolation},
	}
	for _, tt := range tests {
		_, err := ParseSMILES(tt.smiles)
		require.Error(t, err, tt.smiles)
		assert.True(t, errors.IsCode(err, tt.code), "%q: %v", tt.smiles, err)
	}
}

func TestWriteSMILES_RoundTrip(t *testing.T) {
	inputs := []string{
		"N[C@@H](C)C(=O)O",
		"F/C=C/F",
		"F/C=C\\F",
		"C[C@H](O)[C@@H](C)Cl",
		"C/C=C/C=C\\C",
		"O[C@H]1CCCC[C@@H]1C",
		"c1ccc2ccccc2c1",
		"[NH4+].[Cl-]",
		phenylAllene,
	}
	for _, in := range inputs {
		m, err := ParseSMILES(in)
		require.NoError(t, err, in)

		out := WriteSMILES(m)
		back, err := ParseSMILES(out)
		require.NoError(t, err, "%s -> %s", in, out)

		require.Equal(t, m.NumAtoms(), back.NumAtoms(), out)
		assert.Equal(t, m.Formula(), back.Formula(), out)
		assert.Equal(t, len(m.ChiralAtoms()), len(back.ChiralAtoms()), out)
		assert.Equal(t, len(m.StereoBonds()), len(back.StereoBonds()), out)
		// writer follows atom order, so a second pass is a fixed point
		assert.Equal(t, out, WriteSMILES(back), in)
	}
}

func TestWriteSMILES_Exact(t *testing.T) {
	assert.Equal(t, "N[C@@H](C)C(=O)O", WriteSMILES(MustParseSMILES("N[C@@H](C)C(=O)O")))
	assert.Equal(t, "F/C=C/F", WriteSMILES(MustParseSMILES("F/C=C/F")))
	assert.Equal(t, "F/C=C\\F", WriteSMILES(MustParseSMILES("F/C=C\\F")))
}

func TestWriteSMILES_InvertedTag(t *testing.T) {
	m := MustParseSMILES("N[C@@H](C)C(=O)O")
	m.Atom(1).Chiral = m.Atom(1).Chiral.Invert()
	assert.Equal(t, "N[C@H](C)C(=O)O", WriteSMILES(m))
}

//Personal.AI order the ending
