package molecule

// Element holds the per-element constants used for valence, embedding and
// drawing.
type Element struct {
	Symbol    string
	Number    int
	Mass      float64
	Covalent  float64 // covalent radius, Angstrom
	Valences  []int   // allowed neutral valences, ascending
	Color     string  // CPK hex colour for depiction
	Organic   bool    // member of the SMILES organic subset
	Aromatics bool    // may be written lowercase in SMILES
}

var elementTable = []Element{
	{Symbol: "H", Number: 1, Mass: 1.008, Covalent: 0.31, Valences: []int{1}, Color: "#FFFFFF"},
	{Symbol: "He", Number: 2, Mass: 4.003, Covalent: 0.28, Color: "#D9FFFF"},
	{Symbol: "Li", Number: 3, Mass: 6.94, Covalent: 1.28, Valences: []int{1}, Color: "#CC80FF"},
	{Symbol: "Be", Number: 4, Mass: 9.012, Covalent: 0.96, Valences: []int{2}, Color: "#C2FF00"},
	{Symbol: "B", Number: 5, Mass: 10.81, Covalent: 0.84, Valences: []int{3}, Color: "#FFB5B5", Organic: true, Aromatics: true},
	{Symbol: "C", Number: 6, Mass: 12.011, Covalent: 0.76, Valences: []int{4}, Color: "#909090", Organic: true, Aromatics: true},
	{Symbol: "N", Number: 7, Mass: 14.007, Covalent: 0.71, Valences: []int{3, 5}, Color: "#3050F8", Organic: true, Aromatics: true},
	{Symbol: "O", Number: 8, Mass: 15.999, Covalent: 0.66, Valences: []int{2}, Color: "#FF0D0D", Organic: true, Aromatics: true},
	{Symbol: "F", Number: 9, Mass: 18.998, Covalent: 0.57, Valences: []int{1}, Color: "#90E050", Organic: true},
	{Symbol: "Ne", Number: 10, Mass: 20.18, Covalent: 0.58, Color: "#B3E3F5"},
	{Symbol: "Na", Number: 11, Mass: 22.99, Covalent: 1.66, Valences: []int{1}, Color: "#AB5CF2"},
	{Symbol: "Mg", Number: 12, Mass: 24.305, Covalent: 1.41, Valences: []int{2}, Color: "#8AFF00"},
	{Symbol: "Al", Number: 13, Mass: 26.982, Covalent: 1.21, Valences: []int{3}, Color: "#BFA6A6"},
	{Symbol: "Si", Number: 14, Mass: 28.085, Covalent: 1.11, Valences: []int{4}, Color: "#F0C8A0"},
	{Symbol: "P", Number: 15, Mass: 30.974, Covalent: 1.07, Valences: []int{3, 5}, Color: "#FF8000", Organic: true, Aromatics: true},
	{Symbol: "S", Number: 16, Mass: 32.06, Covalent: 1.05, Valences: []int{2, 4, 6}, Color: "#FFFF30", Organic: true, Aromatics: true},
	{Symbol: "Cl", Number: 17, Mass: 35.45, Covalent: 1.02, Valences: []int{1}, Color: "#1FF01F", Organic: true},
	{Symbol: "Ar", Number: 18, Mass: 39.948, Covalent: 1.06, Color: "#80D1E3"},
	{Symbol: "K", Number: 19, Mass: 39.098, Covalent: 2.03, Valences: []int{1}, Color: "#8F40D4"},
	{Symbol: "Ca", Number: 20, Mass: 40.078, Covalent: 1.76, Valences: []int{2}, Color: "#3DFF00"},
	{Symbol: "Ti", Number: 22, Mass: 47.867, Covalent: 1.60, Color: "#BFC2C7"},
	{Symbol: "Cr", Number: 24, Mass: 51.996, Covalent: 1.39, Color: "#8A99C7"},
	{Symbol: "Mn", Number: 25, Mass: 54.938, Covalent: 1.39, Color: "#9C7AC7"},
	{Symbol: "Fe", Number: 26, Mass: 55.845, Covalent: 1.32, Color: "#E06633"},
	{Symbol: "Co", Number: 27, Mass: 58.933, Covalent: 1.26, Color: "#F090A0"},
	{Symbol: "Ni", Number: 28, Mass: 58.693, Covalent: 1.24, Color: "#50D050"},
	{Symbol: "Cu", Number: 29, Mass: 63.546, Covalent: 1.32, Color: "#C88033"},
	{Symbol: "Zn", Number: 30, Mass: 65.38, Covalent: 1.22, Valences: []int{2}, Color: "#7D80B0"},
	{Symbol: "Ge", Number: 32, Mass: 72.63, Covalent: 1.20, Valences: []int{4}, Color: "#668F8F"},
	{Symbol: "As", Number: 33, Mass: 74.922, Covalent: 1.19, Valences: []int{3, 5}, Color: "#BD80E3", Aromatics: true},
	{Symbol: "Se", Number: 34, Mass: 78.971, Covalent: 1.20, Valences: []int{2, 4, 6}, Color: "#FFA100", Aromatics: true},
	{Symbol: "Br", Number: 35, Mass: 79.904, Covalent: 1.20, Valences: []int{1}, Color: "#A62929", Organic: true},
	{Symbol: "Kr", Number: 36, Mass: 83.798, Covalent: 1.16, Color: "#5CB8D1"},
	{Symbol: "Rb", Number: 37, Mass: 85.468, Covalent: 2.20, Valences: []int{1}, Color: "#702EB0"},
	{Symbol: "Sr", Number: 38, Mass: 87.62, Covalent: 1.95, Valences: []int{2}, Color: "#00FF00"},
	{Symbol: "Pd", Number: 46, Mass: 106.42, Covalent: 1.39, Color: "#006985"},
	{Symbol: "Ag", Number: 47, Mass: 107.87, Covalent: 1.45, Color: "#C0C0C0"},
	{Symbol: "Sn", Number: 50, Mass: 118.71, Covalent: 1.39, Valences: []int{2, 4}, Color: "#668080"},
	{Symbol: "Sb", Number: 51, Mass: 121.76, Covalent: 1.39, Valences: []int{3, 5}, Color: "#9E63B5"},
	{Symbol: "Te", Number: 52, Mass: 127.6, Covalent: 1.38, Valences: []int{2, 4, 6}, Color: "#D47A00", Aromatics: true},
	{Symbol: "I", Number: 53, Mass: 126.9, Covalent: 1.39, Valences: []int{1, 3, 5}, Color: "#940094", Organic: true},
	{Symbol: "Xe", Number: 54, Mass: 131.29, Covalent: 1.40, Color: "#429EB0"},
	{Symbol: "Cs", Number: 55, Mass: 132.91, Covalent: 2.44, Valences: []int{1}, Color: "#57178F"},
	{Symbol: "Ba", Number: 56, Mass: 137.33, Covalent: 2.15, Valences: []int{2}, Color: "#00C900"},
	{Symbol: "Pt", Number: 78, Mass: 195.08, Covalent: 1.36, Color: "#D0D0E0"},
	{Symbol: "Au", Number: 79, Mass: 196.97, Covalent: 1.36, Color: "#FFD123"},
	{Symbol: "Hg", Number: 80, Mass: 200.59, Covalent: 1.32, Color: "#B8B8D0"},
	{Symbol: "Pb", Number: 82, Mass: 207.2, Covalent: 1.46, Valences: []int{2, 4}, Color: "#575961"},
	{Symbol: "Bi", Number: 83, Mass: 208.98, Covalent: 1.48, Valences: []int{3, 5}, Color: "#9E4FB5"},
}

var elementsBySymbol = func() map[string]*Element {
	m := make(map[string]*Element, len(elementTable))
	for i := range elementTable {
		m[elementTable[i].Symbol] = &elementTable[i]
	}
	return m
}()

// LookupElement returns the element for a symbol (case-sensitive, "Cl" not
// "CL").
func LookupElement(symbol string) (*Element, bool) {
	e, ok := elementsBySymbol[symbol]
	return e, ok
}

// ElementColor returns the CPK colour for symbol, grey when unknown.
func ElementColor(symbol string) string {
	if e, ok := elementsBySymbol[symbol]; ok {
		return e.Color
	}
	return "#909090"
}

// CovalentRadius returns the covalent radius for symbol, 0.76 when unknown.
func CovalentRadius(symbol string) float64 {
	if e, ok := elementsBySymbol[symbol]; ok {
		return e.Covalent
	}
	return 0.76
}

//Personal.AI order the ending
