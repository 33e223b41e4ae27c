package isomer

import (
	"strconv"
	"time"

	"github.com/turtacn/IsomerScope/internal/domain/stereo"
	"github.com/turtacn/IsomerScope/internal/infrastructure/render"
)

// Analysis entry points, used as the metrics "entry" label.
const (
	EntryName   = "name"
	EntrySMILES = "smiles"
	EntryWorker = "worker"
)

// SourceSMILES marks a result whose structure was given directly.
const SourceSMILES = "smiles"

// Request is one analysis job. SMILES takes precedence over Name.
type Request struct {
	ID     string
	Name   string
	SMILES string
	Export bool
	// Entry defaults to EntryName or EntrySMILES.
	Entry string
}

// AnalysisResult is the outcome of one request.
type AnalysisResult struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	SMILES string `json:"smiles"`
	Source string `json:"source"`
	Cached bool   `json:"cached"`

	AlleneCount     int   `json:"allene_count"`
	AlleneTerminals []int `json:"allene_terminals,omitempty"`
	// Enumerated counts variants before mirror-pair completion.
	Enumerated int `json:"enumerated"`

	Summary string        `json:"summary"`
	Isomers []*IsomerView `json:"isomers"`
	Export  *ExportResult `json:"export,omitempty"`

	CreatedAt time.Time     `json:"created_at"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// Labels returns the isomer labels in order.
func (r *AnalysisResult) Labels() []string {
	out := make([]string, len(r.Isomers))
	for i, iso := range r.Isomers {
		out[i] = iso.Label
	}
	return out
}

// IsomerView is one rendered stereoisomer.
type IsomerView struct {
	Index       int                 `json:"index"`
	Label       string              `json:"label"`
	Heading     string              `json:"heading"`
	SMILES      string              `json:"smiles"`
	Descriptors []stereo.Descriptor `json:"descriptors,omitempty"`
	Mirrored    bool                `json:"mirrored"`

	// Image is the 2D depiction as a data URI.
	Image    string `json:"image"`
	PNG      []byte `json:"-"`
	MolBlock string `json:"molblock"`

	Viewer *render.ViewerPayload `json:"viewer,omitempty"`
	// ViewerError is set when no conformer could be embedded.
	ViewerError string `json:"viewer_error,omitempty"`
}

// ExportResult lists the uploaded objects of one export.
type ExportResult struct {
	ID        string            `json:"id"`
	Bucket    string            `json:"bucket"`
	Prefix    string            `json:"prefix"`
	URLs      map[string]string `json:"urls"`
	CreatedAt time.Time         `json:"created_at"`
}

// Heading returns "Isomer N: label".
func Heading(index int, label string) string {
	return "Isomer " + strconv.Itoa(index) + ": " + label
}

// Summary returns "Found N Stereoisomer(s)".
func Summary(n int) string {
	return "Found " + strconv.Itoa(n) + " Stereoisomer(s)"
}

//Personal.AI order the ending
