package handlers

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/IsomerScope/internal/application/isomer"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/internal/infrastructure/render"
	"github.com/turtacn/IsomerScope/internal/intelligence/resolver"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

// Page text.
const (
	PageTitle   = "Chemical Isomer Analysis System 2.0"
	DefaultName = "1,3-Dimethyl-3-phenylallene"
)

//go:embed templates/index.html
var templateFS embed.FS

// GuideEntry is one line of the reference guide.
type GuideEntry struct {
	Term    string
	Meaning string
}

// ReferenceGuide lists the stereo descriptor families shown above the form.
var ReferenceGuide = []GuideEntry{
	{"Cis / Trans", "Identical groups on same/opposite sides."},
	{"E / Z (Absolute - CIP System)", "High-priority groups together (Z) or opposite (E)."},
	{"R / S (Optical)", "Absolute configuration of chiral centers."},
	{"Ra / Sa (Axial)", "Stereochemistry of Allenes (C=C=C)."},
}

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	// Image already holds a base64 PNG data URI built by the depictor.
	"dataURI": func(s string) template.URL {
		if !strings.HasPrefix(s, render.PNGDataURIPrefix) {
			return ""
		}
		return template.URL(s)
	},
	"viewerJSON": func(p *render.ViewerPayload) (string, error) {
		raw, err := json.Marshal(p)
		return string(raw), err
	},
}).ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Title  string
	Guide  []GuideEntry
	Name   string
	Error  string
	Result *isomer.AnalysisResult
}

// PageHandler serves the browser form and result page.
type PageHandler struct {
	svc    isomer.Service
	logger logging.Logger
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(svc isomer.Service, logger logging.Logger) *PageHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &PageHandler{svc: svc, logger: logger.Named("page_handler")}
}

// RegisterRoutes mounts GET / and POST /analyze. POST is wrapped in limit,
// which may be nil.
func (h *PageHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Get("/", h.Index)
	if limit != nil {
		r.With(limit).Post("/analyze", h.Analyze)
		return
	}
	r.Post("/analyze", h.Analyze)
}

// Index renders the empty form.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, h.data(DefaultName))
}

// Analyze resolves the submitted name and renders every stereoisomer.
func (h *PageHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		data := h.data("")
		data.Error = "Invalid form submission."
		h.render(w, http.StatusBadRequest, data)
		return
	}
	name := strings.TrimSpace(r.PostFormValue("name"))
	data := h.data(name)

	result, err := h.svc.Run(r.Context(), &isomer.Request{Name: name})
	if err != nil {
		data.Error = pageError(err)
		status := errors.HTTPStatusForCode(errors.GetCode(err))
		if status >= http.StatusInternalServerError {
			h.logger.Error("page analysis failed", logging.String("name", name), logging.Err(err))
		}
		h.render(w, status, data)
		return
	}
	data.Result = result
	h.render(w, http.StatusOK, data)
}

func (h *PageHandler) data(name string) *pageData {
	return &pageData{
		Title: PageTitle,
		Guide: ReferenceGuide,
		Name:  name,
	}
}

// render executes into a buffer so a template failure never leaves a
// half-written page behind.
func (h *PageHandler) render(w http.ResponseWriter, status int, data *pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error("template execution failed", logging.Err(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// pageError maps a failure to the inline message shown under the form.
func pageError(err error) string {
	code := errors.GetCode(err)
	switch {
	case errors.IsNotFound(err), code == errors.ErrCodeBadRequest:
		return resolver.NotFoundMessage
	case code == errors.ErrCodeMoleculeInvalidSMILES:
		return "The resolved structure could not be parsed."
	case errors.IsClientError(code) || exposedServerCode(code):
		return errors.Message(err)
	}
	return "Analysis failed. Please try again later."
}

//Personal.AI order the ending
