package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/turtacn/IsomerScope/internal/application/isomer"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

var validate = validator.New()

// AnalyzeRequest is the body of the analyze and export endpoints. SMILES
// wins when both are given.
type AnalyzeRequest struct {
	Name   string `json:"name" validate:"required_without=SMILES,max=512"`
	SMILES string `json:"smiles" validate:"required_without=Name,max=4096"`
	Export bool   `json:"export"`
}

// IsomerHandler serves the JSON API.
type IsomerHandler struct {
	svc    isomer.Service
	logger logging.Logger
}

// NewIsomerHandler creates an IsomerHandler.
func NewIsomerHandler(svc isomer.Service, logger logging.Logger) *IsomerHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &IsomerHandler{svc: svc, logger: logger.Named("isomer_handler")}
}

// RegisterRoutes mounts the API under r. Analysis routes are wrapped in
// limit, which may be nil.
func (h *IsomerHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if limit != nil {
				r.Use(limit)
			}
			r.Post("/isomers/analyze", h.Analyze)
			r.Post("/isomers/export", h.Export)
		})
		r.Get("/compounds/resolve", h.Resolve)
	})
}

// Analyze handles POST /api/v1/isomers/analyze.
func (h *IsomerHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	result, err := h.svc.Run(r.Context(), req)
	if err != nil {
		h.logFailure("analyze", req, err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Export handles POST /api/v1/isomers/export: it analyzes the structure and
// answers with the presigned links only.
func (h *IsomerHandler) Export(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	req.Export = true
	result, err := h.svc.Run(r.Context(), req)
	if err != nil {
		h.logFailure("export", req, err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result.Export)
}

// Resolve handles GET /api/v1/compounds/resolve?name=.
func (h *IsomerHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeAppError(w, errors.New(errors.ErrCodeBadRequest, "query parameter name is required"))
		return
	}
	res, err := h.svc.Resolve(r.Context(), name)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *IsomerHandler) decode(r *http.Request) (*isomer.Request, error) {
	var body AnalyzeRequest
	if err := decodeJSON(r, &body); err != nil {
		return nil, err
	}
	body.Name = strings.TrimSpace(body.Name)
	body.SMILES = strings.TrimSpace(body.SMILES)
	if err := validate.Struct(&body); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "required_without" {
				return nil, errors.New(errors.ErrCodeBadRequest, "name or smiles is required")
			}
			return nil, errors.New(errors.ErrCodeValidation, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid request")
	}
	return &isomer.Request{Name: body.Name, SMILES: body.SMILES, Export: body.Export}, nil
}

func (h *IsomerHandler) logFailure(op string, req *isomer.Request, err error) {
	fields := []logging.Field{
		logging.String("op", op),
		logging.String("name", req.Name),
		logging.String("smiles", req.SMILES),
		logging.String("code", string(errors.GetCode(err))),
		logging.Err(err),
	}
	if errors.IsServerError(errors.GetCode(err)) {
		h.logger.Error("analysis failed", fields...)
		return
	}
	h.logger.Info("analysis rejected", fields...)
}

//Personal.AI order the ending
