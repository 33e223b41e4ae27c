package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/IsomerScope/internal/application/isomer"
	"github.com/turtacn/IsomerScope/internal/intelligence/resolver"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

func newPageRouter(svc isomer.Service) http.Handler {
	r := chi.NewRouter()
	NewPageHandler(svc, nil).RegisterRoutes(r, nil)
	return r
}

func submit(h http.Handler, name string) *httptest.ResponseRecorder {
	form := url.Values{"name": {name}}
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func body(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	raw, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	return string(raw)
}

func TestPageHandler_Index(t *testing.T) {
	t.Parallel()
	w := httptest.NewRecorder()
	newPageRouter(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	html := body(t, w)
	assert.Contains(t, html, PageTitle)
	assert.Contains(t, html, "Stereoisomerism Reference Guide:")
	assert.Contains(t, html, "4. <b>Ra / Sa (Axial):</b>")
	assert.Contains(t, html, `value="1,3-Dimethyl-3-phenylallene"`)
	assert.Contains(t, html, "Analyze &amp; Visualize Isomers")
	assert.NotContains(t, html, `class="error"`)
}

func TestPageHandler_AnalyzeRendersIsomers(t *testing.T) {
	t.Parallel()
	svc := &mockService{}
	svc.On("Run", mock.Anything, &isomer.Request{Name: DefaultName}).Return(alleneResult(), nil).Once()

	w := submit(newPageRouter(svc), DefaultName)
	require.Equal(t, http.StatusOK, w.Code)
	html := body(t, w)

	assert.Contains(t, html, "Found 2 Stereoisomer(s)")
	assert.Contains(t, html, `Isomer 1: <span class="label">Ra</span>`)
	assert.Contains(t, html, `Isomer 2: <span class="label">Sa</span>`)
	assert.Equal(t, 2, strings.Count(html, `src="data:image/png;base64,`))
	assert.Equal(t, 2, strings.Count(html, "data-viewer="))
	assert.Contains(t, html, "width: 400px; height: 300px")
	// JSON lands attribute-escaped.
	assert.Contains(t, html, "&#34;serial&#34;:1")
	svc.AssertExpectations(t)
}

func TestPageHandler_ViewerUnavailable(t *testing.T) {
	t.Parallel()
	result := alleneResult()
	result.Isomers[1].Viewer = nil
	result.Isomers[1].ViewerError = "embedding failed"
	svc := &mockService{}
	svc.On("Run", mock.Anything, mock.Anything).Return(result, nil).Once()

	html := body(t, submit(newPageRouter(svc), "x"))
	assert.Equal(t, 1, strings.Count(html, "data-viewer="))
	assert.Contains(t, html, "3D model unavailable: embedding failed")
}

func TestPageHandler_AnalyzeErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"not found", errors.New(errors.ErrCodeMoleculeNotFound, resolver.NotFoundMessage), http.StatusNotFound, resolver.NotFoundMessage},
		{"blank name", errors.New(errors.ErrCodeBadRequest, "name or smiles is required"), http.StatusBadRequest, resolver.NotFoundMessage},
		{"no isomers", errors.New(errors.ErrCodeStereoNoIsomers, "no embeddable stereoisomers"), http.StatusUnprocessableEntity, "no embeddable stereoisomers"},
		{"internal", errors.New(errors.ErrCodeInternal, "nil pointer somewhere"), http.StatusInternalServerError, "Analysis failed. Please try again later."},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &mockService{}
			svc.On("Run", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			w := submit(newPageRouter(svc), "unobtainium")
			require.Equal(t, tt.wantCode, w.Code)
			html := body(t, w)
			assert.Contains(t, html, `<div class="error">`+tt.wantMsg+`</div>`)
			assert.Contains(t, html, `value="unobtainium"`, "input keeps the submitted name")
			assert.NotContains(t, html, "Stereoisomer(s)")
		})
	}
}

func TestPageError_InvalidSMILES(t *testing.T) {
	t.Parallel()
	err := errors.New(errors.ErrCodeMoleculeInvalidSMILES, "unexpected ring closure")
	assert.Equal(t, "The resolved structure could not be parsed.", pageError(err))
}

//Personal.AI order the ending
