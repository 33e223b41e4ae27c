package isomer

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/IsomerScope/internal/config"
	"github.com/turtacn/IsomerScope/internal/domain/molecule"
	"github.com/turtacn/IsomerScope/internal/domain/stereo"
	"github.com/turtacn/IsomerScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/IsomerScope/internal/infrastructure/render"
	"github.com/turtacn/IsomerScope/internal/infrastructure/storage/minio"
	"github.com/turtacn/IsomerScope/internal/intelligence/resolver"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

const alleneSMILES = "CC=C=C(C)c1ccccc1"

// ─────────────────────────────────────────────────────────────────────────────
// Mocks
// ─────────────────────────────────────────────────────────────────────────────

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, name string) (*resolver.Resolution, error) {
	args := m.Called(ctx, name)
	if r := args.Get(0); r != nil {
		return r.(*resolver.Resolution), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockViewer struct {
	mock.Mock
}

func (m *mockViewer) Build(ctx context.Context, mol *molecule.Molecule, highlight []int) (*render.ViewerPayload, error) {
	args := m.Called(ctx, mol, highlight)
	if p := args.Get(0); p != nil {
		return p.(*render.ViewerPayload), args.Error(1)
	}
	return nil, args.Error(1)
}

type stubStereo struct {
	analysis *stereo.Analysis
	err      error
}

func (s *stubStereo) Analyze(context.Context, *molecule.Molecule) (*stereo.Analysis, error) {
	return s.analysis, s.err
}

type failingDepicter struct{}

func (failingDepicter) Depict(*molecule.Molecule, []stereo.Descriptor) (*render.Depiction, error) {
	return nil, errors.New(errors.ErrCodeDrawingFailed, "canvas exploded")
}

type capturePublisher struct {
	mu   sync.Mutex
	msgs []*kafka.ProducerMessage
}

func (p *capturePublisher) Publish(_ context.Context, msg *kafka.ProducerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *capturePublisher) completed(t *testing.T) kafka.AnalysisCompletedPayload {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.Len(t, p.msgs, 1)
	env, err := kafka.DecodeEnvelope(&kafka.Message{Value: p.msgs[0].Value})
	require.NoError(t, err)
	assert.Equal(t, kafka.EventAnalysisCompleted, env.EventType)
	var payload kafka.AnalysisCompletedPayload
	require.NoError(t, env.DecodePayload(&payload))
	return payload
}

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string]minio.Object
	removed []string
	failOn  string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string]minio.Object{}}
}

func (s *memoryStorage) Bucket() string { return "isomer-reports" }

func (s *memoryStorage) Put(_ context.Context, obj minio.Object) error {
	if s.failOn != "" && strings.HasSuffix(obj.Key, s.failOn) {
		return errors.New(errors.ErrCodeStorageError, "upload failed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[obj.Key] = obj
	return nil
}

func (s *memoryStorage) Link(_ context.Context, key string) (string, error) {
	return "https://minio.local/isomer-reports/" + key + "?sig=x", nil
}

func (s *memoryStorage) RemovePrefix(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, prefix)
	n := 0
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			delete(s.objects, k)
			n++
		}
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func fastStereo() *stereo.Service {
	opts := stereo.DefaultOptions()
	opts.TryEmbedding = false
	return stereo.NewService(opts, nil)
}

func okViewer() *mockViewer {
	v := &mockViewer{}
	v.On("Build", mock.Anything, mock.Anything, mock.Anything).
		Return(&render.ViewerPayload{Format: "mol", MolBlock: "3D block"}, nil)
	return v
}

func newTestService(t *testing.T, deps Dependencies) Service {
	t.Helper()
	if deps.Resolver == nil {
		deps.Resolver = &mockResolver{}
	}
	if deps.Stereo == nil {
		deps.Stereo = fastStereo()
	}
	if deps.Depicter == nil {
		deps.Depicter = render.NewDepictor(render.DefaultOptions(), nil)
	}
	if deps.Viewer == nil {
		deps.Viewer = okViewer()
	}
	if deps.Publisher != nil && deps.CompletedTopic == "" {
		deps.CompletedTopic = "isomer.analysis.completed"
	}
	svc, err := NewService(deps)
	require.NoError(t, err)
	return svc
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestNewService_RequiresComponents(t *testing.T) {
	t.Parallel()
	_, err := NewService(Dependencies{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInternal))

	_, err = NewService(Dependencies{
		Resolver: &mockResolver{}, Stereo: fastStereo(),
		Depicter: render.NewDepictor(render.DefaultOptions(), nil), Viewer: okViewer(),
		Publisher: &capturePublisher{},
	})
	assert.Error(t, err)
}

func TestAnalyze_AlleneByName(t *testing.T) {
	t.Parallel()
	res := &mockResolver{}
	res.On("Resolve", mock.Anything, "1,3-Dimethyl-3-phenylallene").
		Return(&resolver.Resolution{Name: "1,3-Dimethyl-3-phenylallene", SMILES: alleneSMILES, Source: resolver.SourceOPSIN}, nil)
	viewer := okViewer()
	svc := newTestService(t, Dependencies{Resolver: res, Viewer: viewer})

	result, err := svc.Analyze(context.Background(), "1,3-Dimethyl-3-phenylallene")
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, resolver.SourceOPSIN, result.Source)
	assert.Equal(t, 1, result.AlleneCount)
	assert.Equal(t, []int{1, 3}, result.AlleneTerminals)
	assert.Equal(t, 1, result.Enumerated)
	assert.Equal(t, "Found 2 Stereoisomer(s)", result.Summary)
	require.Len(t, result.Isomers, 2)
	assert.Equal(t, []string{"Ra", "Sa"}, result.Labels())
	assert.Equal(t, "Isomer 1: Ra", result.Isomers[0].Heading)
	assert.Equal(t, "Isomer 2: Sa", result.Isomers[1].Heading)
	assert.False(t, result.Isomers[0].Mirrored)
	assert.True(t, result.Isomers[1].Mirrored)
	assert.NotEqual(t, result.Isomers[0].SMILES, result.Isomers[1].SMILES)

	for _, iso := range result.Isomers {
		assert.True(t, strings.HasPrefix(iso.Image, render.PNGDataURIPrefix))
		assert.NotEmpty(t, iso.PNG)
		require.NotNil(t, iso.Viewer)
	}
	viewer.AssertNumberOfCalls(t, "Build", 2)
	for _, call := range viewer.Calls {
		assert.Equal(t, []int{1, 3}, call.Arguments.Get(2))
	}
}

func TestAnalyze_NotFound(t *testing.T) {
	t.Parallel()
	res := &mockResolver{}
	res.On("Resolve", mock.Anything, "unobtainium").
		Return(nil, errors.New(errors.ErrCodeMoleculeNotFound, resolver.NotFoundMessage))
	pub := &capturePublisher{}
	svc := newTestService(t, Dependencies{Resolver: res, Publisher: pub})

	_, err := svc.Analyze(context.Background(), "unobtainium")
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeNotFound))

	payload := pub.completed(t)
	assert.Equal(t, "unobtainium", payload.Name)
	assert.Equal(t, resolver.NotFoundMessage, payload.Error)
	assert.Zero(t, payload.IsomerCount)
}

func TestAnalyzeSMILES_Inputs(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, Dependencies{})
	tests := []struct {
		name   string
		smiles string
		code   errors.ErrorCode
	}{
		{"empty", "", errors.ErrCodeBadRequest},
		{"unbalanced ring", "C1CC", errors.ErrCodeMoleculeInvalidSMILES},
		{"bad element", "[Xx]", errors.ErrCodeMoleculeInvalidSMILES},
	}
	for _, tt := range tests {
		_, err := svc.AnalyzeSMILES(context.Background(), tt.smiles)
		assert.True(t, errors.IsCode(err, tt.code), "%s: %v", tt.name, err)
	}
}

func TestAnalyzeSMILES_CIPLabels(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, Dependencies{})
	result, err := svc.AnalyzeSMILES(context.Background(), "CC(N)C(=O)O")
	require.NoError(t, err)

	assert.Equal(t, SourceSMILES, result.Source)
	assert.Zero(t, result.AlleneCount)
	require.Len(t, result.Isomers, 2)
	assert.ElementsMatch(t, []string{"2R", "2S"}, result.Labels())
	for _, iso := range result.Isomers {
		assert.False(t, iso.Mirrored)
		require.Len(t, iso.Descriptors, 1)
		assert.Equal(t, 1, iso.Descriptors[0].Atom)
	}
}

func TestAnalyzeSMILES_NoStereoUnits(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, Dependencies{})
	result, err := svc.AnalyzeSMILES(context.Background(), "CCO")
	require.NoError(t, err)
	require.Len(t, result.Isomers, 1)
	assert.Equal(t, "Isomer 1: Ra", result.Isomers[0].Heading)
	assert.Equal(t, "Found 1 Stereoisomer(s)", result.Summary)
}

func TestAnalyze_ZeroIsomers(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, Dependencies{Stereo: &stubStereo{analysis: &stereo.Analysis{}}})
	_, err := svc.AnalyzeSMILES(context.Background(), "CCO")
	assert.True(t, errors.IsCode(err, errors.ErrCodeStereoNoIsomers))
}

func TestAnalyze_StereoErrorPropagates(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, Dependencies{Stereo: &stubStereo{
		err: errors.New(errors.ErrCodeStereoTooManyIsomers, "too many"),
	}})
	_, err := svc.AnalyzeSMILES(context.Background(), "CCO")
	assert.True(t, errors.IsCode(err, errors.ErrCodeStereoTooManyIsomers))
}

func TestAnalyze_ViewerFailureKeepsIsomer(t *testing.T) {
	t.Parallel()
	viewer := &mockViewer{}
	viewer.On("Build", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New(errors.ErrCodeEmbeddingFailed, "no conformer"))
	svc := newTestService(t, Dependencies{Viewer: viewer})

	result, err := svc.AnalyzeSMILES(context.Background(), alleneSMILES)
	require.NoError(t, err)
	for _, iso := range result.Isomers {
		assert.Nil(t, iso.Viewer)
		assert.Equal(t, "no conformer", iso.ViewerError)
		assert.NotEmpty(t, iso.Image)
	}
}

func TestAnalyze_DepictFailure(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, Dependencies{Depicter: failingDepicter{}})
	_, err := svc.AnalyzeSMILES(context.Background(), alleneSMILES)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDrawingFailed))
}

func TestRun_PublishesCompletion(t *testing.T) {
	t.Parallel()
	pub := &capturePublisher{}
	svc := newTestService(t, Dependencies{Publisher: pub})

	result, err := svc.Run(context.Background(), &Request{ID: "req-7", Name: "allene", SMILES: alleneSMILES})
	require.NoError(t, err)
	assert.Equal(t, "req-7", result.ID)

	payload := pub.completed(t)
	assert.Equal(t, "req-7", payload.RequestID)
	assert.Equal(t, 2, payload.IsomerCount)
	assert.Equal(t, []string{"Ra", "Sa"}, payload.Labels)
	assert.Empty(t, payload.Error)
	assert.Equal(t, "req-7", string(pub.msgs[0].Key))
	assert.Equal(t, "isomer.analysis.completed", pub.msgs[0].Topic)
}

func TestRun_WithExport(t *testing.T) {
	t.Parallel()
	store := newMemoryStorage()
	pub := &capturePublisher{}
	svc := newTestService(t, Dependencies{Storage: store, Publisher: pub})

	result, err := svc.Run(context.Background(), &Request{SMILES: alleneSMILES, Export: true})
	require.NoError(t, err)
	require.NotNil(t, result.Export)
	assert.Len(t, result.Export.URLs, 3)

	payload := pub.completed(t)
	assert.Equal(t, result.Export.URLs, payload.ExportURLs)
}

func TestExport(t *testing.T) {
	t.Parallel()
	store := newMemoryStorage()
	svc := newTestService(t, Dependencies{Storage: store})

	result, err := svc.AnalyzeSMILES(context.Background(), alleneSMILES)
	require.NoError(t, err)
	exp, err := svc.Export(context.Background(), result)
	require.NoError(t, err)

	assert.Equal(t, "isomer-reports", exp.Bucket)
	assert.True(t, strings.HasPrefix(exp.Prefix, ExportPrefix+exp.ID))
	require.Contains(t, exp.URLs, ReportObject)
	require.Contains(t, exp.URLs, "isomer-1.png")
	require.Contains(t, exp.URLs, "isomer-2.png")
	assert.Contains(t, exp.URLs["isomer-2.png"], exp.Prefix+"isomer-2.png")

	rep, ok := store.objects[exp.Prefix+ReportObject]
	require.True(t, ok)
	assert.Equal(t, "application/json", rep.ContentType)
	var doc report
	require.NoError(t, json.Unmarshal(rep.Data, &doc))
	assert.Equal(t, result.ID, doc.AnalysisID)
	assert.Equal(t, "Found 2 Stereoisomer(s)", doc.Summary)
	require.Len(t, doc.Isomers, 2)
	assert.Equal(t, "isomer-1.png", doc.Isomers[0].Image)
	assert.Equal(t, "3D block", doc.Isomers[0].Molblock3D)

	png, ok := store.objects[exp.Prefix+"isomer-1.png"]
	require.True(t, ok)
	assert.Equal(t, "image/png", png.ContentType)
	assert.Equal(t, result.Isomers[0].PNG, png.Data)
}

func TestExport_Errors(t *testing.T) {
	t.Parallel()
	result := &AnalysisResult{ID: "a", Isomers: []*IsomerView{{Index: 1, PNG: []byte{1}}}}

	_, err := newTestService(t, Dependencies{}).Export(context.Background(), result)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFeatureDisabled))

	svc := newTestService(t, Dependencies{Storage: newMemoryStorage()})
	_, err = svc.Export(context.Background(), &AnalysisResult{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	store := newMemoryStorage()
	store.failOn = "isomer-1.png"
	_, err = newTestService(t, Dependencies{Storage: store}).Export(context.Background(), result)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageError))
	require.Len(t, store.removed, 1, "partial bundle is cleaned up")
	assert.True(t, strings.HasPrefix(store.removed[0], ExportPrefix))
	assert.Empty(t, store.objects)
}

func TestHeadingAndSummary(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Isomer 3: Sa", Heading(3, "Sa"))
	assert.Equal(t, "Found 0 Stereoisomer(s)", Summary(0))
}

func TestNewPipeline_EndToEnd(t *testing.T) {
	t.Parallel()
	cfg := config.NewDefaultConfig()
	p := NewPipeline(cfg.Stereo, cfg.Render, nil, nil)
	svc := newTestService(t, p.Dependencies(Dependencies{}))

	result, err := svc.AnalyzeSMILES(context.Background(), alleneSMILES)
	require.NoError(t, err)
	require.Len(t, result.Isomers, 2)
	assert.Equal(t, []string{"Ra", "Sa"}, result.Labels())
	for _, iso := range result.Isomers {
		require.NotNil(t, iso.Viewer, iso.ViewerError)
		assert.Equal(t, []int{2, 4}, iso.Viewer.Highlighted)
	}
}

//Personal.AI order the ending
