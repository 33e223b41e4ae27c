// Package isomer is the application service behind every entry point: it
// resolves a compound, enumerates its stereoisomers and renders each one.
package isomer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/IsomerScope/internal/domain/molecule"
	"github.com/turtacn/IsomerScope/internal/domain/stereo"
	"github.com/turtacn/IsomerScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/IsomerScope/internal/infrastructure/render"
	"github.com/turtacn/IsomerScope/internal/infrastructure/storage/minio"
	"github.com/turtacn/IsomerScope/internal/intelligence/resolver"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

// Service defines the stereoisomer analysis operations.
type Service interface {
	Resolve(ctx context.Context, name string) (*resolver.Resolution, error)
	Analyze(ctx context.Context, name string) (*AnalysisResult, error)
	AnalyzeSMILES(ctx context.Context, smiles string) (*AnalysisResult, error)
	// Run analyzes req, exports when asked and publishes one completion
	// event whatever the outcome.
	Run(ctx context.Context, req *Request) (*AnalysisResult, error)
	Export(ctx context.Context, result *AnalysisResult) (*ExportResult, error)
}

// StereoAnalyzer patches, enumerates and labels stereoisomers.
type StereoAnalyzer interface {
	Analyze(ctx context.Context, m *molecule.Molecule) (*stereo.Analysis, error)
}

// Depicter draws 2D structures.
type Depicter interface {
	Depict(m *molecule.Molecule, descriptors []stereo.Descriptor) (*render.Depiction, error)
}

// ViewerBuilder produces 3D viewer payloads.
type ViewerBuilder interface {
	Build(ctx context.Context, m *molecule.Molecule, highlight []int) (*render.ViewerPayload, error)
}

// Dependencies wires a Service. Storage and Publisher are optional.
type Dependencies struct {
	Resolver resolver.Resolver
	Stereo   StereoAnalyzer
	Depicter Depicter
	Viewer   ViewerBuilder

	Storage   minio.ReportStore
	Publisher kafka.Publisher
	// CompletedTopic receives completion events.
	CompletedTopic string
	// RenderConcurrency bounds the isomers rendered at once. Zero means 4.
	RenderConcurrency int

	Metrics *prometheus.AppMetrics
	Logger  logging.Logger
}

type serviceImpl struct {
	resolver    resolver.Resolver
	stereo      StereoAnalyzer
	depicter    Depicter
	viewer      ViewerBuilder
	storage     minio.ReportStore
	publisher   kafka.Publisher
	topic       string
	concurrency int
	metrics     *prometheus.AppMetrics
	logger      logging.Logger
}

// NewService creates the analysis service.
func NewService(deps Dependencies) (Service, error) {
	if deps.Resolver == nil || deps.Stereo == nil || deps.Depicter == nil || deps.Viewer == nil {
		return nil, errors.New(errors.ErrCodeInternal, "isomer service: resolver, stereo, depicter and viewer are required")
	}
	if deps.Publisher != nil && deps.CompletedTopic == "" {
		return nil, errors.New(errors.ErrCodeInternal, "isomer service: completion topic required with a publisher")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = prometheus.NewNopAppMetrics()
	}
	if deps.RenderConcurrency <= 0 {
		deps.RenderConcurrency = 4
	}
	return &serviceImpl{
		resolver:    deps.Resolver,
		stereo:      deps.Stereo,
		depicter:    deps.Depicter,
		viewer:      deps.Viewer,
		storage:     deps.Storage,
		publisher:   deps.Publisher,
		topic:       deps.CompletedTopic,
		concurrency: deps.RenderConcurrency,
		metrics:     deps.Metrics,
		logger:      deps.Logger.Named("isomer"),
	}, nil
}

func (s *serviceImpl) Resolve(ctx context.Context, name string) (*resolver.Resolution, error) {
	return s.resolver.Resolve(ctx, name)
}

func (s *serviceImpl) Analyze(ctx context.Context, name string) (*AnalysisResult, error) {
	return s.Run(ctx, &Request{Name: name, Entry: EntryName})
}

func (s *serviceImpl) AnalyzeSMILES(ctx context.Context, smiles string) (*AnalysisResult, error) {
	return s.Run(ctx, &Request{SMILES: smiles, Entry: EntrySMILES})
}

func (s *serviceImpl) Run(ctx context.Context, req *Request) (*AnalysisResult, error) {
	start := time.Now()
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	entry := req.Entry
	if entry == "" {
		entry = EntryName
		if req.SMILES != "" {
			entry = EntrySMILES
		}
	}
	log := s.logger.With(logging.String("request_id", req.ID), logging.String("entry", entry))

	result, err := s.run(ctx, req)
	if err == nil && req.Export {
		var exp *ExportResult
		if exp, err = s.Export(ctx, result); err == nil {
			result.Export = exp
		}
	}

	isomers, allene := 0, false
	if result != nil {
		result.Elapsed = time.Since(start)
		isomers, allene = len(result.Isomers), result.AlleneCount > 0
	}
	prometheus.RecordAnalysis(s.metrics, entry, isomers, allene, time.Since(start), err)
	if err != nil {
		prometheus.RecordError(s.metrics, "isomer", string(errors.GetCode(err)))
		log.Warn("analysis failed", logging.String("name", req.Name), logging.Err(err))
	} else {
		log.Info("analysis completed",
			logging.String("name", result.Name),
			logging.String("source", result.Source),
			logging.Int("isomers", isomers),
			logging.Duration("elapsed", result.Elapsed))
	}

	s.publishCompleted(ctx, req, result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *serviceImpl) run(ctx context.Context, req *Request) (*AnalysisResult, error) {
	if req.SMILES != "" {
		return s.analyzeStructure(ctx, req.ID, req.Name, req.SMILES, SourceSMILES, false)
	}
	if req.Name == "" {
		return nil, errors.New(errors.ErrCodeBadRequest, "name or smiles is required")
	}
	res, err := s.resolver.Resolve(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	return s.analyzeStructure(ctx, req.ID, res.Name, res.SMILES, res.Source, res.Cached)
}

func (s *serviceImpl) analyzeStructure(ctx context.Context, id, name, smiles, source string, cached bool) (*AnalysisResult, error) {
	m, err := molecule.ParseSMILES(smiles)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeMoleculeInvalidSMILES) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeMoleculeInvalidSMILES, "structure could not be parsed").WithDetail(smiles)
	}
	m.Name = name

	analysis, err := s.stereo.Analyze(ctx, m)
	if err != nil {
		return nil, err
	}
	if len(analysis.Isomers) == 0 {
		return nil, errors.New(errors.ErrCodeStereoNoIsomers, "no stereoisomer could be generated").WithDetail(smiles)
	}

	highlight := analysis.AlleneTerminals()
	views, err := s.renderAll(ctx, analysis.Isomers, highlight)
	if err != nil {
		return nil, err
	}

	return &AnalysisResult{
		ID:              id,
		Name:            name,
		SMILES:          smiles,
		Source:          source,
		Cached:          cached,
		AlleneCount:     len(analysis.Allenes),
		AlleneTerminals: highlight,
		Enumerated:      analysis.Enumerated,
		Summary:         Summary(len(views)),
		Isomers:         views,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// renderAll renders isomers in parallel and keeps their order. A failed 2D
// drawing fails the analysis; a failed 3D embedding only drops the viewer.
func (s *serviceImpl) renderAll(ctx context.Context, isomers []stereo.Isomer, highlight []int) ([]*IsomerView, error) {
	views := make([]*IsomerView, len(isomers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range isomers {
		i, iso := i, isomers[i]
		g.Go(func() error {
			view, err := s.render(gctx, iso, highlight)
			if err != nil {
				return err
			}
			views[i] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func (s *serviceImpl) render(ctx context.Context, iso stereo.Isomer, highlight []int) (*IsomerView, error) {
	t := time.Now()
	dep, err := s.depicter.Depict(iso.Molecule, iso.Descriptors)
	s.metrics.RenderDuration.WithLabelValues("2d").Observe(time.Since(t).Seconds())
	if err != nil {
		return nil, err
	}

	view := &IsomerView{
		Index:       iso.Index,
		Label:       iso.Label,
		Heading:     Heading(iso.Index, iso.Label),
		SMILES:      molecule.WriteSMILES(iso.Molecule),
		Descriptors: iso.Descriptors,
		Mirrored:    iso.Mirrored,
		Image:       dep.DataURI(),
		PNG:         dep.PNG,
		MolBlock:    dep.MolBlock,
	}

	t = time.Now()
	payload, err := s.viewer.Build(ctx, iso.Molecule, highlight)
	s.metrics.RenderDuration.WithLabelValues("3d").Observe(time.Since(t).Seconds())
	switch {
	case err == nil:
		view.Viewer = payload
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		view.ViewerError = errors.Message(err)
		s.logger.Warn("3D viewer unavailable",
			logging.Int("isomer", iso.Index), logging.Err(err))
	}
	return view, nil
}

func (s *serviceImpl) publishCompleted(ctx context.Context, req *Request, result *AnalysisResult, runErr error) {
	if s.publisher == nil {
		return
	}
	payload := kafka.AnalysisCompletedPayload{
		RequestID:   req.ID,
		Name:        req.Name,
		SMILES:      req.SMILES,
		CompletedAt: time.Now().UTC(),
	}
	if runErr != nil {
		payload.Error = errors.Message(runErr)
	} else {
		payload.Name = result.Name
		payload.SMILES = result.SMILES
		payload.Source = result.Source
		payload.IsomerCount = len(result.Isomers)
		payload.Labels = result.Labels()
		if result.Export != nil {
			payload.ExportURLs = result.Export.URLs
		}
	}

	env, err := kafka.NewEventEnvelope(kafka.EventAnalysisCompleted, "isoscope", payload)
	if err == nil {
		var msg *kafka.ProducerMessage
		if msg, err = env.ToMessage(s.topic, req.ID); err == nil {
			err = s.publisher.Publish(ctx, msg)
		}
	}
	if err != nil {
		s.logger.Error("failed to publish completion event",
			logging.String("request_id", req.ID), logging.Err(err))
	}
}

//Personal.AI order the ending
