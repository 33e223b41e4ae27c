package isomer

import (
	"context"

	"github.com/turtacn/IsomerScope/internal/config"
	"github.com/turtacn/IsomerScope/internal/domain/geometry"
	"github.com/turtacn/IsomerScope/internal/domain/molecule"
	"github.com/turtacn/IsomerScope/internal/domain/stereo"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/IsomerScope/internal/infrastructure/render"
)

// meteredEmbedder records attempts and failures of viewer embeddings. The
// enumerator's feasibility checks go straight to the inner embedder.
type meteredEmbedder struct {
	inner   *geometry.Embedder
	metrics *prometheus.AppMetrics
}

func (e *meteredEmbedder) Embed(ctx context.Context, m *molecule.Molecule) (*geometry.Conformer, error) {
	conf, err := e.inner.Embed(ctx, m)
	attempts := 0
	if conf != nil {
		attempts = conf.Attempt
	}
	prometheus.RecordEmbedding(e.metrics, attempts, err)
	return conf, err
}

// Pipeline holds the configured domain components.
type Pipeline struct {
	Stereo   *stereo.Service
	Depictor *render.Depictor
	Viewer   *render.ViewerBuilder
}

// StereoOptions maps the stereo configuration section onto enumeration
// options using embedder for the feasibility check.
func StereoOptions(c config.StereoConfig, embedder stereo.Embedder) stereo.Options {
	opts := stereo.DefaultOptions()
	opts.OnlyUnassigned = c.OnlyUnassigned
	opts.TryEmbedding = c.TryEmbedding
	if c.MaxIsomers > 0 {
		opts.MaxIsomers = c.MaxIsomers
	}
	opts.Embedder = embedder
	return opts
}

// NewPipeline builds the stereo service, the 2D depictor and the 3D viewer
// builder from configuration. They share one embedder.
func NewPipeline(sc config.StereoConfig, rc config.RenderConfig, metrics *prometheus.AppMetrics, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	embedder := geometry.NewEmbedder(geometry.EmbedOptions{
		Attempts: sc.EmbedAttempts,
		Seed:     sc.RandomSeed,
	}, logger.Named("embed"))

	return &Pipeline{
		Stereo:   stereo.NewService(StereoOptions(sc, embedder), logger.Named("stereo")),
		Depictor: render.NewDepictor(render.OptionsFromConfig(rc), logger.Named("depict")),
		Viewer: render.NewViewerBuilder(&meteredEmbedder{inner: embedder, metrics: metrics},
			rc.ViewerWidth, rc.ViewerHeight, logger.Named("viewer")),
	}
}

// Dependencies returns deps with the pipeline components filled in.
func (p *Pipeline) Dependencies(deps Dependencies) Dependencies {
	deps.Stereo = p.Stereo
	deps.Depicter = p.Depictor
	deps.Viewer = p.Viewer
	return deps
}

//Personal.AI order the ending
