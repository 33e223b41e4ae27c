// Package resolver turns compound names into SMILES strings by asking
// name-to-structure services in order.
package resolver

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/IsomerScope/internal/config"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

// Source names as reported in Resolution.Source.
const (
	SourceOPSIN   = "opsin"
	SourcePubChem = "pubchem"
)

// sharedLookupTimeout bounds a lookup that callers share. It runs detached
// from the caller that started it, so one caller leaving does not fail the
// others.
const sharedLookupTimeout = 30 * time.Second

// NotFoundMessage is the single user-facing message for every failed lookup.
const NotFoundMessage = "Compound not found. Please check the name."

// Resolution is a successfully resolved name.
type Resolution struct {
	Name   string `json:"name"`
	SMILES string `json:"smiles"`
	Source string `json:"source"`
	Cached bool   `json:"cached"`
}

// Source is one name-to-structure service.
type Source interface {
	Name() string
	Lookup(ctx context.Context, name string) (string, error)
}

// Resolver maps a compound name to a structure.
type Resolver interface {
	Resolve(ctx context.Context, name string) (*Resolution, error)
}

type chainResolver struct {
	sources []Source
	cache   Cache
	metrics *prometheus.AppMetrics
	logger  logging.Logger
	group   singleflight.Group
}

// NewResolver asks sources in order and returns the first SMILES found.
// cache and metrics may be nil.
func NewResolver(sources []Source, cache Cache, metrics *prometheus.AppMetrics, logger logging.Logger) Resolver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	return &chainResolver{
		sources: sources,
		cache:   cache,
		metrics: metrics,
		logger:  logger.Named("resolver"),
	}
}

// NewFromConfig wires OPSIN then PubChem.
func NewFromConfig(cfg config.ResolverConfig, cache Cache, metrics *prometheus.AppMetrics, logger logging.Logger) Resolver {
	sources := []Source{
		NewOPSINClient(cfg.OPSINBaseURL, cfg.OPSINTimeout, WithUserAgent(cfg.UserAgent)),
		NewPubChemClient(cfg.PubChemBaseURL, cfg.PubChemRateLimit,
			WithUserAgent(cfg.UserAgent), WithTimeout(cfg.PubChemTimeout)),
	}
	return NewResolver(sources, cache, metrics, logger)
}

// NormalizeName NFKC-folds and trims a name and collapses inner whitespace.
// Case is kept: stereodescriptor prefixes such as "D-" are case sensitive.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(name)), " ")
}

func (r *chainResolver) Resolve(ctx context.Context, name string) (*Resolution, error) {
	key := NormalizeName(name)
	if key == "" {
		return nil, errors.New(errors.ErrCodeBadRequest, "compound name is empty")
	}

	if r.cache != nil {
		if res, ok := r.cache.Get(ctx, key); ok {
			prometheus.RecordCacheAccess(r.metrics, r.cache.Kind(), true)
			out := *res
			out.Cached = true
			return &out, nil
		}
		prometheus.RecordCacheAccess(r.metrics, r.cache.Kind(), false)
	}

	ch := r.group.DoChan(key, func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()
		return r.lookup(lctx, key)
	})
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "name resolution abandoned").WithDetail(key)
	case out := <-ch:
		if out.Err != nil {
			return nil, out.Err
		}
		if out.Shared {
			r.logger.Debug("coalesced lookup", logging.String("name", key))
		}
		res := *(out.Val.(*Resolution))
		return &res, nil
	}
}

func (r *chainResolver) lookup(ctx context.Context, name string) (*Resolution, error) {
	for _, src := range r.sources {
		start := time.Now()
		smiles, err := src.Lookup(ctx, name)
		prometheus.RecordResolution(r.metrics, src.Name(), time.Since(start), err)
		if err != nil {
			r.logger.Debug("source failed",
				logging.String("source", src.Name()),
				logging.String("name", name),
				logging.Err(err))
			continue
		}

		res := &Resolution{Name: name, SMILES: smiles, Source: src.Name()}
		r.logger.Info("compound resolved",
			logging.String("source", src.Name()),
			logging.String("name", name),
			logging.String("smiles", smiles),
			logging.Duration("took", time.Since(start)))
		if r.cache != nil {
			r.cache.Set(ctx, name, res)
		}
		return res, nil
	}

	prometheus.RecordError(r.metrics, "resolver", string(errors.ErrCodeMoleculeNotFound))
	return nil, errors.New(errors.ErrCodeMoleculeNotFound, NotFoundMessage).WithDetail(name)
}

//Personal.AI order the ending
