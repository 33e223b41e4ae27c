package isomer

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/IsomerScope/internal/domain/stereo"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/internal/infrastructure/storage/minio"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

// ExportPrefix is the object-key root of every export.
const ExportPrefix = "exports/"

// ReportObject is the object name of the JSON report inside an export.
const ReportObject = "report.json"

type reportIsomer struct {
	Index       int                 `json:"index"`
	Label       string              `json:"label"`
	Heading     string              `json:"heading"`
	SMILES      string              `json:"smiles"`
	Descriptors []stereo.Descriptor `json:"descriptors,omitempty"`
	Mirrored    bool                `json:"mirrored"`
	Image       string              `json:"image"`
	MolBlock    string              `json:"molblock"`
	Molblock3D  string              `json:"molblock_3d,omitempty"`
}

type report struct {
	ExportID   string         `json:"export_id"`
	AnalysisID string         `json:"analysis_id"`
	Name       string         `json:"name,omitempty"`
	SMILES     string         `json:"smiles"`
	Source     string         `json:"source"`
	Summary    string         `json:"summary"`
	Allenes    int            `json:"allene_count"`
	Isomers    []reportIsomer `json:"isomers"`
	CreatedAt  time.Time      `json:"created_at"`
}

// imageObject names the PNG of the isomer with 1-based index.
func imageObject(index int) string {
	return fmt.Sprintf("isomer-%d.png", index)
}

// Export uploads report.json and one PNG per isomer under
// exports/{export id}/ and returns presigned download URLs keyed by object
// name. A failed export removes the objects it already wrote.
func (s *serviceImpl) Export(ctx context.Context, result *AnalysisResult) (*ExportResult, error) {
	if s.storage == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "export storage is not configured")
	}
	if result == nil || len(result.Isomers) == 0 {
		return nil, errors.New(errors.ErrCodeBadRequest, "nothing to export")
	}

	start := time.Now()
	id := uuid.New().String()
	prefix := ExportPrefix + id + "/"
	bucket := s.storage.Bucket()

	doc := report{
		ExportID:   id,
		AnalysisID: result.ID,
		Name:       result.Name,
		SMILES:     result.SMILES,
		Source:     result.Source,
		Summary:    result.Summary,
		Allenes:    result.AlleneCount,
		CreatedAt:  time.Now().UTC(),
	}
	objects := map[string]minio.Object{}
	for _, iso := range result.Isomers {
		if len(iso.PNG) == 0 {
			return nil, errors.Newf(errors.ErrCodeBadRequest, "isomer %d has no image", iso.Index)
		}
		ri := reportIsomer{
			Index:       iso.Index,
			Label:       iso.Label,
			Heading:     iso.Heading,
			SMILES:      iso.SMILES,
			Descriptors: iso.Descriptors,
			Mirrored:    iso.Mirrored,
			Image:       imageObject(iso.Index),
			MolBlock:    iso.MolBlock,
		}
		if iso.Viewer != nil {
			ri.Molblock3D = iso.Viewer.MolBlock
		}
		doc.Isomers = append(doc.Isomers, ri)
		objects[ri.Image] = minio.Object{
			Key:         prefix + ri.Image,
			Data:        iso.PNG,
			ContentType: "image/png",
		}
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal report")
	}
	objects[ReportObject] = minio.Object{
		Key:         prefix + ReportObject,
		Data:        raw,
		ContentType: "application/json",
		Metadata:    map[string]string{"analysis-id": result.ID},
	}

	urls := make(map[string]string, len(objects))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for name, obj := range objects {
		name, obj := name, obj
		g.Go(func() error {
			if err := s.storage.Put(gctx, obj); err != nil {
				return err
			}
			u, err := s.storage.Link(gctx, obj.Key)
			if err != nil {
				return err
			}
			mu.Lock()
			urls[name] = u
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.metrics.ExportsTotal.WithLabelValues("failure").Inc()
		s.logger.Error("export failed", logging.String("export_id", id), logging.Err(err))
		// Drop whatever part of the bundle made it to the bucket.
		if n, rerr := s.storage.RemovePrefix(context.WithoutCancel(ctx), prefix); rerr != nil {
			s.logger.Warn("partial export left behind", logging.String("prefix", prefix), logging.Err(rerr))
		} else if n > 0 {
			s.logger.Debug("partial export removed", logging.String("prefix", prefix), logging.Int("objects", n))
		}
		return nil, err
	}

	s.metrics.ExportsTotal.WithLabelValues("success").Inc()
	s.logger.Info("analysis exported",
		logging.String("export_id", id),
		logging.String("prefix", path.Clean(prefix)),
		logging.Int("objects", len(urls)),
		logging.Duration("elapsed", time.Since(start)))

	return &ExportResult{
		ID:        id,
		Bucket:    bucket,
		Prefix:    prefix,
		URLs:      urls,
		CreatedAt: doc.CreatedAt,
	}, nil
}

//Personal.AI order the ending
