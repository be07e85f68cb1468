package writer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go/writer"

	appconfig "fundflow/config"
	"fundflow/logger"
	"fundflow/models"
)

// ArtifactWriter persists one scan's outputs: the raw feed snapshot, the
// ranked shortlist and the evaluated expectancy table. Files land under
// <output.dir>/<date>/<scan id>/ and are optionally mirrored to S3.
type ArtifactWriter struct {
	config   *appconfig.Config
	s3Client *s3Uploader
	log      *logger.Log
	scanID   string
	dir      string
	keyBase  string
}

func NewArtifactWriter(cfg *appconfig.Config) (*ArtifactWriter, error) {
	log := logger.GetLogger()

	scanID := uuid.New().String()
	now := time.Now().UTC()
	dir := filepath.Join(cfg.Output.Dir, now.Format("2006-01-02"), scanID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}

	w := &ArtifactWriter{
		config:  cfg,
		log:     log,
		scanID:  scanID,
		dir:     dir,
		keyBase: fmt.Sprintf("scans/date=%s/scan=%s", now.Format("2006-01-02"), scanID),
	}

	if cfg.Storage.S3.Enabled {
		s3Client, err := newS3Uploader(cfg)
		if err != nil {
			return nil, err
		}
		w.s3Client = s3Client
	}

	log.WithComponent("writer").WithFields(logger.Fields{
		"scan_id":    scanID,
		"output_dir": dir,
		"s3_enabled": cfg.Storage.S3.Enabled,
	}).Info("artifact writer initialized")

	return w, nil
}

// ScanID identifies all artifacts of this run.
func (w *ArtifactWriter) ScanID() string { return w.scanID }

// Dir is the local directory this scan writes into.
func (w *ArtifactWriter) Dir() string { return w.dir }

// WriteFeedSnapshot persists the untouched feed body.
func (w *ArtifactWriter) WriteFeedSnapshot(ctx context.Context, raw []byte) error {
	return w.persist(ctx, "data.json", raw, "application/json")
}

// WriteShortlist persists the ranked opportunities before evaluation so a
// scan can be replayed from disk.
func (w *ArtifactWriter) WriteShortlist(ctx context.Context, opps []models.Opportunity) error {
	if !w.config.Output.Parquet.Enabled {
		return nil
	}

	path := filepath.Join(w.dir, "shortlist.parquet")
	err := writeParquetFile(path, new(shortlistRow), func(pw *writer.ParquetWriter) error {
		for _, opp := range opps {
			if err := pw.Write(toShortlistRow(opp)); err != nil {
				return fmt.Errorf("write shortlist row: %w", err)
			}
		}
		return nil
	}, w.config.Output.Parquet.Compression)
	if err != nil {
		return err
	}
	return w.finish(ctx, path, "shortlist.parquet", len(opps))
}

// WriteExpectancy persists the evaluated table as parquet and, when
// enabled, a flat CSV with empty cells for absent values.
func (w *ArtifactWriter) WriteExpectancy(ctx context.Context, records []models.ExpectancyRecord) error {
	if w.config.Output.Parquet.Enabled {
		path := filepath.Join(w.dir, "expectancy.parquet")
		err := writeParquetFile(path, new(expectancyRow), func(pw *writer.ParquetWriter) error {
			for _, rec := range records {
				if err := pw.Write(toExpectancyRow(rec)); err != nil {
					return fmt.Errorf("write expectancy row: %w", err)
				}
			}
			return nil
		}, w.config.Output.Parquet.Compression)
		if err != nil {
			return err
		}
		if err := w.finish(ctx, path, "expectancy.parquet", len(records)); err != nil {
			return err
		}
	}

	if w.config.Output.CSV.Enabled {
		path := filepath.Join(w.dir, "expectancy.csv")
		if err := writeExpectancyCSV(path, records); err != nil {
			return err
		}
		if err := w.finish(ctx, path, "expectancy.csv", len(records)); err != nil {
			return err
		}
	}

	return nil
}

// persist writes one in-memory artifact to disk and mirrors it.
func (w *ArtifactWriter) persist(ctx context.Context, name string, data []byte, contentType string) error {
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	logger.IncrementArtifactWrite(int64(len(data)))

	w.log.WithComponent("writer").WithFields(logger.Fields{
		"artifact":  name,
		"file_size": len(data),
	}).Info("artifact written")

	if w.s3Client != nil {
		return w.s3Client.upload(ctx, w.keyBase+"/"+name, data, contentType)
	}
	return nil
}

// finish accounts for an artifact already on disk and mirrors it.
func (w *ArtifactWriter) finish(ctx context.Context, path, name string, rows int) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}
	logger.IncrementArtifactWrite(info.Size())

	w.log.WithComponent("writer").WithFields(logger.Fields{
		"artifact":  name,
		"file_size": info.Size(),
		"rows":      rows,
	}).Info("artifact written")

	if w.s3Client != nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s for upload: %w", name, err)
		}
		return w.s3Client.upload(ctx, w.keyBase+"/"+name, data, "application/octet-stream")
	}
	return nil
}
