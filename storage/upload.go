package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"

	"loraset/logger"
	"loraset/model"
	"loraset/repository"
)

const (
	contentTypeJSON        = "application/json"
	contentTypeSafetensors = "application/octet-stream"
)

// ObjectKey builds the object name for a file of a dataset run.
func ObjectKey(prefix, dataset, file string) string {
	return path.Join(strings.Trim(prefix, "/"), Slug(dataset), filepath.Base(file))
}

// Slug makes a dataset name safe to use as one object path segment.
func Slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	s := strings.Trim(b.String(), "._")
	if s == "" {
		return model.DefaultDatasetName
	}
	return s
}

// UploadResult reports an uploaded run.
type UploadResult struct {
	Objects []string
	Bytes   int64
}

// UploadRun uploads every bundle listed in the manifest at manifestPath, then the
// manifest itself, so a manifest in the bucket only ever points at uploaded bundles.
func (s *BundleStore) UploadRun(ctx context.Context, manifestPath string, progress func(object string, size int64)) (UploadResult, error) {
	var res UploadResult
	manifest, err := repository.LoadManifest(manifestPath)
	if err != nil {
		return res, err
	}
	dataset := manifest.Metadata.Name

	files := append([]string{}, manifest.Samples...)
	files = append(files, manifestPath)
	for _, f := range files {
		contentType := contentTypeSafetensors
		if strings.HasSuffix(f, ".json") {
			contentType = contentTypeJSON
		}
		key := ObjectKey(s.prefix, dataset, f)
		size, err := s.putFile(ctx, key, f, contentType)
		if err != nil {
			return res, err
		}
		res.Objects = append(res.Objects, key)
		res.Bytes += size
		if progress != nil {
			progress(key, size)
		}
	}

	logger.Info("uploaded preprocessed run",
		logger.String("bucket", s.bucket),
		logger.String("dataset", dataset),
		logger.Int("objects", len(res.Objects)),
		logger.Int64("bytes", res.Bytes))
	return res, nil
}

// UploadDataset uploads a dataset document next to its run.
func (s *BundleStore) UploadDataset(ctx context.Context, datasetName, datasetPath string) (string, error) {
	key := ObjectKey(s.prefix, datasetName, datasetPath)
	if _, err := s.putFile(ctx, key, datasetPath, contentTypeJSON); err != nil {
		return "", err
	}
	return key, nil
}

func (s *BundleStore) putFile(ctx context.Context, key, file, contentType string) (int64, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, fmt.Errorf("open %s: %v: %w", file, err, model.ErrIO)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %v: %w", file, err, model.ErrIO)
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, f, info.Size(), minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		logger.Error("failed to upload file",
			logger.String("object", key),
			logger.ErrorField(err))
		return 0, fmt.Errorf("upload %s: %w", key, err)
	}
	logger.Debug("uploaded file", logger.String("object", key), logger.Int64("size", info.Size()))
	return info.Size(), nil
}
