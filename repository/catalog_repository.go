package repository

import (
	"context"
	"path/filepath"
	"strings"

	"loraset/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogRepository 样本目录数据访问接口
type CatalogRepository interface {
	// Sync 写入或更新数据集的全部样本，返回写入行数
	Sync(ctx context.Context, dataset string, samples []*model.Sample, pos model.TagPosition) (int, error)
	// AttachBundles 记录每个已预处理样本的张量文件
	AttachBundles(ctx context.Context, dataset string, bundles []string) error
	List(ctx context.Context, f model.CatalogFilter) ([]*model.CatalogEntry, error)
	Datasets(ctx context.Context) ([]string, error)
}

// gormCatalogRepository GORM 实现
type gormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository 创建 GORM 样本目录仓库
func NewGormCatalogRepository(db *gorm.DB) CatalogRepository {
	return &gormCatalogRepository{db: db}
}

func (r *gormCatalogRepository) Sync(ctx context.Context, dataset string, samples []*model.Sample, pos model.TagPosition) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	entries := make([]*model.CatalogEntry, 0, len(samples))
	for _, s := range samples {
		entries = append(entries, model.NewCatalogEntry(dataset, s, pos))
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "dataset"}, {Name: "sample_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"audio_path", "filename", "caption", "bpm", "keyscale", "time_signature",
			"duration", "language", "is_instrumental", "labeled", "updated_at",
		}),
	}).CreateInBatches(entries, 200).Error
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (r *gormCatalogRepository) AttachBundles(ctx context.Context, dataset string, bundles []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, b := range bundles {
			id := strings.TrimSuffix(filepath.Base(b), filepath.Ext(b))
			err := tx.Model(&model.CatalogEntry{}).
				Where("dataset = ? AND sample_id = ?", dataset, id).
				Update("bundle", b).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *gormCatalogRepository) List(ctx context.Context, f model.CatalogFilter) ([]*model.CatalogEntry, error) {
	q := r.db.WithContext(ctx).Model(&model.CatalogEntry{})
	if f.Dataset != "" {
		q = q.Where("dataset = ?", f.Dataset)
	}
	if f.Language != "" {
		q = q.Where("language = ?", f.Language)
	}
	if f.LabeledOnly {
		q = q.Where("labeled = ?", true)
	}
	if f.Instrumental != nil {
		q = q.Where("is_instrumental = ?", *f.Instrumental)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var entries []*model.CatalogEntry
	err := q.Order("dataset, filename").Find(&entries).Error
	return entries, err
}

func (r *gormCatalogRepository) Datasets(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&model.CatalogEntry{}).
		Distinct("dataset").
		Order("dataset").
		Pluck("dataset", &names).Error
	return names, err
}
