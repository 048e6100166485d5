package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catalog/backend/internal/domain/media"
	"github.com/catalog/backend/internal/domain/shared"
	"github.com/catalog/backend/internal/infrastructure/persistence/models"
)

// GormAssetRepository implements media.AssetRepository using GORM
type GormAssetRepository struct {
	db *gorm.DB
}

// NewGormAssetRepository creates a new GormAssetRepository
func NewGormAssetRepository(db *gorm.DB) *GormAssetRepository {
	return &GormAssetRepository{db: db}
}

// ==================== AssetReader Interface ====================

// FindByID finds a record by its ID
func (r *GormAssetRepository) FindByID(ctx context.Context, id uuid.UUID) (*media.Asset, error) {
	var model models.MediaFileModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByKey finds the record that references key in any derivative slot
func (r *GormAssetRepository) FindByKey(ctx context.Context, tier media.Tier, key string) (*media.Asset, error) {
	var model models.MediaFileModel
	if err := r.byKey(ctx, tier, key).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ==================== AssetFinder Interface ====================

// List returns one page of records and the total number of matches.
// Records are ordered by filter.SortBy, newest first by default.
func (r *GormAssetRepository) List(ctx context.Context, filter media.AssetFilter) ([]media.Asset, int64, error) {
	filter = filter.Normalize()

	query := r.db.WithContext(ctx).Model(&models.MediaFileModel{})
	if filter.PoolOnly {
		query = query.Where("is_in_media_pool = ?", true)
	}
	if filter.Source != "" {
		query = query.Where("source = ?", string(filter.Source))
	}
	if filter.Tier != "" {
		query = query.Where("tier = ?", filter.Tier.String())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var fileModels []models.MediaFileModel
	order := ValidateSortField(filter.SortBy, MediaFileSortFields, "created_at")
	dir := "DESC"
	if filter.SortAsc {
		dir = "ASC"
	}
	if err := query.
		Order(order + " " + dir).
		Order("id " + dir).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&fileModels).Error; err != nil {
		return nil, 0, err
	}

	assets := make([]media.Asset, len(fileModels))
	for i := range fileModels {
		assets[i] = *fileModels[i].ToDomain()
	}
	return assets, total, nil
}

// ExistsByKey reports whether any record references key
func (r *GormAssetRepository) ExistsByKey(ctx context.Context, tier media.Tier, key string) (bool, error) {
	var count int64
	if err := r.byKey(ctx, tier, key).Model(&models.MediaFileModel{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ==================== AssetWriter Interface ====================

// Save creates or updates a record
func (r *GormAssetRepository) Save(ctx context.Context, asset *media.Asset) error {
	model := models.MediaFileModelFromDomain(asset)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes a record
func (r *GormAssetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.MediaFileModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormAssetRepository) byKey(ctx context.Context, tier media.Tier, key string) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("tier = ?", tier.String()).
		Where("(key_original = ? OR key_large = ? OR key_medium = ? OR key_thumb = ?)", key, key, key, key)
}

// Ensure GormAssetRepository implements media.AssetRepository
var _ media.AssetRepository = (*GormAssetRepository)(nil)
