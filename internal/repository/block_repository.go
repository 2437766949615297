package repository

import (
	"context"
	"fmt"

	"github.com/Kilat-Lodge/service-reservation/internal/domain"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBlockRepository is the GORM-based implementation of BlockRepository.
type GormBlockRepository struct {
	db *gorm.DB
}

// NewGormBlockRepository creates a new GormBlockRepository.
func NewGormBlockRepository(db *gorm.DB) *GormBlockRepository {
	return &GormBlockRepository{db: db}
}

// ListBlocks returns every block ordered by start date.
func (r *GormBlockRepository) ListBlocks(ctx context.Context) ([]property.Block, error) {
	var models []BlockModel
	if err := r.db.WithContext(ctx).Order("start_date, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}
	blocks := make([]property.Block, len(models))
	for i := range models {
		blocks[i] = toDomainBlock(&models[i])
	}
	return blocks, nil
}

// SaveBlock persists a new block.
func (r *GormBlockRepository) SaveBlock(ctx context.Context, block property.Block) error {
	if err := r.db.WithContext(ctx).Create(toBlockModel(block)).Error; err != nil {
		return fmt.Errorf("failed to save block: %w", err)
	}
	return nil
}

// DeleteBlock removes a block.
func (r *GormBlockRepository) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&BlockModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete block: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("block", id.String())
	}
	return nil
}
