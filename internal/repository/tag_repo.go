package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"product_api_v1_202601/internal/model"
)

// ==================== TagRepository 标签仓库 ====================

// TagRepository 标签仓库接口
type TagRepository interface {
	// GetOrCreate 按 (user_id, name) 查找标签，不存在则创建
	// 依赖 idx_tag_owner_name 唯一索引，并发调用收敛到同一行
	// 返回值 created 表示本次调用是否真正插入了新行
	GetOrCreate(ctx context.Context, userID int64, name string) (tag *model.Tag, created bool, err error)

	GetByIDAndUser(ctx context.Context, id, userID int64) (*model.Tag, error)
	GetByNameAndUser(ctx context.Context, userID int64, name string) (*model.Tag, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Tag, error)
	Update(ctx context.Context, tag *model.Tag) error
	Delete(ctx context.Context, id, userID int64) error

	WithTx(tx *gorm.DB) TagRepository
}

// ==================== 仓储实现 ====================

type tagRepo struct {
	db *gorm.DB
}

// NewTagRepository 创建标签仓库
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepo{db: db}
}

func (r *tagRepo) GetOrCreate(ctx context.Context, userID int64, name string) (*model.Tag, bool, error) {
	tag := model.Tag{UserID: userID, Name: name}

	// INSERT ... ON CONFLICT DO NOTHING
	// 撞上唯一索引时不报错，由数据库保证至多一行
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "name"}},
			DoNothing: true,
		}).
		Create(&tag)
	if result.Error != nil {
		return nil, false, result.Error
	}
	created := result.RowsAffected > 0

	// 冲突分支拿不到已有行的 ID，统一回查取权威行
	var existing model.Tag
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, name).
		First(&existing).Error
	if err != nil {
		return nil, false, err
	}
	return &existing, created, nil
}

func (r *tagRepo) GetByIDAndUser(ctx context.Context, id, userID int64) (*model.Tag, error) {
	var tag model.Tag
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepo) GetByNameAndUser(ctx context.Context, userID int64, name string) (*model.Tag, error) {
	var tag model.Tag
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, name).
		First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepo) ListByUser(ctx context.Context, userID int64) ([]model.Tag, error) {
	var tags []model.Tag
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name DESC").
		Find(&tags).Error
	return tags, err
}

func (r *tagRepo) Update(ctx context.Context, tag *model.Tag) error {
	return r.db.WithContext(ctx).Save(tag).Error
}

// Delete 删除标签并解除与所有商品的关联
// 物理删除：软删除的残留行会占住 (user_id, name) 唯一索引，
// 导致同名标签无法再 get-or-create
func (r *tagRepo) Delete(ctx context.Context, id, userID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM product_tags WHERE tag_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Unscoped().
			Where("id = ? AND user_id = ?", id, userID).
			Delete(&model.Tag{}).Error
	})
}

func (r *tagRepo) WithTx(tx *gorm.DB) TagRepository {
	return &tagRepo{db: tx}
}
