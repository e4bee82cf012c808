package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"product_api_v1_202601/internal/model"
)

// ==================== 接口定义 ====================

// ProductRepository 商品仓储接口
// 所有读写均以 (id, user_id) 为准，非本人的商品一律视为不存在
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByIDAndUser(ctx context.Context, id, userID int64) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	UpdateImagePath(ctx context.Context, id int64, path string) error
	Delete(ctx context.Context, id, userID int64) error
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)

	// ReplaceTags 整体替换商品的标签关联
	ReplaceTags(ctx context.Context, product *model.Product, tags []model.Tag) error

	// 过期清理
	PurgeDeletedBefore(ctx context.Context, cutoffDays int) ([]model.Product, error)

	// 事务
	WithTx(tx *gorm.DB) ProductRepository
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ==================== 过滤条件 ====================

// ProductFilter 商品过滤条件
type ProductFilter struct {
	UserID   int64
	TagIDs   []int64 // 命中任意一个标签即返回 (ANY 语义)
	Page     int
	PageSize int
}

// ==================== 仓储实现 ====================

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepo) GetByIDAndUser(ctx context.Context, id, userID int64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Tags").
		Where("id = ? AND user_id = ?", id, userID).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	// 只更新标量字段，标签关联走 ReplaceTags
	return r.db.WithContext(ctx).
		Model(product).
		Select("title", "description", "price").
		Updates(map[string]interface{}{
			"title":       product.Title,
			"description": product.Description,
			"price":       product.Price,
		}).Error
}

func (r *productRepo) UpdateImagePath(ctx context.Context, id int64, path string) error {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Update("image_path", path).Error
}

func (r *productRepo) Delete(ctx context.Context, id, userID int64) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Product{}).Error
}

func (r *productRepo) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	query := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("user_id = ?", filter.UserID)

	if len(filter.TagIDs) > 0 {
		// 子查询避免 JOIN + DISTINCT 对 Count/Preload 的干扰
		sub := r.db.Table("product_tags").
			Select("product_id").
			Where("tag_id IN ?", filter.TagIDs)
		query = query.Where("id IN (?)", sub)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := query.
		Preload("Tags").
		Order("id DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&products).Error

	return products, total, err
}

func (r *productRepo) ReplaceTags(ctx context.Context, product *model.Product, tags []model.Tag) error {
	return r.db.WithContext(ctx).
		Model(product).
		Association("Tags").
		Replace(&tags)
}

// PurgeDeletedBefore 物理清除软删除超过 cutoffDays 天的商品，返回被清除的行
func (r *productRepo) PurgeDeletedBefore(ctx context.Context, cutoffDays int) ([]model.Product, error) {
	cutoff := time.Now().AddDate(0, 0, -cutoffDays)

	var stale []model.Product
	err := r.db.WithContext(ctx).
		Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Find(&stale).Error
	if err != nil {
		return nil, err
	}
	if len(stale) == 0 {
		return nil, nil
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range stale {
			if err := tx.Exec("DELETE FROM product_tags WHERE product_id = ?", stale[i].ID).Error; err != nil {
				return err
			}
		}
		return tx.Unscoped().Delete(&stale).Error
	})
	if err != nil {
		return nil, err
	}
	return stale, nil
}

func (r *productRepo) WithTx(tx *gorm.DB) ProductRepository {
	return &productRepo{db: tx}
}

// Transaction 开启事务，fn 内用各仓库的 WithTx 参与同一事务
func (r *productRepo) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
