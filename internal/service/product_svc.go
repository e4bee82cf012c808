package service

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"product_api_v1_202601/internal/api/dto"
	"product_api_v1_202601/internal/model"
	"product_api_v1_202601/internal/repository"
	"product_api_v1_202601/pkg/utils"
)

// 价格格式：非负，最多两位小数
var priceRe = regexp.MustCompile(`^\d{1,8}(\.\d{1,2})?$`)

// 上传图片大小上限
const maxImageSize = 5 << 20 // 5MB

// ==================== ProductService 商品服务 ====================

// ProductService 商品服务
type ProductService struct {
	productRepo repository.ProductRepository
	tagRepo     repository.TagRepository
	storage     StorageProvider
}

// NewProductService 创建商品服务
func NewProductService(productRepo repository.ProductRepository, tagRepo repository.TagRepository, storage StorageProvider) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		tagRepo:     tagRepo,
		storage:     storage,
	}
}

// ==================== CRUD ====================

// Create 创建商品，内嵌标签按 (owner, name) get-or-create 后关联
func (s *ProductService) Create(ctx context.Context, userID int64, req *dto.CreateProductRequest) (*dto.ProductDetail, error) {
	if !priceRe.MatchString(req.Price) {
		return nil, ErrInvalidPrice
	}

	product := &model.Product{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
	}

	err := s.productRepo.Transaction(ctx, func(tx *gorm.DB) error {
		pr := s.productRepo.WithTx(tx)
		tr := s.tagRepo.WithTx(tx)

		if err := pr.Create(ctx, product); err != nil {
			return err
		}
		if len(req.Tags) == 0 {
			return nil
		}
		tags, err := s.resolveTags(ctx, tr, userID, req.Tags)
		if err != nil {
			return err
		}
		return pr.ReplaceTags(ctx, product, tags)
	})
	if err != nil {
		return nil, err
	}

	return s.GetDetail(ctx, userID, product.ID)
}

// GetDetail 获取商品详情，非本人商品按不存在处理
func (s *ProductService) GetDetail(ctx context.Context, userID, id int64) (*dto.ProductDetail, error) {
	product, err := s.productRepo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return s.toProductDetail(product), nil
}

// Update 全量更新 (PUT)：标量字段整体覆盖
// tags 为 nil 保持关联不变，显式提供则整体替换（空数组清空）
func (s *ProductService) Update(ctx context.Context, userID, id int64, req *dto.UpdateProductRequest) (*dto.ProductDetail, error) {
	if !priceRe.MatchString(req.Price) {
		return nil, ErrInvalidPrice
	}

	product, err := s.productRepo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	product.Title = req.Title
	product.Description = req.Description
	product.Price = req.Price

	err = s.productRepo.Transaction(ctx, func(tx *gorm.DB) error {
		pr := s.productRepo.WithTx(tx)
		tr := s.tagRepo.WithTx(tx)

		if err := pr.Update(ctx, product); err != nil {
			return err
		}
		if req.Tags == nil {
			return nil
		}
		tags, err := s.resolveTags(ctx, tr, userID, req.Tags)
		if err != nil {
			return err
		}
		return pr.ReplaceTags(ctx, product, tags)
	})
	if err != nil {
		return nil, err
	}

	return s.GetDetail(ctx, userID, id)
}

// Patch 部分更新 (PATCH)：缺省字段保持原值
// tags 缺省不动关联，tags: [] 清空，非空整体替换（先清后建，不做合并）
func (s *ProductService) Patch(ctx context.Context, userID, id int64, req *dto.PatchProductRequest) (*dto.ProductDetail, error) {
	if req.Price != nil && !priceRe.MatchString(*req.Price) {
		return nil, ErrInvalidPrice
	}

	product, err := s.productRepo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, ErrTitleRequired
		}
		product.Title = *req.Title
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}

	err = s.productRepo.Transaction(ctx, func(tx *gorm.DB) error {
		pr := s.productRepo.WithTx(tx)
		tr := s.tagRepo.WithTx(tx)

		if err := pr.Update(ctx, product); err != nil {
			return err
		}
		if req.Tags == nil {
			return nil
		}
		tags, err := s.resolveTags(ctx, tr, userID, *req.Tags)
		if err != nil {
			return err
		}
		return pr.ReplaceTags(ctx, product, tags)
	})
	if err != nil {
		return nil, err
	}

	return s.GetDetail(ctx, userID, id)
}

// Delete 删除商品
func (s *ProductService) Delete(ctx context.Context, userID, id int64) error {
	product, err := s.productRepo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	return s.productRepo.Delete(ctx, id, userID)
}

// List 商品列表，可按标签 ID 过滤（命中任意一个即返回）
func (s *ProductService) List(ctx context.Context, userID int64, req *dto.ProductListRequest) (*dto.ProductListResponse, error) {
	tagIDs, err := parseTagFilter(req.Tags)
	if err != nil {
		return nil, err
	}

	products, total, err := s.productRepo.List(ctx, repository.ProductFilter{
		UserID:   userID,
		TagIDs:   tagIDs,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	list := make([]*dto.ProductInfo, 0, len(products))
	for i := range products {
		list = append(list, s.toProductInfo(&products[i]))
	}
	return &dto.ProductListResponse{List: list, Total: total}, nil
}

// ==================== 图片 ====================

// UploadImage 保存上传的图片并更新商品图片路径
func (s *ProductService) UploadImage(ctx context.Context, userID, id int64, filename string, data []byte) (*dto.ProductImageResponse, error) {
	product, err := s.productRepo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if len(data) == 0 {
		return nil, ErrInvalidImage
	}
	if len(data) > maxImageSize {
		return nil, ErrImageTooLarge
	}
	ext, contentType, err := utils.ValidateImageExt(filename)
	if err != nil {
		return nil, ErrInvalidImage
	}
	// 内容嗅探：扩展名合法但字节不是图片的文件一律拒绝
	if _, err := utils.DetectImageType(data); err != nil {
		return nil, ErrInvalidImage
	}

	storagePath := utils.ProductImagePath(utils.RandomImageName(ext))
	url, err := s.storage.Upload(ctx, data, storagePath, contentType)
	if err != nil {
		return nil, err
	}

	// 替换旧图，旧文件尽力删除
	if product.ImagePath != "" {
		_ = s.storage.Delete(ctx, product.ImagePath)
	}

	if err := s.productRepo.UpdateImagePath(ctx, id, url); err != nil {
		return nil, err
	}
	return &dto.ProductImageResponse{ID: id, Image: url}, nil
}

// ImportImage 从远程 URL 拉取图片并保存
// 先确认商品归属再外呼，避免被非本人请求当作拉取跳板
func (s *ProductService) ImportImage(ctx context.Context, userID, id int64, sourceURL string) (*dto.ProductImageResponse, error) {
	product, err := s.productRepo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	data, contentType, err := utils.FetchImage(ctx, sourceURL)
	if err != nil {
		return nil, ErrInvalidImage
	}

	// 以 Content-Type 推断扩展名
	filename := "imported.jpg"
	switch contentType {
	case "image/png":
		filename = "imported.png"
	case "image/webp":
		filename = "imported.webp"
	}
	return s.UploadImage(ctx, userID, id, filename, data)
}

// ==================== 内部辅助 ====================

// resolveTags 标签解析：逐个 get-or-create 到当前用户名下
func (s *ProductService) resolveTags(ctx context.Context, tagRepo repository.TagRepository, userID int64, inputs []dto.TagInput) ([]model.Tag, error) {
	tags := make([]model.Tag, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		if seen[in.Name] {
			continue
		}
		seen[in.Name] = true

		tag, _, err := tagRepo.GetOrCreate(ctx, userID, in.Name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

// parseTagFilter 解析逗号分隔的标签 ID 列表
func parseTagFilter(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, ErrInvalidTagFilter
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *ProductService) toProductInfo(product *model.Product) *dto.ProductInfo {
	return &dto.ProductInfo{
		ID:        product.ID,
		Title:     product.Title,
		Price:     formatPrice(product.Price),
		Tags:      toTagInfos(product.Tags),
		CreatedAt: product.CreatedAt,
	}
}

func (s *ProductService) toProductDetail(product *model.Product) *dto.ProductDetail {
	return &dto.ProductDetail{
		ID:          product.ID,
		Title:       product.Title,
		Description: product.Description,
		Price:       formatPrice(product.Price),
		Image:       product.ImagePath,
		Tags:        toTagInfos(product.Tags),
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
}

// formatPrice 出口统一两位小数
// numeric 列经不同驱动取回的字面值不一致（如 "1.00" 读回 "1"），不能直接透传
func formatPrice(raw string) string {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func toTagInfos(tags []model.Tag) []*dto.TagInfo {
	infos := make([]*dto.TagInfo, 0, len(tags))
	for i := range tags {
		infos = append(infos, &dto.TagInfo{ID: tags[i].ID, Name: tags[i].Name})
	}
	return infos
}

// ==================== 业务错误 ====================

var (
	ErrProductNotFound  = errors.New("商品不存在")
	ErrInvalidPrice     = errors.New("价格格式错误")
	ErrTitleRequired    = errors.New("标题不能为空")
	ErrInvalidTagFilter = errors.New("标签过滤参数错误")
	ErrInvalidImage     = errors.New("图片文件无效")
	ErrImageTooLarge    = errors.New("图片文件过大")
)
