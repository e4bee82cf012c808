package dto

import "time"

// ==================== 商品创建/更新 ====================

// CreateProductRequest 创建商品请求
type CreateProductRequest struct {
	Title       string     `json:"title" binding:"required,max=255"`
	Description string     `json:"description"`
	Price       string     `json:"price" binding:"required"`
	Tags        []TagInput `json:"tags" binding:"omitempty,dive"`
}

// UpdateProductRequest 全量更新请求 (PUT)
type UpdateProductRequest struct {
	Title       string     `json:"title" binding:"required,max=255"`
	Description string     `json:"description"`
	Price       string     `json:"price" binding:"required"`
	Tags        []TagInput `json:"tags" binding:"omitempty,dive"`
}

// PatchProductRequest 部分更新请求 (PATCH)
// 指针区分 "字段缺省" 与 "显式置空"：
// tags 为 nil 不动关联，空切片清空关联，非空则整体替换
type PatchProductRequest struct {
	Title       *string     `json:"title" binding:"omitempty,max=255"`
	Description *string     `json:"description"`
	Price       *string     `json:"price"`
	Tags        *[]TagInput `json:"tags" binding:"omitempty,dive"`
}

// ==================== 商品响应 ====================

// ProductInfo 商品列表项（列表不含描述与图片）
type ProductInfo struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Price     string     `json:"price"`
	Tags      []*TagInfo `json:"tags"`
	CreatedAt time.Time  `json:"created_at"`
}

// ProductDetail 商品详情
type ProductDetail struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Price       string     `json:"price"`
	Image       string     `json:"image,omitempty"`
	Tags        []*TagInfo `json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ==================== 商品列表 ====================

// ProductListRequest 商品列表请求
// tags: 逗号分隔的标签 ID，命中任意一个即返回
type ProductListRequest struct {
	Tags     string `form:"tags"`
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
}

// ProductListResponse 商品列表响应
type ProductListResponse struct {
	List  []*ProductInfo `json:"list"`
	Total int64          `json:"total"`
}

// ==================== 图片 ====================

// ImportImageRequest 从远程 URL 导入图片请求
type ImportImageRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// ProductImageResponse 图片上传响应
type ProductImageResponse struct {
	ID    int64  `json:"id"`
	Image string `json:"image"`
}
