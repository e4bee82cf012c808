package controller

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"product_api_v1_202601/internal/api/dto"
	"product_api_v1_202601/internal/middleware"
	"product_api_v1_202601/internal/service"
)

// ==================== ProductController 商品控制器 ====================

// ProductController 商品控制器
type ProductController struct {
	productService *service.ProductService
}

// NewProductController 创建商品控制器
func NewProductController(productService *service.ProductService) *ProductController {
	return &ProductController{productService: productService}
}

// ==================== CRUD 接口 ====================

// List 商品列表
// @Summary 商品列表（仅本人），可按标签过滤
// @Tags Product
// @Produce json
// @Security BearerAuth
// @Param tags query string false "逗号分隔的标签 ID，命中任意一个即返回"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.ProductListResponse
// @Failure 401 {object} map[string]interface{}
// @Router /products [get]
func (c *ProductController) List(ctx *gin.Context) {
	var req dto.ProductListRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	userID := middleware.GetUserID(ctx)

	resp, err := c.productService.List(ctx.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTagFilter) {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": err.Error(),
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": resp,
	})
}

// Create 创建商品
// @Summary 创建商品
// @Tags Product
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateProductRequest true "商品信息"
// @Success 201 {object} dto.ProductDetail
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /products [post]
func (c *ProductController) Create(ctx *gin.Context) {
	var req dto.CreateProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	userID := middleware.GetUserID(ctx)

	product, err := c.productService.Create(ctx.Request.Context(), userID, &req)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "创建成功",
		"data":    product,
	})
}

// GetDetail 商品详情
// @Summary 商品详情
// @Tags Product
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品 ID"
// @Success 200 {object} dto.ProductDetail
// @Failure 404 {object} map[string]interface{}
// @Router /products/{id} [get]
func (c *ProductController) GetDetail(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	userID := middleware.GetUserID(ctx)

	product, err := c.productService.GetDetail(ctx.Request.Context(), userID, id)
	if err != nil {
		respondProductErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": product,
	})
}

// Update 全量更新商品
// @Summary 全量更新商品
// @Tags Product
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品 ID"
// @Param request body dto.UpdateProductRequest true "商品信息"
// @Success 200 {object} dto.ProductDetail
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /products/{id} [put]
func (c *ProductController) Update(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	userID := middleware.GetUserID(ctx)

	product, err := c.productService.Update(ctx.Request.Context(), userID, id, &req)
	if err != nil {
		respondProductErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "更新成功",
		"data":    product,
	})
}

// Patch 部分更新商品
// @Summary 部分更新商品（缺省字段不变；tags: [] 清空标签）
// @Tags Product
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品 ID"
// @Param request body dto.PatchProductRequest true "变更字段"
// @Success 200 {object} dto.ProductDetail
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /products/{id} [patch]
func (c *ProductController) Patch(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	var req dto.PatchProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	userID := middleware.GetUserID(ctx)

	product, err := c.productService.Patch(ctx.Request.Context(), userID, id, &req)
	if err != nil {
		respondProductErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "更新成功",
		"data":    product,
	})
}

// Delete 删除商品
// @Summary 删除商品
// @Tags Product
// @Security BearerAuth
// @Param id path int true "商品 ID"
// @Success 204
// @Failure 404 {object} map[string]interface{}
// @Router /products/{id} [delete]
func (c *ProductController) Delete(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	userID := middleware.GetUserID(ctx)

	if err := c.productService.Delete(ctx.Request.Context(), userID, id); err != nil {
		respondProductErr(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// ==================== 图片接口 ====================

// UploadImage 上传商品图片
// @Summary 上传商品图片 (multipart, 字段名 image)
// @Tags Product
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品 ID"
// @Param image formData file true "图片文件"
// @Success 200 {object} dto.ProductImageResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /products/{id}/image [post]
func (c *ProductController) UploadImage(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	fileHeader, err := ctx.FormFile("image")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "缺少图片文件: " + err.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "图片文件无法读取",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "图片文件无法读取",
		})
		return
	}

	userID := middleware.GetUserID(ctx)

	resp, err := c.productService.UploadImage(ctx.Request.Context(), userID, id, fileHeader.Filename, data)
	if err != nil {
		respondProductErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "上传成功",
		"data":    resp,
	})
}

// ImportImage 从远程 URL 导入商品图片
// @Summary 从远程 URL 导入商品图片
// @Tags Product
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品 ID"
// @Param request body dto.ImportImageRequest true "图片 URL"
// @Success 200 {object} dto.ProductImageResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /products/{id}/image/import [post]
func (c *ProductController) ImportImage(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	var req dto.ImportImageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	userID := middleware.GetUserID(ctx)

	resp, err := c.productService.ImportImage(ctx.Request.Context(), userID, id, req.URL)
	if err != nil {
		respondProductErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "导入成功",
		"data":    resp,
	})
}

// ==================== 辅助函数 ====================

// parseIDParam 解析路径中的数字 ID，非法时直接应答 400
func parseIDParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的 ID",
		})
		return 0, false
	}
	return id, true
}

// respondProductErr 商品业务错误到 HTTP 状态码的映射
// 非本人的商品按不存在应答，避免泄露他人数据
func respondProductErr(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": err.Error(),
		})
	case errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrInvalidImage),
		errors.Is(err, service.ErrImageTooLarge):
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
		})
	}
}
