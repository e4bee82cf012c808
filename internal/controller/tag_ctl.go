package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"product_api_v1_202601/internal/api/dto"
	"product_api_v1_202601/internal/middleware"
	"product_api_v1_202601/internal/service"
)

// ==================== TagController 标签控制器 ====================

// TagController 标签控制器
type TagController struct {
	tagService *service.TagService
}

// NewTagController 创建标签控制器
func NewTagController(tagService *service.TagService) *TagController {
	return &TagController{tagService: tagService}
}

// List 标签列表
// @Summary 标签列表（仅本人）
// @Tags Tag
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.TagListResponse
// @Failure 401 {object} map[string]interface{}
// @Router /tags [get]
func (c *TagController) List(ctx *gin.Context) {
	userID := middleware.GetUserID(ctx)

	resp, err := c.tagService.List(ctx.Request.Context(), userID)
	if err != nil {
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

// Patch 重命名标签
// @Summary 重命名标签
// @Tags Tag
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "标签 ID"
// @Param request body dto.UpdateTagRequest true "标签名"
// @Success 200 {object} dto.TagInfo
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /tags/{id} [patch]
func (c *TagController) Patch(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	var req dto.UpdateTagRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	userID := middleware.GetUserID(ctx)

	tag, err := c.tagService.Update(ctx.Request.Context(), userID, id, &req)
	if err != nil {
		respondTagErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "更新成功",
		"data":    tag,
	})
}

// Delete 删除标签
// @Summary 删除标签（自动从商品上解除关联）
// @Tags Tag
// @Security BearerAuth
// @Param id path int true "标签 ID"
// @Success 204
// @Failure 404 {object} map[string]interface{}
// @Router /tags/{id} [delete]
func (c *TagController) Delete(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	userID := middleware.GetUserID(ctx)

	if err := c.tagService.Delete(ctx.Request.Context(), userID, id); err != nil {
		respondTagErr(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// respondTagErr 标签业务错误到 HTTP 状态码的映射
func respondTagErr(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTagNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": err.Error(),
		})
	case errors.Is(err, service.ErrTagExists):
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
