package dto

// ==================== 标签 ====================

// TagInfo 标签信息
type TagInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TagInput 商品请求中内嵌的标签描述
type TagInput struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}

// UpdateTagRequest 更新标签请求
type UpdateTagRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}

// TagListResponse 标签列表响应
type TagListResponse struct {
	List  []*TagInfo `json:"list"`
	Total int64      `json:"total"`
}
