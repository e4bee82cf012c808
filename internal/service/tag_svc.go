package service

import (
	"context"
	"errors"

	"product_api_v1_202601/internal/api/dto"
	"product_api_v1_202601/internal/repository"
)

// ==================== TagService 标签服务 ====================

// TagService 标签服务
type TagService struct {
	tagRepo repository.TagRepository
}

// NewTagService 创建标签服务
func NewTagService(tagRepo repository.TagRepository) *TagService {
	return &TagService{tagRepo: tagRepo}
}

// List 当前用户的全部标签
func (s *TagService) List(ctx context.Context, userID int64) (*dto.TagListResponse, error) {
	tags, err := s.tagRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	list := make([]*dto.TagInfo, 0, len(tags))
	for i := range tags {
		list = append(list, &dto.TagInfo{ID: tags[i].ID, Name: tags[i].Name})
	}
	return &dto.TagListResponse{List: list, Total: int64(len(list))}, nil
}

// Update 重命名标签，非本人标签按不存在处理
func (s *TagService) Update(ctx context.Context, userID, id int64, req *dto.UpdateTagRequest) (*dto.TagInfo, error) {
	tag, err := s.tagRepo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, ErrTagNotFound
	}

	if req.Name != tag.Name {
		// 改名不能撞上同一用户的既有标签，并发竞争由唯一索引兜底
		existing, err := s.tagRepo.GetByNameAndUser(ctx, userID, req.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != tag.ID {
			return nil, ErrTagExists
		}
		tag.Name = req.Name
		if err := s.tagRepo.Update(ctx, tag); err != nil {
			return nil, err
		}
	}

	return &dto.TagInfo{ID: tag.ID, Name: tag.Name}, nil
}

// Delete 删除标签并从所有商品上解除关联
func (s *TagService) Delete(ctx context.Context, userID, id int64) error {
	tag, err := s.tagRepo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return err
	}
	if tag == nil {
		return ErrTagNotFound
	}
	return s.tagRepo.Delete(ctx, id, userID)
}

// ==================== 业务错误 ====================

var (
	ErrTagNotFound = errors.New("标签不存在")
	ErrTagExists   = errors.New("标签名已存在")
)
