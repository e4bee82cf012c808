package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"product_api_v1_202601/internal/api/dto"
	"product_api_v1_202601/internal/middleware"
	"product_api_v1_202601/internal/model"
	"product_api_v1_202601/internal/repository"
)

// 登录失败后的冷却时间
const loginFailCooldown = 3 * time.Second

// ==================== UserService 用户服务 ====================

// UserService 用户服务
type UserService struct {
	userRepo repository.UserRepository
	limiter  *middleware.LoginLimiter
}

// NewUserService 创建用户服务
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
		limiter:  middleware.GetLoginLimiter(),
	}
}

// ==================== 注册 ====================

// Register 注册新用户
func (s *UserService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserInfo, error) {
	user, err := s.createUser(ctx, req.Username, req.Email, req.Password, false)
	if err != nil {
		return nil, err
	}
	return s.toUserInfo(user), nil
}

// CreateSuperuser 创建超级管理员 (staff + superuser)
func (s *UserService) CreateSuperuser(ctx context.Context, username, email, password string) (*dto.UserInfo, error) {
	user, err := s.createUser(ctx, username, email, password, true)
	if err != nil {
		return nil, err
	}
	return s.toUserInfo(user), nil
}

// createUser 统一的用户工厂，入库前完成校验/归一化/加密
func (s *UserService) createUser(ctx context.Context, username, email, password string, super bool) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	// 检查唯一性
	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameExists
	}
	exists, err = s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	// 加密密码
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:    username,
		Email:       email,
		Password:    string(hashed),
		IsActive:    true,
		IsStaff:     super,
		IsSuperuser: super,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// NormalizeEmail 邮箱归一化：域名段转小写，本地段保持原样
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}

// ==================== 认证相关 ====================

// Login 校验口令并签发 Token 对
// 所有失败统一返回 ErrInvalidCredentials，不泄露用户是否存在
func (s *UserService) Login(ctx context.Context, req *dto.TokenRequest) (*dto.TokenResponse, error) {
	// 失败冷却检查
	if check := s.limiter.Check(req.Username, loginFailCooldown); !check.Allowed {
		return nil, ErrTooManyAttempts
	}

	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		s.limiter.Fail(req.Username)
		return nil, ErrInvalidCredentials
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		s.limiter.Fail(req.Username)
		return nil, ErrInvalidCredentials
	}
	s.limiter.Reset(req.Username)

	// 生成 Token
	accessToken, refreshToken, err := middleware.GenerateTokenPair(user.ID, user.Username, user.IsStaff)
	if err != nil {
		return nil, err
	}

	cfg := middleware.GetJWTConfig()
	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(cfg.AccessTokenTTL),
		User:         s.toUserInfo(user),
	}, nil
}

// RefreshToken 刷新 Token
func (s *UserService) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.RefreshTokenResponse, error) {
	claims, err := middleware.ParseToken(req.RefreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Subject != "refresh" {
		return nil, ErrInvalidToken
	}

	// 确认用户仍然有效
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidToken
	}

	accessToken, refreshToken, err := middleware.GenerateTokenPair(user.ID, user.Username, user.IsStaff)
	if err != nil {
		return nil, err
	}

	cfg := middleware.GetJWTConfig()
	return &dto.RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(cfg.AccessTokenTTL),
	}, nil
}

// ==================== 个人资料 ====================

// GetProfile 获取当前用户信息
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return s.toUserInfo(user), nil
}

// UpdateProfile 更新当前用户资料，缺省字段保持原值
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if req.Email != nil {
		email := NormalizeEmail(*req.Email)
		if email == "" {
			return nil, ErrEmailRequired
		}
		if email != user.Email {
			exists, err := s.userRepo.ExistsByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, ErrEmailExists
			}
			user.Email = email
		}
	}

	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashed)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.toUserInfo(user), nil
}

// ==================== 用户管理（员工） ====================

// ListUsers 用户列表
func (s *UserService) ListUsers(ctx context.Context, req *dto.UserListRequest) (*dto.UserListResponse, error) {
	users, total, err := s.userRepo.List(ctx, repository.UserFilter{
		Keyword:  req.Keyword,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	list := make([]*dto.UserInfo, 0, len(users))
	for i := range users {
		list = append(list, s.toUserInfo(&users[i]))
	}
	return &dto.UserListResponse{List: list, Total: total}, nil
}

// ==================== 内部辅助 ====================

func (s *UserService) toUserInfo(user *model.User) *dto.UserInfo {
	return &dto.UserInfo{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		IsActive:    user.IsActive,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
		CreatedAt:   user.CreatedAt,
	}
}

// ==================== 业务错误 ====================

var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrTooManyAttempts    = errors.New("尝试过于频繁，请稍后再试")
	ErrInvalidToken       = errors.New("Token 无效")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrUsernameRequired   = errors.New("用户名不能为空")
	ErrEmailRequired      = errors.New("邮箱不能为空")
	ErrUsernameExists     = errors.New("用户名已存在")
	ErrEmailExists        = errors.New("邮箱已存在")
)
