package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product_api_v1_202601/internal/model"
)

func TestUserRepo_CRUD(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &model.User{
		Username: "alice",
		Email:    "alice@ex.com",
		Password: "hashed",
		IsActive: true,
	}
	require.NoError(t, repo.Create(ctx, user))
	require.NotZero(t, user.ID)

	// 按 ID / 用户名 / 邮箱查询
	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)

	got, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)

	got, err = repo.GetByEmail(ctx, "alice@ex.com")
	require.NoError(t, err)
	require.NotNil(t, got)

	// 未命中返回 nil 而非错误
	got, err = repo.GetByUsername(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)

	// 更新
	got, _ = repo.GetByID(ctx, user.ID)
	got.Email = "new@ex.com"
	require.NoError(t, repo.Update(ctx, got))
	got, _ = repo.GetByEmail(ctx, "new@ex.com")
	assert.NotNil(t, got)

	// 密码单独更新
	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "rehashed"))
	got, _ = repo.GetByID(ctx, user.ID)
	assert.Equal(t, "rehashed", got.Password)

	// 软删除后不可见
	require.NoError(t, repo.Delete(ctx, user.ID))
	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserRepo_Exists(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	mustCreateUser(t, db, "alice")

	exists, err := repo.ExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByUsername(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.ExistsByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUserRepo_List(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	mustCreateUser(t, db, "alice")
	mustCreateUser(t, db, "alicia")
	mustCreateUser(t, db, "bob")

	// 关键词过滤
	users, total, err := repo.List(ctx, UserFilter{Keyword: "alic"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 2)

	// 分页
	users, total, err = repo.List(ctx, UserFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, users, 2)
	// id 倒序
	assert.Equal(t, "bob", users[0].Username)
}
