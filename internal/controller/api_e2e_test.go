package controller_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"product_api_v1_202601/internal/api/dto"
	"product_api_v1_202601/internal/controller"
	"product_api_v1_202601/internal/model"
	"product_api_v1_202601/internal/repository"
	"product_api_v1_202601/internal/router"
	"product_api_v1_202601/internal/service"
)

// ==================== 测试环境 ====================

// setupAPITest 组装完整 HTTP 栈：内存数据库 + 本地存储 + 全部路由
func setupAPITest(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取底层 SQL DB 失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.User{}, &model.Tag{}, &model.Product{}); err != nil {
		t.Fatalf("自动建表失败: %v", err)
	}

	storage, err := service.NewLocalStorage(&service.StorageConfig{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("创建本地存储失败: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	tagRepo := repository.NewTagRepository(db)
	productRepo := repository.NewProductRepository(db)

	userSvc := service.NewUserService(userRepo)
	productSvc := service.NewProductService(productRepo, tagRepo, storage)
	tagSvc := service.NewTagService(tagRepo)

	return router.SetupRouter(&router.Controllers{
		User:    controller.NewUserController(userSvc),
		Product: controller.NewProductController(productSvc),
		Tag:     controller.NewTagController(tagSvc),
	})
}

// envelope 统一响应结构
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("序列化请求体失败: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("解析响应失败: %v, body = %s", err, w.Body.String())
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		t.Fatalf("解析 data 失败: %v, data = %s", err, string(env.Data))
	}
}

// registerAndLogin 注册并登录，返回 access token
func registerAndLogin(t *testing.T, r *gin.Engine, username, email, password string) string {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/users", "", gin.H{
		"username": username,
		"email":    email,
		"password": password,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("注册 code = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/users/token", "", gin.H{
		"username": username,
		"password": password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("登录 code = %d, body = %s", w.Code, w.Body.String())
	}

	var tokenResp dto.TokenResponse
	decodeData(t, w, &tokenResp)
	if tokenResp.AccessToken == "" {
		t.Fatal("access token 为空")
	}
	return tokenResp.AccessToken
}

// ==================== 用户接口 ====================

func TestAPI_Register_NormalizesEmail(t *testing.T) {
	r := setupAPITest(t)

	w := doJSON(t, r, http.MethodPost, "/api/users", "", gin.H{
		"username": "e2e_alice",
		"email":    "alice@EX.com",
		"password": "pw123456",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("注册 code = %d, body = %s", w.Code, w.Body.String())
	}

	var user dto.UserInfo
	decodeData(t, w, &user)
	if user.Email != "alice@ex.com" {
		t.Errorf("邮箱域名应转小写: %s", user.Email)
	}

	// 响应体不得出现密码字段
	if bytes.Contains(w.Body.Bytes(), []byte("password")) {
		t.Error("响应不应包含密码字段")
	}
}

func TestAPI_Register_Validation(t *testing.T) {
	r := setupAPITest(t)

	// 密码过短
	w := doJSON(t, r, http.MethodPost, "/api/users", "", gin.H{
		"username": "e2e_short",
		"email":    "short@ex.com",
		"password": "short",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("短密码 code = %d, want 400", w.Code)
	}

	// 非法邮箱
	w = doJSON(t, r, http.MethodPost, "/api/users", "", gin.H{
		"username": "e2e_bademail",
		"email":    "not-an-email",
		"password": "pw123456",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法邮箱 code = %d, want 400", w.Code)
	}
}

func TestAPI_Me(t *testing.T) {
	r := setupAPITest(t)
	token := registerAndLogin(t, r, "e2e_me", "me@ex.com", "pw123456")

	w := doJSON(t, r, http.MethodGet, "/api/users/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET me code = %d, body = %s", w.Code, w.Body.String())
	}
	var user dto.UserInfo
	decodeData(t, w, &user)
	if user.Username != "e2e_me" {
		t.Errorf("username = %s", user.Username)
	}

	// PATCH me：改邮箱，用户名忽略不可改
	w = doJSON(t, r, http.MethodPatch, "/api/users/me", token, gin.H{
		"email":    "changed@EX.COM",
		"username": "hijacked",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("PATCH me code = %d, body = %s", w.Code, w.Body.String())
	}
	decodeData(t, w, &user)
	if user.Email != "changed@ex.com" {
		t.Errorf("邮箱应更新并归一化: %s", user.Email)
	}
	if user.Username != "e2e_me" {
		t.Errorf("用户名不可经由资料接口修改: %s", user.Username)
	}

	// 未认证
	w = doJSON(t, r, http.MethodGet, "/api/users/me", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("未认证 code = %d, want 401", w.Code)
	}
}

func TestAPI_TokenRefresh(t *testing.T) {
	r := setupAPITest(t)
	registerAndLogin(t, r, "e2e_refresh", "refresh@ex.com", "pw123456")

	w := doJSON(t, r, http.MethodPost, "/api/users/token", "", gin.H{
		"username": "e2e_refresh",
		"password": "pw123456",
	})
	var tokenResp dto.TokenResponse
	decodeData(t, w, &tokenResp)

	w = doJSON(t, r, http.MethodPost, "/api/users/token/refresh", "", gin.H{
		"refresh_token": tokenResp.RefreshToken,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("刷新 code = %d, body = %s", w.Code, w.Body.String())
	}
	var refreshResp dto.RefreshTokenResponse
	decodeData(t, w, &refreshResp)
	if refreshResp.AccessToken == "" {
		t.Error("刷新应签发新 access token")
	}

	// access token 不能用于刷新
	w = doJSON(t, r, http.MethodPost, "/api/users/token/refresh", "", gin.H{
		"refresh_token": tokenResp.AccessToken,
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("access token 刷新 code = %d, want 401", w.Code)
	}
}

func TestAPI_ListUsers_StaffOnly(t *testing.T) {
	r := setupAPITest(t)
	token := registerAndLogin(t, r, "e2e_normal", "normal@ex.com", "pw123456")

	w := doJSON(t, r, http.MethodGet, "/api/users", token, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("普通用户列表 code = %d, want 403", w.Code)
	}
}

// ==================== 商品与标签主流程 ====================

func TestAPI_ProductLifecycle(t *testing.T) {
	r := setupAPITest(t)
	alice := registerAndLogin(t, r, "e2e_owner", "owner@ex.com", "pw123456")
	bob := registerAndLogin(t, r, "e2e_other", "other@ex.com", "pw123456")

	// 未认证访问
	w := doJSON(t, r, http.MethodGet, "/api/products", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("未认证 code = %d, want 401", w.Code)
	}

	// 创建带内嵌标签的商品
	w = doJSON(t, r, http.MethodPost, "/api/products", alice, gin.H{
		"title": "Sample",
		"price": "0.01",
		"tags":  []gin.H{{"name": "T1"}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("创建 code = %d, body = %s", w.Code, w.Body.String())
	}
	var detail dto.ProductDetail
	decodeData(t, w, &detail)
	if len(detail.Tags) != 1 || detail.Tags[0].Name != "T1" {
		t.Fatalf("标签不符: %+v", detail.Tags)
	}
	firstTagID := detail.Tags[0].ID

	// 再建一个复用 T1
	w = doJSON(t, r, http.MethodPost, "/api/products", alice, gin.H{
		"title": "Second",
		"price": "25.99",
		"tags":  []gin.H{{"name": "T1"}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("创建 code = %d, body = %s", w.Code, w.Body.String())
	}
	var second dto.ProductDetail
	decodeData(t, w, &second)
	if second.Tags[0].ID != firstTagID {
		t.Error("同名标签应复用既有行")
	}

	// 按标签过滤列表
	w = doJSON(t, r, http.MethodGet, "/api/products?tags="+int64Query(firstTagID), alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("列表 code = %d", w.Code)
	}
	var list dto.ProductListResponse
	decodeData(t, w, &list)
	if list.Total != 2 {
		t.Errorf("按 T1 过滤 total = %d, want 2", list.Total)
	}

	// 非法过滤参数
	w = doJSON(t, r, http.MethodGet, "/api/products?tags=1,abc", alice, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法 tags code = %d, want 400", w.Code)
	}

	// PATCH tags: [] 清空标签
	w = doJSON(t, r, http.MethodPatch, "/api/products/"+int64Query(detail.ID), alice, gin.H{
		"tags": []gin.H{},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("PATCH code = %d, body = %s", w.Code, w.Body.String())
	}
	decodeData(t, w, &detail)
	if len(detail.Tags) != 0 {
		t.Errorf("tags: [] 应清空标签, got %d", len(detail.Tags))
	}

	// 他人读 / 删一律 404，不泄露存在性
	w = doJSON(t, r, http.MethodGet, "/api/products/"+int64Query(detail.ID), bob, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("他人查看 code = %d, want 404", w.Code)
	}
	w = doJSON(t, r, http.MethodDelete, "/api/products/"+int64Query(detail.ID), bob, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("他人删除 code = %d, want 404", w.Code)
	}

	// 他人删除后商品仍在
	w = doJSON(t, r, http.MethodGet, "/api/products/"+int64Query(detail.ID), alice, nil)
	if w.Code != http.StatusOK {
		t.Errorf("商品应仍然存在, code = %d", w.Code)
	}

	// 本人删除 204 无响应体
	w = doJSON(t, r, http.MethodDelete, "/api/products/"+int64Query(detail.ID), alice, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("本人删除 code = %d, want 204", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("204 不应有响应体: %s", w.Body.String())
	}

	// 删除后 404
	w = doJSON(t, r, http.MethodGet, "/api/products/"+int64Query(detail.ID), alice, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("删除后 code = %d, want 404", w.Code)
	}

	// 非法 ID
	w = doJSON(t, r, http.MethodGet, "/api/products/abc", alice, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法 ID code = %d, want 400", w.Code)
	}
}

func TestAPI_ProductValidation(t *testing.T) {
	r := setupAPITest(t)
	token := registerAndLogin(t, r, "e2e_valid", "valid@ex.com", "pw123456")

	// 缺 title
	w := doJSON(t, r, http.MethodPost, "/api/products", token, gin.H{"price": "1.00"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("缺 title code = %d, want 400", w.Code)
	}

	// 非法价格
	w = doJSON(t, r, http.MethodPost, "/api/products", token, gin.H{
		"title": "P", "price": "not-a-price",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法价格 code = %d, want 400", w.Code)
	}
}

func TestAPI_TagEndpoints(t *testing.T) {
	r := setupAPITest(t)
	alice := registerAndLogin(t, r, "e2e_tags_a", "tagsa@ex.com", "pw123456")
	bob := registerAndLogin(t, r, "e2e_tags_b", "tagsb@ex.com", "pw123456")

	w := doJSON(t, r, http.MethodPost, "/api/products", alice, gin.H{
		"title": "P", "price": "1.00",
		"tags": []gin.H{{"name": "keep"}, {"name": "drop"}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("创建 code = %d", w.Code)
	}
	var detail dto.ProductDetail
	decodeData(t, w, &detail)

	// 本人标签列表
	w = doJSON(t, r, http.MethodGet, "/api/tags", alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("标签列表 code = %d", w.Code)
	}
	var tagList dto.TagListResponse
	decodeData(t, w, &tagList)
	if tagList.Total != 2 {
		t.Errorf("标签数 = %d, want 2", tagList.Total)
	}

	// bob 看不到 alice 的标签
	w = doJSON(t, r, http.MethodGet, "/api/tags", bob, nil)
	decodeData(t, w, &tagList)
	if tagList.Total != 0 {
		t.Errorf("bob 标签数 = %d, want 0", tagList.Total)
	}

	dropID := int64(0)
	for _, tag := range detail.Tags {
		if tag.Name == "drop" {
			dropID = tag.ID
		}
	}

	// bob 改 alice 的标签 404
	w = doJSON(t, r, http.MethodPatch, "/api/tags/"+int64Query(dropID), bob, gin.H{"name": "hacked"})
	if w.Code != http.StatusNotFound {
		t.Errorf("他人改标签 code = %d, want 404", w.Code)
	}

	// 改名撞上既有标签
	w = doJSON(t, r, http.MethodPatch, "/api/tags/"+int64Query(dropID), alice, gin.H{"name": "keep"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("撞名 code = %d, want 400", w.Code)
	}

	// 正常改名
	w = doJSON(t, r, http.MethodPatch, "/api/tags/"+int64Query(dropID), alice, gin.H{"name": "renamed"})
	if w.Code != http.StatusOK {
		t.Fatalf("改名 code = %d, body = %s", w.Code, w.Body.String())
	}

	// 删除 204，商品保留
	w = doJSON(t, r, http.MethodDelete, "/api/tags/"+int64Query(dropID), alice, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("删标签 code = %d, want 204", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/api/products/"+int64Query(detail.ID), alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("商品应保留, code = %d", w.Code)
	}
	decodeData(t, w, &detail)
	if len(detail.Tags) != 1 || detail.Tags[0].Name != "keep" {
		t.Errorf("商品应只剩 keep 标签: %+v", detail.Tags)
	}
}

// ==================== 图片上传 ====================

func TestAPI_UploadImage(t *testing.T) {
	r := setupAPITest(t)
	token := registerAndLogin(t, r, "e2e_image", "image@ex.com", "pw123456")

	w := doJSON(t, r, http.MethodPost, "/api/products", token, gin.H{
		"title": "P", "price": "1.00",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("创建 code = %d", w.Code)
	}
	var detail dto.ProductDetail
	decodeData(t, w, &detail)

	// multipart 上传，字节带合法 JPEG 文件头
	jpeg := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("jpeg-body")...)
	rec := uploadImage(t, r, token, detail.ID, "photo.jpg", jpeg)

	if rec.Code != http.StatusOK {
		t.Fatalf("上传 code = %d, body = %s", rec.Code, rec.Body.String())
	}
	var imgResp dto.ProductImageResponse
	decodeData(t, rec, &imgResp)
	if imgResp.Image == "" {
		t.Fatal("应返回图片路径")
	}

	// 详情携带图片
	w = doJSON(t, r, http.MethodGet, "/api/products/"+int64Query(detail.ID), token, nil)
	decodeData(t, w, &detail)
	if detail.Image != imgResp.Image {
		t.Errorf("详情图片 = %s, want %s", detail.Image, imgResp.Image)
	}

	// 扩展名合法但内容不是图片
	rec = uploadImage(t, r, token, detail.ID, "evil.jpg", []byte("this is not an image at all"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("非图片内容 code = %d, want 400", rec.Code)
	}

	// 缺文件字段
	req := httptest.NewRequest(http.MethodPost, "/api/products/"+int64Query(detail.ID)+"/image", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "multipart/form-data")
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("缺文件 code = %d, want 400", rec.Code)
	}
}

// uploadImage 构造 multipart 图片上传请求
func uploadImage(t *testing.T, r *gin.Engine, token string, productID int64, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		t.Fatalf("构造 multipart 失败: %v", err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/products/"+int64Query(productID)+"/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func int64Query(n int64) string {
	return strconv.FormatInt(n, 10)
}
