package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"product_api_v1_202601/internal/controller"
	"product_api_v1_202601/internal/middleware"
	"product_api_v1_202601/internal/model"
	"product_api_v1_202601/internal/repository"
	"product_api_v1_202601/internal/router"
	"product_api_v1_202601/internal/service"
	"product_api_v1_202601/internal/task"
	"product_api_v1_202601/pkg/database"
)

func main() {
	// 1. JWT 配置
	initJWT()

	// 2. 初始化数据库
	db := initDatabase()

	// 3. 初始化依赖
	deps := initDependencies(db)

	// 4. 初始管理员（可选）
	bootstrapAdmin(deps)

	// 5. 启动定时任务
	initTasks(deps)

	// 6. 初始化路由并启动服务
	r := router.SetupRouter(deps.Controllers)
	startServer(r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers *router.Controllers
}

// Repositories 仓库集合
type Repositories struct {
	User    repository.UserRepository
	Tag     repository.TagRepository
	Product repository.ProductRepository
}

// Services 服务集合
type Services struct {
	User    *service.UserService
	Tag     *service.TagService
	Product *service.ProductService
	Storage service.StorageProvider
}

// ==================== 初始化函数 ====================

// initJWT 从环境变量加载 JWT 配置
func initJWT() {
	cfg := middleware.DefaultJWTConfig()
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.SecretKey = secret
	}
	middleware.SetJWTConfig(cfg)
}

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	dsn := getEnv("DATABASE_DSN",
		"host=localhost user=catalog password=catalog dbname=catalog port=5432 sslmode=disable")

	return database.InitDB(dsn,
		&model.User{},
		&model.Tag{},
		&model.Product{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		User:    repository.NewUserRepository(db),
		Tag:     repository.NewTagRepository(db),
		Product: repository.NewProductRepository(db),
	}

	// -------- 存储服务 --------
	storage := initStorageProvider()

	// -------- 业务服务 --------
	services := &Services{
		Storage: storage,
		User:    service.NewUserService(repos.User),
		Tag:     service.NewTagService(repos.Tag),
		Product: service.NewProductService(repos.Product, repos.Tag, storage),
	}

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		User:    controller.NewUserController(services.User),
		Product: controller.NewProductController(services.Product),
		Tag:     controller.NewTagController(services.Tag),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		Controllers: controllers,
	}
}

// initStorageProvider 初始化存储服务
func initStorageProvider() service.StorageProvider {
	storage, err := service.NewStorageProvider(&service.StorageConfig{
		Provider:  getEnv("STORAGE_PROVIDER", "local"),
		BaseDir:   getEnv("STORAGE_BASE_DIR", "media"),
		Bucket:    getEnv("AWS_BUCKET", ""),
		Region:    getEnv("AWS_REGION", ""),
		AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		CDNDomain: getEnv("AWS_CDN_DOMAIN", ""),
	})
	if err != nil {
		log.Fatalf("存储服务初始化失败: %v", err)
	}
	return storage
}

// bootstrapAdmin 按环境变量创建初始管理员，已存在则跳过
func bootstrapAdmin(deps *Dependencies) {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	email := os.Getenv("ADMIN_EMAIL")
	if username == "" || password == "" || email == "" {
		return
	}

	ctx := context.Background()
	exists, err := deps.Repos.User.ExistsByUsername(ctx, username)
	if err != nil {
		log.Printf("管理员检查失败: %v", err)
		return
	}
	if exists {
		return
	}

	if _, err := deps.Services.User.CreateSuperuser(ctx, username, email, password); err != nil {
		log.Printf("管理员创建失败: %v", err)
		return
	}
	log.Printf("初始管理员已创建: %s", username)
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) {
	cleanupTask := task.NewCleanupTask(deps.Repos.Product, deps.Services.Storage)
	cleanupTask.Start()

	log.Println("定时任务已启动")
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
