package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"product_api_v1_202601/internal/controller"
	"product_api_v1_202601/internal/middleware"
)

// Controllers 控制器集合
type Controllers struct {
	User    *controller.UserController
	Product *controller.ProductController
	Tag     *controller.TagController
}

// SetupRouter 创建引擎并注册所有路由
func SetupRouter(ctls *Controllers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API 路由组
	api := r.Group("/api")
	{
		// users 开放接口：注册与 Token 签发不要求认证
		users := api.Group("/users")
		{
			// POST /api/users
			users.POST("", ctls.User.Register)
			// POST /api/users/token
			users.POST("/token", ctls.User.Token)
			// POST /api/users/token/refresh
			users.POST("/token/refresh", ctls.User.RefreshToken)
		}

		// users 认证接口
		usersAuth := api.Group("/users", middleware.JWTAuth())
		{
			me := usersAuth.Group("/me")
			{
				me.GET("", ctls.User.GetMe)
				me.PUT("", ctls.User.UpdateMe)
				me.PATCH("", ctls.User.UpdateMe)
			}
			// 员工权限
			usersAuth.GET("", middleware.RequireStaff(), ctls.User.ListUsers)
		}

		// products 组，全部要求认证
		products := api.Group("/products", middleware.JWTAuth())
		{
			products.GET("", ctls.Product.List)
			products.POST("", ctls.Product.Create)
			products.GET("/:id", ctls.Product.GetDetail)
			products.PUT("/:id", ctls.Product.Update)
			products.PATCH("/:id", ctls.Product.Patch)
			products.DELETE("/:id", ctls.Product.Delete)
			products.POST("/:id/image", ctls.Product.UploadImage)
			products.POST("/:id/image/import", ctls.Product.ImportImage)
		}

		// tags 组，全部要求认证
		tags := api.Group("/tags", middleware.JWTAuth())
		{
			tags.GET("", ctls.Tag.List)
			tags.PATCH("/:id", ctls.Tag.Patch)
			tags.DELETE("/:id", ctls.Tag.Delete)
		}
	}

	return r
}
