package app

import (
	"github.com/SonetShaji6/quicklearn/docs"
	"github.com/SonetShaji6/quicklearn/internal/config"
	"github.com/SonetShaji6/quicklearn/internal/middleware"
	"github.com/SonetShaji6/quicklearn/internal/model"
	"github.com/SonetShaji6/quicklearn/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 2. 学生路由：登录且已通过审核
	student := router.Group("/api")
	student.Use(
		middleware.AuthMiddleware(cfg),
		middleware.ApprovedMiddleware(),
		middleware.ActivityMiddleware(repos.user),
	)
	{
		student.GET("/profile", c.auth.GetProfile)

		student.GET("/categories", c.content.ListCategories)
		student.GET("/lessons", c.content.ListLessons)
		student.POST("/lessons/:id/complete", c.content.CompleteLesson)
		student.GET("/materials", c.content.ListMaterials)
		student.GET("/materials/:id/download", c.content.DownloadMaterial)

		student.GET("/mock-tests", c.mockTest.ListTests)
		student.POST("/mock-tests/:id/start", c.mockTest.StartSession)
		student.PUT("/mock-tests/:id/answer", c.mockTest.SetAnswer)
		student.GET("/mock-tests/:id/session", c.mockTest.SessionStatus)
		student.POST("/mock-tests/:id/submit", c.mockTest.SubmitSession)
		student.GET("/mock-tests/:id/review", c.mockTest.Review)
		student.GET("/mock-attempts", c.mockTest.ListAttempts)
	}

	// 3. 管理员路由
	admin := router.Group("/api/admin")
	admin.Use(
		middleware.AuthMiddleware(cfg),
		middleware.RoleMiddleware(model.Admin),
	)
	{
		admin.GET("/users", c.admin.ListUsers)
		admin.GET("/users/pending", c.admin.ListPendingUsers)
		admin.POST("/users/:id/approve", c.admin.ApproveUser)
		admin.POST("/users/:id/reject", c.admin.RejectUser)
		admin.GET("/users/:id/payment-proof", c.admin.PaymentProof)

		admin.POST("/categories", c.content.CreateCategory)
		admin.PUT("/categories/:id", c.content.UpdateCategory)
		admin.DELETE("/categories/:id", c.content.DeleteCategory)

		admin.POST("/lessons", c.content.CreateLesson)
		admin.PUT("/lessons/:id", c.content.UpdateLesson)
		admin.DELETE("/lessons/:id", c.content.DeleteLesson)

		admin.POST("/materials", c.content.UploadMaterial)
		admin.DELETE("/materials/:id", c.content.DeleteMaterial)

		admin.GET("/mock-tests", c.mockTest.AdminListTests)
		admin.POST("/mock-tests", c.mockTest.CreateTest)
		admin.GET("/mock-tests/:id", c.mockTest.AdminGetTest)
		admin.GET("/mock-tests/:id/attempts", c.mockTest.AdminListAttempts)
		admin.DELETE("/mock-tests/:id", c.mockTest.DeleteTest)
		admin.POST("/mock-tests/:id/questions", c.mockTest.AddQuestion)
		admin.DELETE("/mock-tests/:id/questions/:questionId", c.mockTest.DeleteQuestion)
	}
}
