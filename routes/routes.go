package routes

import (
	"time"

	"university-portal-api/controllers"
	"university-portal-api/middleware"
	"university-portal-api/models"
	"university-portal-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies are the handlers and middleware inputs the API routes need.
type Dependencies struct {
	DB         *gorm.DB
	Auth       *controllers.AuthController
	Admissions *controllers.AdmissionOfferController
	Faculty    *controllers.FacultyOfferController

	ConfirmLimiter    middleware.Limiter
	ConfirmRateLimit  int
	ConfirmRateWindow time.Duration
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.SetHTMLTemplate(controllers.ConfirmPageTemplate())

	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/login", deps.Auth.Login)

			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "University Portal API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.DB))
		{
			protected.GET("/profile", deps.Auth.GetProfile)
		}

		confirmLimit := middleware.RateLimit(deps.ConfirmLimiter, "offer-confirm", deps.ConfirmRateLimit, deps.ConfirmRateWindow)

		registerOfferRoutes(v1.Group("/admissions"), protected.Group("/admissions"), deps.Admissions, confirmLimit, true)
		registerOfferRoutes(v1.Group("/faculty"), protected.Group("/faculty"), deps.Faculty, confirmLimit, false)
	}
}

// registerOfferRoutes mounts one workflow: the confirmation link is public and
// rate limited, everything else is admin only. GET on the link only previews;
// the answer is committed by POST.
func registerOfferRoutes[A any, P services.OfferRecord[A], D any](
	public, protected *gin.RouterGroup,
	ctl *controllers.OfferController[A, P, D],
	confirmLimit gin.HandlerFunc,
	allowDelete bool,
) {
	public.GET("/:id/confirm", confirmLimit, ctl.PreviewConfirmation)
	public.POST("/:id/confirm", confirmLimit, ctl.ConfirmOffer)

	admin := protected.Group("")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/:id", ctl.GetApplication)
		admin.POST("/:id/offer", ctl.IssueOffer)
		admin.POST("/:id/offer/resend", ctl.ResendOffer)
		admin.POST("/:id/reject", ctl.AdminReject)
		admin.POST("/:id/credentials", ctl.ReissueCredentials)
		if allowDelete {
			admin.DELETE("/:id", ctl.DeletePending)
		}
	}
}
