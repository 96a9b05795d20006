package main

import (
	"log"
	"os"

	"university-portal-api/config"
	"university-portal-api/controllers"
	"university-portal-api/middleware"
	"university-portal-api/models"
	"university-portal-api/monitor"
	"university-portal-api/routes"
	"university-portal-api/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	db := config.InitDB()
	redisClient := config.InitRedis()
	offerCfg := config.LoadOfferConfig()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewOfferMetrics(registry)

	notifier := services.NewEmailNotifier(config.NewMailer(config.LoadSMTPSettings()))
	provisioner := services.NewAccountProvisioner(
		services.NewGormAccountStore(db),
		services.NewSecurePasswordGenerator(),
		services.BcryptHasher{},
	)

	admissions := services.NewAdmissionWorkflow(offerCfg.Admission.NotifyOnAdminReject, services.OfferWorkflowDeps[models.AdmissionApplication]{
		Store:       services.NewGormApplicationStore[models.AdmissionApplication](db),
		Provisioner: provisioner,
		Notifier:    notifier,
		Tokens:      services.NewTokenGenerator(offerCfg.Admission.TTL),
		APIBaseURL:  offerCfg.APIBaseURL,
		LoginURL:    offerCfg.LoginURL,
		Metrics:     metrics,
	})
	faculty := services.NewFacultyWorkflow(offerCfg.Faculty.NotifyOnAdminReject, services.OfferWorkflowDeps[models.FacultyApplication]{
		Store:       services.NewGormApplicationStore[models.FacultyApplication](db),
		Provisioner: provisioner,
		Notifier:    notifier,
		Tokens:      services.NewTokenGenerator(offerCfg.Faculty.TTL),
		APIBaseURL:  offerCfg.APIBaseURL,
		LoginURL:    offerCfg.LoginURL,
		Metrics:     metrics,
	})

	var confirmLimiter middleware.Limiter = middleware.NewMemoryLimiter()
	if redisClient != nil {
		defer redisClient.Close()
		confirmLimiter = middleware.NewRedisLimiter(redisClient)
	}

	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = config.LogWriter

	router := gin.New()
	if err := router.SetTrustedProxies(offerCfg.TrustedProxies); err != nil {
		log.Fatal("Invalid TRUSTED_PROXIES:", err)
	}
	router.Use(middleware.RequestLogger(config.LogWriter))
	router.Use(gin.Recovery())

	// Security headers
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	})
	router.Use(middleware.CORSMiddleware())

	monitor.RegisterLogsRoute(router, os.Getenv("LOG_ACCESS_TOKEN"))
	monitor.RegisterMetricsRoute(router, registry)

	routes.SetupRoutes(router, routes.Dependencies{
		DB:                db,
		Auth:              controllers.NewAuthController(db),
		Admissions:        controllers.NewOfferController(admissions),
		Faculty:           controllers.NewOfferController(faculty),
		ConfirmLimiter:    confirmLimiter,
		ConfirmRateLimit:  offerCfg.ConfirmRateLimit,
		ConfirmRateWindow: offerCfg.ConfirmRateWindow,
	})

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	log.Printf("Admission offers valid for %s, faculty offers for %s", offerCfg.Admission.TTL, offerCfg.Faculty.TTL)

	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
