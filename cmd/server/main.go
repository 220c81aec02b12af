package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/safeqr/emergency-backend/internal/config"
	"github.com/safeqr/emergency-backend/internal/database"
	"github.com/safeqr/emergency-backend/internal/handlers"
	"github.com/safeqr/emergency-backend/internal/middleware"
	"github.com/safeqr/emergency-backend/internal/services"
	"github.com/safeqr/emergency-backend/pkg/jwt"
	"github.com/safeqr/emergency-backend/pkg/notify"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting employee safety QR backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	logrus.SetFormatter(logger.Formatter)
	logrus.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	deliveryLog, mongoClient := connectDeliveryLog(cfg.Mongo, logger)
	if mongoClient != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoClient.Disconnect(ctx)
		}()
	}

	// Repositories
	organizationRepository := database.NewOrganizationRepository(db)
	employeeRepository := database.NewEmployeeRepository(db)
	incidentRepository := database.NewIncidentRepository(db)

	// Services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.TokenExpiry)
	messenger := buildMessenger(cfg.Notification, logger)

	var auditService *services.AuditService
	var auditLogger handlers.AuditLogger
	var abandonRecorder services.AbandonRecorder
	if cfg.Security.EnableAuditLog {
		auditService = services.NewAuditService(db)
		auditLogger = auditService
		abandonRecorder = auditService
	}

	dispatcher := services.NewSOSDispatcher(
		employeeRepository,
		organizationRepository,
		incidentRepository,
		messenger,
		deliveryLog,
		services.DispatcherConfig{
			Primary:        notify.ChannelWhatsApp,
			Fallback:       notify.ChannelSMS,
			AttemptTimeout: cfg.Notification.AttemptTimeout,
		},
		logger,
	)
	directoryService := services.NewDirectoryService(employeeRepository, organizationRepository)
	authService := services.NewAuthService(organizationRepository, employeeRepository, jwtService, cfg.Security.BcryptCost)
	employeeService := services.NewEmployeeService(employeeRepository, organizationRepository, cfg.Security.BcryptCost, cfg.FrontendURL)
	organizationService := services.NewOrganizationService(organizationRepository, cfg.Security.BcryptCost)
	dashboardService := services.NewDashboardService(organizationRepository, employeeRepository, incidentRepository, deliveryLog)
	loginThrottle := services.NewLoginThrottle(db, services.LoginThrottleConfig{
		MaxEmailFailures: cfg.Security.LoginMaxEmailFailures,
		EmailWindow:      cfg.Security.LoginEmailWindow,
		MaxIPFailures:    cfg.Security.LoginMaxIPFailures,
		IPWindow:         cfg.Security.LoginIPWindow,
	})

	reconciler := services.NewIncidentReconciler(incidentRepository, abandonRecorder, cfg.Cron.ReconcileAfter, cfg.Notification.AttemptTimeout, logger)
	cronService := services.NewCronService(reconciler, auditService, loginThrottle, cfg.Cron.ReconcileSchedule, cfg.Cron.AuditRetention, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("Services initialized")

	// Handlers
	emergencyHandler := handlers.NewEmergencyHandler(directoryService, dispatcher, dashboardService, auditLogger)
	authHandler := handlers.NewAuthHandler(authService, loginThrottle, auditLogger)
	employeeHandler := handlers.NewEmployeeHandler(employeeService, auditLogger)
	organizationHandler := handlers.NewOrganizationHandler(organizationService, auditLogger)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !allowsAnyOrigin(cfg.CORS.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db))

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/organization/register", authHandler.RegisterOrganization)
			auth.POST("/organization/login", authHandler.LoginOrganization)
			auth.POST("/employee/login", authHandler.LoginEmployee)
		}

		authenticated := middleware.AuthMiddleware(jwtService)
		orgOnly := middleware.RequireRole(jwt.RoleOrganization)
		employeeOnly := middleware.RequireRole(jwt.RoleEmployee)

		organization := v1.Group("/organization", authenticated, orgOnly)
		{
			organization.GET("/profile", organizationHandler.GetProfile)
			organization.PUT("/settings", organizationHandler.UpdateSettings)
			organization.PUT("/password", organizationHandler.ChangePassword)
			organization.DELETE("/account", organizationHandler.DeleteAccount)
		}

		employees := v1.Group("/employees", authenticated)
		{
			employees.POST("", orgOnly, employeeHandler.CreateEmployee)
			employees.GET("", orgOnly, employeeHandler.ListEmployees)
			employees.GET("/profile/me", employeeOnly, employeeHandler.GetMyProfile)
			employees.PUT("/profile/me", employeeOnly, employeeHandler.UpdateMyProfile)
			employees.GET("/:id", orgOnly, employeeHandler.GetEmployee)
			employees.PUT("/:id", employeeHandler.UpdateEmployee)
			employees.DELETE("/:id", orgOnly, employeeHandler.DeleteEmployee)
			employees.GET("/:id/qr", orgOnly, employeeHandler.GetQRCode)
			employees.POST("/:id/regenerate-qr", orgOnly, employeeHandler.RegenerateQRCode)
		}

		dashboard := v1.Group("/dashboard", authenticated, orgOnly)
		{
			dashboard.GET("/stats", dashboardHandler.GetStats)
			dashboard.GET("/recent-incidents", dashboardHandler.GetRecentIncidents)
			dashboard.GET("/incidents/:id/deliveries", dashboardHandler.GetIncidentDeliveries)
		}

		emergency := v1.Group("/emergency")
		{
			// Static segments win over :token in gin's router
			emergency.GET("/incidents", authenticated, orgOnly, emergencyHandler.GetOrganizationIncidents)
			emergency.GET("/incidents/:employeeId", authenticated, orgOnly, emergencyHandler.GetEmployeeIncidents)

			emergency.GET("/:token", emergencyHandler.GetEmergencyProfile)
			emergency.POST("/:token/sos", emergencyHandler.TriggerSOS)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	logger.Info("Stopping cron service...")
	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// buildMessenger wires the WhatsApp and SMS senders. In dev mode messages
// are only logged.
func buildMessenger(cfg config.NotificationConfig, logger *logrus.Logger) *notify.Router {
	if cfg.Mode != "production" {
		logger.Info("Notifications in development mode (messages are logged, not sent)")
		return notify.NewRouter(map[notify.Channel]notify.Sender{
			notify.ChannelWhatsApp: notify.NewDevSender(notify.ChannelWhatsApp, logger),
			notify.ChannelSMS:      notify.NewDevSender(notify.ChannelSMS, logger),
		})
	}

	whatsApp := notify.NewTwilioWhatsApp(notify.TwilioConfig{
		APIURL:     cfg.TwilioAPIURL,
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		From:       cfg.TwilioWhatsAppFrom,
	})

	var sms notify.Sender
	if cfg.SMSProvider == "dialog" {
		logger.Info("Using Dialog eSMS for the SMS fallback")
		sms = notify.NewDialogGateway(notify.DialogConfig{
			APIURL:   cfg.DialogAPIURL,
			Username: cfg.DialogUsername,
			Password: cfg.DialogPassword,
			Mask:     cfg.DialogMask,
		})
	} else {
		logger.Info("Using Twilio for the SMS fallback")
		sms = notify.NewTwilioSMS(notify.TwilioConfig{
			APIURL:     cfg.TwilioAPIURL,
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			From:       cfg.TwilioPhoneNumber,
		})
	}

	return notify.NewRouter(map[notify.Channel]notify.Sender{
		notify.ChannelWhatsApp: whatsApp,
		notify.ChannelSMS:      sms,
	})
}

// connectDeliveryLog opens the optional Mongo delivery log. Failure to
// connect disables the log instead of stopping the server.
func connectDeliveryLog(cfg config.MongoConfig, logger *logrus.Logger) (database.DeliveryLogRepository, *mongo.Client) {
	if cfg.URI == "" {
		logger.Info("MONGO_URI not set, delivery log disabled")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := database.ConnectMongo(ctx, cfg.URI)
	if err != nil {
		logger.WithError(err).Warn("Delivery log disabled")
		return nil, nil
	}

	coll := client.Database(cfg.Database).Collection("delivery_attempts")
	if err := database.EnsureDeliveryLogIndexes(ctx, coll); err != nil {
		logger.WithError(err).Warn("Failed to ensure delivery log indexes")
	}

	logger.WithField("database", cfg.Database).Info("Delivery log enabled")
	return database.NewDeliveryLogRepository(coll), client
}

func allowsAnyOrigin(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().UTC(),
		})
	}
}
