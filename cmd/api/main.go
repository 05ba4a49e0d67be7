package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	_ "backend/api/swagger" // swagger docs
	"backend/internal/auth"
	"backend/internal/database"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envMinutes(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Ignoring invalid %s=%q, using default", key, v)
		return fallback
	}
	return time.Duration(n) * time.Minute
}

// @title           Event Desk API
// @version         1.0
// @description     Event management backend with role-based permissions and session lifecycle management.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dsn := "postgres://" + envOr("DB_USER", "postgres") + ":" + envOr("DB_PASSWORD", "postgres") +
		"@" + envOr("DB_HOST", "localhost") + ":" + envOr("DB_PORT", "5432") +
		"/" + envOr("DB_NAME", "postgres") + "?sslmode=" + envOr("DB_SSLMODE", "disable")

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Session policy: 1 hour lifetime, refresh due below 10 minutes remaining
	tokens := auth.NewTokenManager(auth.Config{
		Secret:                middleware.GetJWTSecret(),
		Lifetime:              envMinutes("SESSION_LIFETIME_MINUTES", auth.DefaultLifetime),
		ExpiringSoonThreshold: envMinutes("EXPIRING_SOON_MINUTES", auth.DefaultExpiringSoonThreshold),
	})
	monitorInterval := envMinutes("MONITOR_INTERVAL_MINUTES", auth.DefaultMonitorInterval)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txm := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	eventRepo := repository.NewEventRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	authorityRepo := repository.NewAuthorityRepository(db)

	permissionService := service.NewPermissionService(authorityRepo)
	authService := service.NewAuthService(userRepo, permissionService, auditRepo, tokens)
	userService := service.NewUserService(userRepo, roleRepo, auditRepo)
	roleService := service.NewRoleService(roleRepo, auditRepo, txm)
	eventService := service.NewEventServiceWithHub(eventRepo, auditRepo, txm, wsHub)
	auditService := service.NewAuditService(auditRepo)

	// Seed the authority graph and a first admin account
	ctx := context.Background()
	if err := roleService.SeedDefaultRolesAndPermissions(ctx); err != nil {
		log.Fatalf("Failed to seed roles and permissions: %v", err)
	}
	if err := seedAdminUser(ctx, db, userRepo, roleRepo); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	authMw := middleware.NewAuthMiddleware(tokens, permissionService)

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService, tokens, authMw)
	userHandler := handler.NewUserHandler(userService, authMw)
	roleHandler := handler.NewRoleHandler(roleService, authMw)
	eventHandler := handler.NewEventHandler(eventService, authMw)
	auditHandler := handler.NewAuditHandler(auditService, authMw)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint with per-connection session monitoring
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, tokens, authService, monitorInterval)
	})

	// Register API Routes
	authHandler.RegisterRoutes(router.Group(""))
	userHandler.RegisterRoutes(router.Group(""))
	roleHandler.RegisterRoutes(router.Group(""))
	eventHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := envOr("PORT", "8080")
	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// seedAdminUser creates the bootstrap admin account when the user table is
// empty, so a fresh deployment is reachable without manual SQL.
func seedAdminUser(ctx context.Context, db *gorm.DB, users repository.UserRepository, roles repository.RoleRepository) error {
	var count int64
	if err := db.WithContext(ctx).Model(&model.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	adminRole, err := roles.FindByName(ctx, "Admin")
	if err != nil {
		return err
	}

	password := envOr("ADMIN_PASSWORD", "admin123")
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &model.User{
		Username: envOr("ADMIN_USERNAME", "admin"),
		Email:    envOr("ADMIN_EMAIL", "admin@example.com"),
		Name:     "Administrator",
		Password: string(hashed),
		Roles:    []model.Role{*adminRole},
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}

	log.Printf("Seeded bootstrap admin user '%s'", admin.Username)
	return nil
}
