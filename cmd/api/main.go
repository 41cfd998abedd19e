package main

import (
	"context"
	"log"

	"fleetgate/internal/config"
	"fleetgate/internal/database"
	"fleetgate/internal/gateway"
	"fleetgate/internal/handler"
	"fleetgate/internal/model"
	"fleetgate/internal/repository"
	"fleetgate/internal/service"
	"fleetgate/internal/websocket"
	"fleetgate/pkg/response"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	db, err := database.NewConnection(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up security-event hub for live admin alerts
	hub := websocket.NewHub()
	go hub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	auditService := service.NewAuditService(auditRepo, hub)
	tokenService := service.NewTokenService(userRepo, sessionRepo, txManager, auditService, []byte(cfg.JWTSecret), cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	rbacService := service.NewRBACService(roleRepo)
	scopeService := service.NewScopeService()
	roleService := service.NewRoleService(roleRepo, txManager, rbacService)
	userService := service.NewUserService(userRepo, roleRepo, teamRepo)
	orgService := service.NewOrgService(teamRepo)

	if err := roleService.SeedDefaults(context.Background()); err != nil {
		log.Fatalf("Failed to seed default roles and permissions: %v", err)
	}

	// Build the validated routing table once at startup
	table, err := gateway.NewTable(cfg.Routes())
	if err != nil {
		log.Fatalf("Invalid gateway route table: %v", err)
	}
	proxy := gateway.NewProxy(table, tokenService, rbacService, scopeService, cfg.ProxyTimeout)

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(tokenService, rbacService, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	userHandler := handler.NewUserHandler(userService, tokenService, rbacService)
	roleHandler := handler.NewRoleHandler(roleService, tokenService, rbacService)
	auditHandler := handler.NewAuditHandler(auditService, tokenService, rbacService)
	orgHandler := handler.NewOrgHandler(orgService, tokenService, rbacService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Team-ID", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, response.OK(gin.H{"status": "OK"}))
	})

	// Live security alerts for admin dashboards
	router.GET("/ws/security", func(c *gin.Context) {
		websocket.ServeWs(hub, c, func(token string) ([]string, error) {
			subject, err := tokenService.Verify(token)
			if err != nil {
				return nil, err
			}
			return subject.Roles, nil
		}, model.RoleAdmin, model.RoleSuperAdmin)
	})

	// Register local API routes
	authHandler.RegisterRoutes(router.Group(""))
	userHandler.RegisterRoutes(router.Group(""))
	roleHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	orgHandler.RegisterRoutes(router.Group(""))

	// Everything else is resolved against the gateway route table and
	// proxied to the owning downstream service.
	router.NoRoute(proxy.Handler)

	log.Printf("Gateway listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
