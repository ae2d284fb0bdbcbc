package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/middlewares"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("retail-backend")

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	if strings.EqualFold(os.Getenv("GO_ENV"), "production") {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(cors.New(corsConfig()))
	router.Use(correlationIdMiddleware())
	router.Use(middlewares.AuthMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/auth/login", loginHandler())

	catalog := router.Group("/catalog", middlewares.RequireAuth())
	catalog.POST("/products", createProductHandler())
	catalog.POST("/products/import", importProductsHandler())
	catalog.GET("/products/import/last", lastImportReportHandler())

	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		// Connect after the listener is up: Cloud Run wants the port open fast.
		config.ConnectDatabaseWithRetry()
		if db := config.GetDB(); db != nil {
			if err := db.AutoMigrate(&models.CatalogItem{}, &models.User{}); err != nil {
				config.LogError(config.GetLogger(), "server.go", "main", "auto migrate", nil, err)
			}
		}
	}()

	go func() {
		log.Printf("listening on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	log.Println("server stopped")
}

func corsConfig() cors.Config {
	conf := cors.DefaultConfig()
	origins := strings.TrimSpace(os.Getenv("CORS_ORIGINS"))
	if origins == "" {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = strings.Split(origins, ",")
	}
	conf.AllowHeaders = append(conf.AllowHeaders, "Authorization", "X-Correlation-Id")
	return conf
}

func correlationIdMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Correlation-Id"))
		if id == "" {
			id = strings.TrimSpace(c.GetHeader("X-Request-Id"))
		}
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Correlation-Id", id)
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
