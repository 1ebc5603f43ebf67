package main

import (
	"log"
	"os"

	"writeflow/internal/db"
	"writeflow/internal/handlers"
	"writeflow/internal/middleware"
	"writeflow/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	// Initialize Database
	db.Init()

	contentStore := store.New(db.DB)

	// Initialize Gin
	r := gin.Default()

	// Setup Sessions
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "secret_key_change_me"
	}
	sessionStore := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("writeflow_session", sessionStore))

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "secret_key_change_me"
	}

	// Every request gets a resolved Identity; the store itself never
	// reads ambient auth state.
	r.Use(middleware.ResolveIdentity(contentStore, jwtSecret))

	// Handlers
	authHandler := handlers.NewAuthHandler()
	postHandler := handlers.NewPostHandler(contentStore)
	commentHandler := handlers.NewCommentHandler(contentStore)
	engagementHandler := handlers.NewEngagementHandler(contentStore)
	moderationHandler := handlers.NewModerationHandler(contentStore)

	api := r.Group("/api")
	{
		api.POST("/signup", authHandler.Signup)
		api.POST("/login", authHandler.Login)
		api.POST("/logout", authHandler.Logout)

		api.GET("/posts", postHandler.List)
		api.POST("/posts", postHandler.Create)
		api.GET("/posts/mine", postHandler.MyPosts)
		api.GET("/posts/:pid", postHandler.Detail)
		api.PUT("/posts/:pid", postHandler.Update)
		api.DELETE("/posts/:pid", postHandler.Delete)
		api.GET("/boards/stats", postHandler.BoardStats)

		api.GET("/posts/:pid/comments", commentHandler.Thread)
		api.POST("/posts/:pid/comments", commentHandler.Create)
		api.DELETE("/posts/:pid/comments/:cid", commentHandler.Delete)

		api.POST("/posts/:pid/like", engagementHandler.Like)
		api.POST("/posts/:pid/stamps/:stamp", engagementHandler.ClickStamp)

		api.POST("/posts/:pid/report", moderationHandler.Report)

		api.POST("/admin/identities/:id/ban", moderationHandler.Ban)
		api.DELETE("/admin/identities/:id/ban", moderationHandler.Unban)
		api.GET("/admin/identities/:id/ban", moderationHandler.BanStatus)
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("Listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
