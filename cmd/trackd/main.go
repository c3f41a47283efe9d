package main

import (
	"log"
	"os"

	"task-tracking-client/internal/database"
	"task-tracking-client/internal/routes"
)

func main() {
	// Init database
	database.InitDB()
	if err := database.SeedDefaults(); err != nil {
		log.Fatal("Failed to seed database: ", err)
	}

	// Setup the routes (public and protected routes)
	ginRoutes := routes.SetupRoutes()

	// Start server
	port := ":" + getEnv("PORT", "8008")
	log.Printf("Server starting on port %s", port)
	log.Println("API endpoints:")
	log.Println("  POST   /api/login")
	log.Println("  GET    /api/tasks")
	log.Println("  GET    /api/tasks/:id")
	log.Println("  POST   /api/tasks")
	log.Println("  PUT    /api/tasks/:id")
	log.Println("  PATCH  /api/tasks/:id/status")
	log.Println("  DELETE /api/tasks/:id")
	log.Println("  POST   /api/tasks/:id/subtasks")
	log.Println("  PUT    /api/tasks/:id/subtasks/:subId")
	log.Println("  DELETE /api/tasks/:id/subtasks/:subId")
	log.Println("  GET    /api/tasks/dashboard/stats")
	log.Println("  GET    /api/users")
	log.Println("  GET    /api/companies")
	log.Println("  GET    /api/ws")
	log.Println("  GET    /health")

	if err := ginRoutes.Run(port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
