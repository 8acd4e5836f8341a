package main

import (
	"context"
	"log"
	"time"

	"libraryms/pkg/circulation"
	"libraryms/pkg/config"
	"libraryms/pkg/database"
	"libraryms/pkg/notify"

	"github.com/gin-gonic/gin"
)

var svc *circulation.Service

func main() {
	log.Println("Starting library service...")

	cfg := config.Load()
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if cfg.SeedData {
		if err := database.Seed(db); err != nil {
			log.Fatalf("Failed to seed test data: %v", err)
		}
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.AMQPURL != "" {
		publisher := notify.NewPublisher(cfg.AMQPURL, cfg.NotifyQueue)
		defer publisher.Close()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go publisher.Run(ctx, 30*time.Second)
		notifier = publisher
		log.Printf("Publishing notifications to queue %s", cfg.NotifyQueue)
	} else {
		log.Println("AMQP_URL not set, notifications are disabled")
	}

	svc = circulation.NewService(db,
		circulation.WithPolicy(circulation.PolicyFromConfig(cfg)),
		circulation.WithNotifier(notifier),
	)

	server := gin.Default()
	registerRoutes(server)

	log.Printf("Library service starting on :%s", cfg.Port)
	if err := server.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func registerRoutes(server *gin.Engine) {
	server.POST("/api/v1/users", registerUser)
	server.POST("/api/v1/login", login)

	server.GET("/api/v1/items", searchItems)
	server.POST("/api/v1/items", createItem)
	server.GET("/api/v1/items/:itemId", getItem)
	server.PUT("/api/v1/items/:itemId", updateItem)
	server.DELETE("/api/v1/items/:itemId", deleteItem)
	server.GET("/api/v1/items/:itemId/queue", getItemQueue)
	server.POST("/api/v1/items/:itemId/checkout", checkoutItem)
	server.POST("/api/v1/items/:itemId/reserve", reserveItem)
	server.POST("/api/v1/items/:itemId/reviews", addReview)

	server.GET("/api/v1/me/loans", getMyLoans)
	server.GET("/api/v1/me/reservations", getMyReservations)
	server.GET("/api/v1/me/fines", getMyFines)

	server.POST("/api/v1/loans/:loanId/return", returnLoan)
	server.DELETE("/api/v1/reservations/:reservationId", cancelReservation)

	server.POST("/api/v1/fines/scan", scanFines)
	server.POST("/api/v1/fines/:fineId/pay", payFine)
	server.GET("/api/v1/fine-requests", getFineRequests)
	server.POST("/api/v1/fine-requests/:requestId/approve", approveFineRequest)
	server.POST("/api/v1/fine-requests/:requestId/reject", rejectFineRequest)

	server.GET("/manage/health", healthCheck)
}
