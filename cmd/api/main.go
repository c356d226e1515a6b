package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/retailpoint/pos-checkout/internal/aws"
	"github.com/retailpoint/pos-checkout/internal/checkout"
	"github.com/retailpoint/pos-checkout/internal/commerce"
	"github.com/retailpoint/pos-checkout/internal/handlers"
	"github.com/retailpoint/pos-checkout/internal/idempotency"
	"github.com/retailpoint/pos-checkout/internal/outcomes"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterCheckoutRoutes(r, cfg)

	return r
}

func main() {
	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	backend := commerce.NewClient(
		os.Getenv("BACKEND_BASE_URL"),
		os.Getenv("BACKEND_API_TOKEN"),
		&http.Client{Timeout: 60 * time.Second},
	)
	saga := checkout.NewCoordinator(backend, backend, backend, checkout.NewProductResolver(backend))

	cfg := handlers.HandlerConfig{
		Saga:        saga,
		Attempts:    idempotency.NewStore(clients.DynamoDB, os.Getenv("IDEMPOTENCY_TABLE"), 48*time.Hour),
		StuckOrders: outcomes.NewStore(clients.DynamoDB, os.Getenv("STUCK_ORDERS_TABLE")),
		Alerts:      aws.NewAlertPublisher(clients.SQS, os.Getenv("ALERTS_QUEUE_URL")),
		Metrics:     aws.NewMetricsEmitter(clients.CloudWatch, os.Getenv("METRICS_NAMESPACE")),
	}

	r := setupRouter(cfg)

	// if environment variable RUN_LOCAL is set to "true", run a local HTTP
	// server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":8080"
		log.Printf("running local server on %s", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
