package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"

	"github.com/lltshop/shoppost/internal/app"
	"github.com/lltshop/shoppost/internal/auth"
	"github.com/lltshop/shoppost/internal/config"
	"github.com/lltshop/shoppost/internal/handlers"
	"github.com/lltshop/shoppost/internal/jobs"
	"github.com/lltshop/shoppost/internal/web"
)

// runningInLambda reports whether the process was started by the Lambda runtime
func runningInLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// applySecurity copies secrets and the environment mode into the packages that read them
func applySecurity(cfg *config.Config) {
	auth.JWTSecret = []byte(cfg.JWTSecret)
	handlers.ExposeErrorStacks = cfg.IsDevelopment()
	if cfg.AdminPasswordHash == "" {
		log.Println("Warning: ADMIN_PASSWORD_HASH not set, admin login is disabled")
	}
}

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Printf("FATAL: Configuration error: %v", err)
		os.Exit(1)
	}

	// Validate required configuration (fail fast at startup)
	if err := cfg.Validate(); err != nil {
		log.Printf("FATAL: Configuration error: %v", err)
		os.Exit(1)
	}
	applySecurity(cfg)

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Printf("FATAL: Startup failed: %v", err)
		os.Exit(1)
	}
	defer a.Close()

	router := a.Router()

	if runningInLambda() {
		// Wrap with aws-lambda-go-api-proxy for Lambda compatibility
		lambda.Start(httpadapter.New(router).ProxyWithContext)
		return
	}

	if err := serve(cfg, router, a.TokenHealthJob()); err != nil {
		log.Printf("FATAL: %v", err)
		os.Exit(1)
	}
}

// serve runs the HTTP server and the token health schedule until SIGINT or SIGTERM
func serve(cfg *config.Config, router http.Handler, tokenJob *jobs.TokenHealthJob) error {
	scheduler := jobs.NewScheduler()
	if _, err := tokenJob.Schedule(scheduler, cfg.TokenCheckSchedule); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return web.NewServer(cfg.HTTPAddr, router).Run(ctx)
}
