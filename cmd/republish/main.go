// Package main implements the republish Lambda.
// Re-runs the publish pipeline for one stored product, as an explicit retry after a
// failed or partial publish. Outside Lambda it takes the product id as its argument.
//
// Expected event:
//
//	{"product_id": "6f1c2d9e-8a57-4b0e-9c1a-1f2e3d4c5b6a"}
//
// Response:
//
//	{"statusCode": 200, "body": {"message": "...", "product_id": "...", "action": "published|error", "posts": [...]}}
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/lltshop/shoppost/internal/app"
	"github.com/lltshop/shoppost/internal/config"
	"github.com/lltshop/shoppost/internal/database"
	"github.com/lltshop/shoppost/internal/orchestrator"
)

// Request is the expected Lambda event format
type Request struct {
	ProductID string `json:"product_id"`
}

// ResponseBody is the body of the Lambda response
type ResponseBody struct {
	Message   string              `json:"message"`
	ProductID string              `json:"product_id"`
	Action    string              `json:"action"`
	Posts     []orchestrator.Post `json:"posts,omitempty"`
}

// Response is the Lambda response format
type Response struct {
	StatusCode int          `json:"statusCode"`
	Body       ResponseBody `json:"body"`
}

// Republisher runs the pipeline for a stored product
type Republisher interface {
	Republish(ctx context.Context, productID string) (*orchestrator.Result, error)
}

var (
	// pipeline is built on first use and reused across warm invocations
	pipeline Republisher

	// buildPipeline allows injection for testing
	buildPipeline = func(ctx context.Context) (Republisher, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		a, err := app.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return a.Orchestrator, nil
	}
)

func errorResponse(status int, productID, message string) Response {
	return Response{
		StatusCode: status,
		Body: ResponseBody{
			Message:   message,
			ProductID: productID,
			Action:    "error",
		},
	}
}

func handler(ctx context.Context, event Request) (Response, error) {
	eventJSON, _ := json.Marshal(event)
	log.Printf("Received event: %s", string(eventJSON))

	productID := strings.TrimSpace(event.ProductID)
	if productID == "" {
		return errorResponse(400, "", "product_id is required"), nil
	}

	// Initialize the pipeline if not set (allows injection for testing)
	if pipeline == nil {
		p, err := buildPipeline(ctx)
		if err != nil {
			log.Printf("Error initializing pipeline: %v", err)
			return errorResponse(500, productID, fmt.Sprintf("failed to initialize: %v", err)), nil
		}
		pipeline = p
	}

	result, err := pipeline.Republish(ctx, productID)
	if err != nil {
		log.Printf("Republish of %s failed: %v", productID, err)
		switch {
		case errors.Is(err, database.ErrProductNotFound):
			return errorResponse(404, productID, "product not found"), nil
		case errors.Is(err, orchestrator.ErrNotPublishable):
			return errorResponse(400, productID, err.Error()), nil
		}
		resp := errorResponse(500, productID, fmt.Sprintf("Error: %v", err))
		// a persistence failure after posting still created posts; report them
		if result != nil {
			resp.Body.Posts = result.Posts
		}
		return resp, nil
	}

	log.Printf("Successfully republished %s: %d post(s)", productID, len(result.Posts))
	return Response{
		StatusCode: 200,
		Body: ResponseBody{
			Message:   fmt.Sprintf("Published %d post(s)", len(result.Posts)),
			ProductID: productID,
			Action:    "published",
			Posts:     result.Posts,
		},
	}, nil
}

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(handler)
		return
	}

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: republish <product-id>")
		os.Exit(2)
	}
	resp, _ := handler(context.Background(), Request{ProductID: os.Args[1]})
	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))
	if resp.StatusCode != 200 {
		os.Exit(1)
	}
}
