// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/ResidenceConcierge/services/concierge/datatypes"
	"github.com/AleutianAI/ResidenceConcierge/services/concierge/observability"
	"github.com/AleutianAI/ResidenceConcierge/services/concierge/prompt"
	"github.com/AleutianAI/ResidenceConcierge/services/concierge/propertydata"
	"github.com/AleutianAI/ResidenceConcierge/services/concierge/retrieval"
	"github.com/AleutianAI/ResidenceConcierge/services/concierge/routes"
	"github.com/AleutianAI/ResidenceConcierge/services/llm"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "concierge-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("concierge-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// newWeaviateClient builds the passage-store client from
// WEAVIATE_SERVICE_URL and ensures the schema exists.
func newWeaviateClient() *weaviate.Client {
	weaviateURL := os.Getenv("WEAVIATE_SERVICE_URL")
	// Sanitize: Trim quotes and whitespace just in case the container
	// runtime passes them literally
	weaviateURL = strings.Trim(weaviateURL, "\"' ")

	if weaviateURL == "" || !strings.Contains(weaviateURL, "http") {
		log.Fatalf("FATAL: WEAVIATE_SERVICE_URL is not set; the concierge cannot serve grounded answers without the passage store")
	}

	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		log.Fatalf("FATAL: WEAVIATE_SERVICE_URL is invalid: %q (%v)", weaviateURL, err)
	}

	clientConf := weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	}
	weaviateClient, err := weaviate.NewClient(clientConf)
	if err != nil {
		log.Fatalf("FATAL: Failed to create Weaviate client: %v", err)
	}

	datatypes.EnsureConciergeSchema(weaviateClient)
	return weaviateClient
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "12310"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	observability.InitMetrics()

	weaviateClient := newWeaviateClient()

	embedder, err := retrieval.NewHTTPEmbedder()
	if err != nil {
		log.Fatalf("FATAL: Could not configure the embedding client: %v", err)
	}
	retriever := retrieval.NewClient(weaviateClient, embedder)

	log.Println("Configuring the LLM Client")
	llmClient, err := llm.NewOpenAIClient()
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	var directory propertydata.Directory
	if dirClient, err := propertydata.NewClient(); err != nil {
		slog.Warn("PROPERTY_DATA_SERVICE_URL not set; scope enrichment disabled", "error", err)
	} else {
		directory = dirClient
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("concierge-service"))

	routes.SetupRoutes(router, llmClient, retriever, prompt.NewEngine(), directory)

	log.Println("Starting the concierge server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
