// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/ResidenceConcierge/services/concierge/handlers"
	"github.com/AleutianAI/ResidenceConcierge/services/concierge/prompt"
	"github.com/AleutianAI/ResidenceConcierge/services/concierge/propertydata"
	"github.com/AleutianAI/ResidenceConcierge/services/concierge/retrieval"
	"github.com/AleutianAI/ResidenceConcierge/services/llm"
)

// SetupRoutes wires the concierge endpoints onto the router.
//
// directory may be nil; scope enrichment is then skipped.
func SetupRoutes(router *gin.Engine, llmClient llm.LLMClient, retriever *retrieval.Client,
	engine *prompt.Engine, directory propertydata.Directory) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	chatHandler := handlers.NewChatHandler(llmClient, retriever, engine, directory)

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/chat", chatHandler.HandleChatStream)
		v1.POST("/prompt/preview", chatHandler.HandlePromptPreview)
	}
}
