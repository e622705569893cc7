// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"context"
	"log"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// ResidencePassageClass is the Weaviate class queried by the retrieval
// fan-out. Ingestion is owned by the content pipeline; this service only
// guarantees the class exists with the fields it filters and selects on.
const ResidencePassageClass = "ResidencePassage"

func GetResidencePassageSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       ResidencePassageClass,
		Description: "A retrievable content passage scoped to a property or the corporate site.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "The passage text injected into prompts as grounding.",
				Tokenization: "word",
			},
			{
				Name:            "sectionId",
				DataType:        []string{"int"},
				Description:     "Source document section identifier.",
				IndexFilterable: indexFilterable,
			},
			{
				Name:            "scopeId",
				DataType:        []string{"text"},
				Description:     "Property or corporate identifier this passage belongs to.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "language",
				DataType:        []string{"text"},
				Description:     "Content language code (en or fr).",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
		},
	}
}

// EnsureConciergeSchema creates the retrieval class if it does not exist.
func EnsureConciergeSchema(client *weaviate.Client) {
	schemaGetters := []func() *models.Class{
		GetResidencePassageSchema,
	}

	for _, getSchema := range schemaGetters {
		class := getSchema()
		slog.Info("Checking schema", "class", class.Class)

		// Check if the class already exists.
		_, err := client.Schema().ClassGetter().WithClassName(class.Class).Do(context.Background())
		if err != nil {
			// If it doesn't exist, the client returns an error. We can now create it.
			slog.Info("Schema not found, creating it...", "class", class.Class)
			err := client.Schema().ClassCreator().WithClass(class).Do(context.Background())
			if err != nil {
				log.Fatalf("Failed to create schema for class %s: %v", class.Class, err)
			}
			slog.Info("Successfully created schema", "class", class.Class)
		} else {
			slog.Info("Schema already exists", "class", class.Class)
		}
	}
}
