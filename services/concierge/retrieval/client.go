// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/ResidenceConcierge/services/concierge/datatypes"
)

var tracer = otel.Tracer("concierge.retrieval")

// DefaultLimitPerSource is the result limit applied to each of the four
// retrieval calls when the caller does not specify one.
const DefaultLimitPerSource = 5

// SourceQuerier issues a single scoped search against the retrieval
// collaborator. Both methods return results with 1-based source-local
// ranks already assigned.
type SourceQuerier interface {
	VectorSearch(ctx context.Context, vector []float32, scopeID, language string, limit int) ([]datatypes.SearchResult, error)
	KeywordSearch(ctx context.Context, query, scopeID, language string, limit int) ([]datatypes.SearchResult, error)
}

// Client issues the four-way retrieval fan-out for a chat turn.
//
// # Description
//
// For a property-scoped request the fan-out is: vector-by-property,
// vector-by-corporate, keyword-by-property, keyword-by-corporate. The
// corporate fallback calls are skipped when the corporate id is empty or
// equal to the primary scope, so such requests issue two calls, not four.
// Every call is independently fallible; failures degrade that source to an
// empty list and never abort the chat turn.
//
// # Thread Safety
//
// Client is safe for concurrent use.
type Client struct {
	querier  SourceQuerier
	embedder EmbeddingProvider
}

// NewClient creates a retrieval client over a Weaviate connection.
func NewClient(weaviateClient *weaviate.Client, embedder EmbeddingProvider) *Client {
	return &Client{
		querier:  &weaviateQuerier{client: weaviateClient},
		embedder: embedder,
	}
}

// NewClientWithQuerier creates a retrieval client with a custom querier.
// Used by tests to count and stub the individual source calls.
func NewClientWithQuerier(querier SourceQuerier, embedder EmbeddingProvider) *Client {
	return &Client{querier: querier, embedder: embedder}
}

// FetchCandidates runs the retrieval fan-out and returns one result list
// per source in fixed priority order: vector-scope, vector-corporate,
// keyword-scope, keyword-corporate. Skipped fallback sources produce no
// list at all (the returned slice is shorter).
//
// The error return is reserved for context cancellation; individual source
// failures degrade to empty lists.
func (c *Client) FetchCandidates(ctx context.Context, message string, scope datatypes.ScopeDescriptor, limitPerSource int) ([][]datatypes.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "FetchCandidates")
	defer span.End()

	if limitPerSource <= 0 {
		limitPerSource = DefaultLimitPerSource
	}

	primaryID := scope.PrimaryScopeID()
	fallbackID := scope.FallbackScopeID()
	language := scope.Language

	// Embed once; both vector calls share the vector. An embedding failure
	// degrades the vector sources to empty while keyword search still runs.
	vector, embedErr := c.embedder.Embed(ctx, message)
	if embedErr != nil {
		slog.Warn("Query embedding failed, vector sources degraded to empty", "error", embedErr)
	}

	tasks := make([]Task[[]datatypes.SearchResult], 0, 4)
	if embedErr == nil {
		tasks = append(tasks, Task[[]datatypes.SearchResult]{
			Name: "vector-scope",
			Run: func(ctx context.Context) ([]datatypes.SearchResult, error) {
				return c.querier.VectorSearch(ctx, vector, primaryID, language, limitPerSource)
			},
		})
		if fallbackID != "" {
			tasks = append(tasks, Task[[]datatypes.SearchResult]{
				Name: "vector-corporate",
				Run: func(ctx context.Context) ([]datatypes.SearchResult, error) {
					return c.querier.VectorSearch(ctx, vector, fallbackID, language, limitPerSource)
				},
			})
		}
	}
	tasks = append(tasks, Task[[]datatypes.SearchResult]{
		Name: "keyword-scope",
		Run: func(ctx context.Context) ([]datatypes.SearchResult, error) {
			return c.querier.KeywordSearch(ctx, message, primaryID, language, limitPerSource)
		},
	})
	if fallbackID != "" {
		tasks = append(tasks, Task[[]datatypes.SearchResult]{
			Name: "keyword-corporate",
			Run: func(ctx context.Context) ([]datatypes.SearchResult, error) {
				return c.querier.KeywordSearch(ctx, message, fallbackID, language, limitPerSource)
			},
		})
	}

	span.SetAttributes(
		attribute.Int("retrieval.sources", len(tasks)),
		attribute.Bool("retrieval.fallback_skipped", fallbackID == ""),
	)

	sources, failed := FanOutBestEffort(ctx, tasks, []datatypes.SearchResult{})
	if failed > 0 {
		slog.Warn("Retrieval fan-out degraded", "failed", failed, "total", len(tasks))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sources, nil
}

// =============================================================================
// Weaviate Querier
// =============================================================================

type weaviateQuerier struct {
	client *weaviate.Client
}

func (q *weaviateQuerier) VectorSearch(ctx context.Context, vector []float32, scopeID, language string, limit int) ([]datatypes.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "VectorSearch")
	defer span.End()

	nearVector := q.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	// Certainty is requested instead of distance: it is always [0,1]
	// regardless of the configured distance metric.
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "sectionId"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "certainty"},
		}},
	}

	result, err := q.client.GraphQL().Get().
		WithClassName(datatypes.ResidencePassageClass).
		WithFields(fields...).
		WithWhere(scopeFilter(scopeID, language)).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate vector search failed: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.PassageQueryResponse](result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vector results: %w", err)
	}
	return toSearchResults(parsed, datatypes.SourceVector), nil
}

func (q *weaviateQuerier) KeywordSearch(ctx context.Context, query, scopeID, language string, limit int) ([]datatypes.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "KeywordSearch")
	defer span.End()

	bm25 := q.client.GraphQL().Bm25ArgBuilder().
		WithQuery(query).
		WithProperties("content")

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "sectionId"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "score"},
		}},
	}

	result, err := q.client.GraphQL().Get().
		WithClassName(datatypes.ResidencePassageClass).
		WithFields(fields...).
		WithWhere(scopeFilter(scopeID, language)).
		WithBM25(bm25).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate keyword search failed: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.PassageQueryResponse](result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse keyword results: %w", err)
	}
	return toSearchResults(parsed, datatypes.SourceKeyword), nil
}

// scopeFilter builds the where clause restricting passages to one scope
// and language.
func scopeFilter(scopeID, language string) *filters.WhereBuilder {
	scopeClause := filters.Where().
		WithPath([]string{"scopeId"}).
		WithOperator(filters.Equal).
		WithValueString(scopeID)

	if language == "" {
		return scopeClause
	}

	languageClause := filters.Where().
		WithPath([]string{"language"}).
		WithOperator(filters.Equal).
		WithValueString(language)

	return filters.Where().
		WithOperator(filters.And).
		WithOperands([]*filters.WhereBuilder{scopeClause, languageClause})
}

// toSearchResults normalizes parsed passages, assigning 1-based
// source-local ranks. Ranks are never comparable across sources.
func toSearchResults(resp *datatypes.PassageQueryResponse, sourceType datatypes.SourceType) []datatypes.SearchResult {
	if resp == nil {
		return []datatypes.SearchResult{}
	}

	results := make([]datatypes.SearchResult, 0, len(resp.Get.ResidencePassage))
	for i, passage := range resp.Get.ResidencePassage {
		var score *float64
		switch {
		case passage.Additional.Certainty != nil:
			score = passage.Additional.Certainty
		case passage.Additional.Score != nil:
			// BM25 scores arrive as strings in the GraphQL payload.
			if parsed, err := strconv.ParseFloat(*passage.Additional.Score, 64); err == nil {
				score = &parsed
			}
		}

		results = append(results, datatypes.SearchResult{
			Content:    passage.Content,
			SectionID:  passage.SectionID,
			SourceType: sourceType,
			Rank:       i + 1,
			Score:      score,
		})
	}
	return results
}
