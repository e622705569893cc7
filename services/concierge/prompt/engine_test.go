// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prompt

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/ResidenceConcierge/services/concierge/datatypes"
)

func corporateScope(language string) datatypes.ScopeDescriptor {
	return datatypes.ScopeDescriptor{
		IsCorporate: true,
		CorporateID: "corp-1",
		Language:    language,
	}
}

func propertyScope() datatypes.ScopeDescriptor {
	return datatypes.ScopeDescriptor{
		PropertyID:    "prop-1",
		CorporateID:   "corp-1",
		Language:      datatypes.LanguageEnglish,
		PropertyName:  "Chartwell Riverside",
		Address:       "100 River Rd, Ottawa, ON",
		ContactNumber: "613-555-0142",
		LivingOptions: []string{"Independent Living", "Assisted Living"},
		SuitePricing: []datatypes.PriceEntry{
			{PlanName: "Independent Living", BedroomType: "1BR", RegularPrice: 3200},
		},
		UpcomingEvents: "Garden party on Saturday",
	}
}

func TestRender_CorporateContainsInjectedContext(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	sentinel := "SENTINEL-PASSAGE-42"

	rendered, err := engine.Render(context.Background(), corporateScope("en"), sentinel, "")
	require.NoError(t, err)

	assert.Contains(t, rendered, sentinel)
	assert.Contains(t, rendered, "<residence_data>")
	assert.Contains(t, rendered, "</residence_data>")
}

func TestRender_NoUnresolvedPlaceholders(t *testing.T) {
	t.Parallel()

	engine := NewEngine()

	for _, scope := range []datatypes.ScopeDescriptor{corporateScope("en"), propertyScope()} {
		rendered, err := engine.Render(context.Background(), scope, "some context", "")
		require.NoError(t, err)
		assert.NotContains(t, rendered, "{{", "rendered prompt must not contain unresolved placeholders")
		assert.NotContains(t, rendered, "}}")
	}
}

func TestRender_EmptyContextStillWellFormed(t *testing.T) {
	t.Parallel()

	engine := NewEngine()

	rendered, err := engine.Render(context.Background(), corporateScope("en"), "", "")
	require.NoError(t, err)

	assert.Contains(t, rendered, "No verified content was found")
	assert.Contains(t, rendered, "Type B")
	assert.Contains(t, rendered, "<residence_data>")
}

func TestRender_CorporateCatalogueComplete(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	rendered, err := engine.Render(context.Background(), corporateScope("en"), "ctx", "")
	require.NoError(t, err)

	for _, answerType := range []string{
		"Type A", "Type B", "Type C", "Type D", "Type E", "Type F", "Type R", "Type G", "Type X",
	} {
		assert.Contains(t, rendered, answerType)
	}
	assert.Contains(t, rendered, "FindResidence flow")
	assert.Contains(t, rendered, "Routing order")
	assert.Contains(t, rendered, "Never ask for a province or postal code")
	assert.Contains(t, rendered, "Never append a follow-up question to a Type C answer")
}

func TestRender_PropertyCatalogueAndPricing(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	rendered, err := engine.Render(context.Background(), propertyScope(), "", "")
	require.NoError(t, err)

	assert.Contains(t, rendered, "Chartwell Riverside")
	assert.Contains(t, rendered, "Starting from $3200/month")
	assert.Contains(t, rendered, "Garden party on Saturday")
	assert.Contains(t, rendered, "613-555-0142")
	assert.Contains(t, rendered, `"typically"`)
	assert.Contains(t, rendered, "never give a booking link")

	for _, answerType := range []string{
		"Type A", "Type B", "Type C", "Type D", "Type E", "Type F", "Type R", "Type G", "Type X",
	} {
		assert.Contains(t, rendered, answerType)
	}
}

func TestRender_PromoPriceLine(t *testing.T) {
	t.Parallel()

	promo := 2950.0
	scope := propertyScope()
	scope.SuitePricing = []datatypes.PriceEntry{
		{
			PlanName:         "Assisted Living",
			BedroomType:      "Studio",
			RegularPrice:     3400,
			PromoPrice:       &promo,
			IncludedFeatures: []string{"meals", "housekeeping"},
		},
	}

	engine := NewEngine()
	rendered, err := engine.Render(context.Background(), scope, "", "")
	require.NoError(t, err)

	assert.Contains(t, rendered, "Starting from $3400/month")
	assert.Contains(t, rendered, "promotional rate $2950/month")
	assert.Contains(t, rendered, "meals, housekeeping")
}

func TestRender_LanguageExclusiveLinks(t *testing.T) {
	t.Parallel()

	engine := NewEngine()

	english, err := engine.Render(context.Background(), corporateScope("en"), "ctx", "")
	require.NoError(t, err)
	assert.Contains(t, english, "https://chartwell.com/contact-us")
	assert.NotContains(t, english, "https://chartwell.com/fr/")

	french, err := engine.Render(context.Background(), corporateScope("fr"), "ctx", "")
	require.NoError(t, err)
	assert.Contains(t, french, "https://chartwell.com/fr/contactez-nous")
	assert.NotContains(t, french, "https://chartwell.com/contact-us")
	assert.NotContains(t, french, "https://chartwell.com/find-a-residence")
}

func TestRender_CorporateIgnoresPropertyFields(t *testing.T) {
	t.Parallel()

	scope := corporateScope("en")
	scope.PropertyName = "Should Not Appear"
	scope.SuitePricing = []datatypes.PriceEntry{
		{PlanName: "X", BedroomType: "1BR", RegularPrice: 9999},
	}

	engine := NewEngine()
	rendered, err := engine.Render(context.Background(), scope, "ctx", "")
	require.NoError(t, err)

	assert.NotContains(t, rendered, "Should Not Appear")
	assert.NotContains(t, rendered, "9999")
}

func TestRender_OverrideRawPlaceholder(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	raw := "alpha\n---\nbeta"
	override := "Custom instructions.\nContext: {{data_context}}\nEnd."

	rendered, err := engine.Render(context.Background(), corporateScope("en"), raw, override)
	require.NoError(t, err)

	want := "Custom instructions.\nContext: alpha\n---\nbeta\nEnd."
	assert.Equal(t, want, rendered, "raw placeholder must inject the joined string byte-for-byte")
	assert.NotContains(t, rendered, "<residence_data>")
}

func TestRender_OverrideBlockPlaceholder(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	override := "Custom instructions.\n{{data_context_block}}\nEnd."

	rendered, err := engine.Render(context.Background(), corporateScope("en"), "gamma", override)
	require.NoError(t, err)

	assert.Contains(t, rendered, "<residence_data>\ngamma\n</residence_data>")
	assert.NotContains(t, rendered, "{{data_context_block}}")
}

func TestRender_OverrideWithoutPlaceholderAppendsBlock(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	override := "Just my own instructions."

	rendered, err := engine.Render(context.Background(), corporateScope("en"), "delta", override)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rendered, override), "override text must be preserved unchanged")
	assert.Contains(t, rendered, "<residence_data>\ndelta\n</residence_data>")
}

func TestRender_BlockPlaceholderWinsOverRaw(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	override := "A {{data_context_block}} B {{data_context}} C"

	rendered, err := engine.Render(context.Background(), corporateScope("en"), "epsilon", override)
	require.NoError(t, err)

	assert.Contains(t, rendered, "<residence_data>\nepsilon\n</residence_data>")
	// The raw placeholder is left as-is when the block form is present.
	assert.Contains(t, rendered, "{{data_context}}")
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	in := "line one\n\n  line\ttwo   three\n"
	assert.Equal(t, "line one line two three", Normalize(in))
}

func TestRegistry_BlockLookupAndDuplicatePanic(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registerCorporateBlocks(registry)

	render, ok := registry.Block(FamilyCorporate, BlockFollowUpPolicy)
	require.True(t, ok)
	assert.Contains(t, render(RenderInput{}), "exactly one follow-up question")

	assert.Panics(t, func() {
		registry.MustRegister(FamilyCorporate, BlockRole, corporateRole)
	})
}

func TestWrapContext(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "<residence_data>\nabc\n</residence_data>", WrapContext("abc"))
	assert.Contains(t, WrapContext(""), "No verified content was found")
	assert.Contains(t, WrapContext("   \n\t"), "No verified content was found")
}
