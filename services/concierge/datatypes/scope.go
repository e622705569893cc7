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

import "errors"

// =============================================================================
// Languages
// =============================================================================

const (
	// LanguageEnglish selects the English rule blocks and link allowlist.
	LanguageEnglish = "en"

	// LanguageFrench selects the French rule blocks and link allowlist.
	LanguageFrench = "fr"
)

// =============================================================================
// Validation Errors
// =============================================================================

var (
	// ErrUnresolvableScope is returned when a request names neither the
	// corporate scope nor a property.
	ErrUnresolvableScope = errors.New("scope requires is_corporate or a property_id")

	// ErrUnknownLanguage is returned for languages outside en/fr.
	ErrUnknownLanguage = errors.New("language must be \"en\" or \"fr\"")

	// ErrOverrideTooLarge is returned when a prompt override exceeds
	// MaxOverrideBytes.
	ErrOverrideTooLarge = errors.New("prompt override exceeds size limit")

	// ErrDeveloperTurnInHistory is returned when the caller tries to smuggle
	// an instruction turn into the history. The service synthesizes exactly
	// one developer turn itself.
	ErrDeveloperTurnInHistory = errors.New("history must not contain developer turns")
)

// =============================================================================
// Scope Types
// =============================================================================

// PriceEntry is one suite pricing row for a property.
//
// Read-only, sourced from the property-data collaborator. PromoPrice is nil
// when no promotion applies.
type PriceEntry struct {
	PlanName         string   `json:"plan_name"`
	BedroomType      string   `json:"bedroom_type"`
	RegularPrice     float64  `json:"regular_price"`
	PromoPrice       *float64 `json:"promo_price,omitempty"`
	IncludedFeatures []string `json:"included_features,omitempty"`
	OptionalFeatures []string `json:"optional_features,omitempty"`
}

// ScopeDescriptor selects the prompt template family and the data injected
// into it.
//
// # Description
//
// Constructed from caller-supplied identifiers, never inferred from message
// content, and immutable for the lifetime of one request. When IsCorporate
// is true the property-specific fields are ignored by the template engine
// even if present.
//
// # Fields
//
//   - IsCorporate: Selects the corporate template family.
//   - PropertyID: Identifier of the property scope; empty under pure
//     corporate scope.
//   - CorporateID: Identifier for the corporate fallback retrieval calls;
//     fallback is skipped when empty or equal to PropertyID.
//   - Language: "en" or "fr"; defaults to "en".
//   - PropertyName, Address, ContactNumber, LivingOptions, SuitePricing,
//     UpcomingEvents: property data injected into the per-property
//     template; may be enriched from the property-data collaborator when
//     the caller supplies identifiers only.
type ScopeDescriptor struct {
	IsCorporate    bool         `json:"is_corporate"`
	PropertyID     string       `json:"property_id,omitempty"`
	CorporateID    string       `json:"corporate_id,omitempty"`
	Language       string       `json:"language,omitempty"`
	PropertyName   string       `json:"property_name,omitempty"`
	Address        string       `json:"address,omitempty"`
	ContactNumber  string       `json:"contact_number,omitempty"`
	LivingOptions  []string     `json:"living_options,omitempty"`
	SuitePricing   []PriceEntry `json:"suite_pricing,omitempty"`
	UpcomingEvents string       `json:"upcoming_events,omitempty"`
}

// Validate checks that the scope is resolvable.
func (s *ScopeDescriptor) Validate() error {
	if !s.IsCorporate && s.PropertyID == "" {
		return ErrUnresolvableScope
	}
	switch s.Language {
	case "", LanguageEnglish, LanguageFrench:
		return nil
	default:
		return ErrUnknownLanguage
	}
}

// EnsureDefaults normalizes optional scope fields.
func (s *ScopeDescriptor) EnsureDefaults() {
	if s.Language == "" {
		s.Language = LanguageEnglish
	}
}

// PrimaryScopeID returns the identifier used for the scoped retrieval
// calls: the property under property scope, else the corporate id.
func (s *ScopeDescriptor) PrimaryScopeID() string {
	if s.PropertyID != "" {
		return s.PropertyID
	}
	return s.CorporateID
}

// FallbackScopeID returns the corporate identifier for the fallback
// retrieval calls, or "" when the fallback must be skipped (no corporate
// id, or corporate id equal to the primary scope).
func (s *ScopeDescriptor) FallbackScopeID() string {
	if s.CorporateID == "" || s.CorporateID == s.PrimaryScopeID() {
		return ""
	}
	return s.CorporateID
}
