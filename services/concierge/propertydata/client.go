// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package propertydata fetches per-residence directory records used to
// enrich a request scope before prompt rendering.
//
// # Description
//
// The property-data collaborator is a small internal HTTP service holding
// the residence directory: name, address, phone, living options, suite
// pricing, and upcoming events. The chat handler uses it to fill scope
// fields the caller left empty; caller-supplied fields always win.
//
// # Limitations
//
//   - Read-only. The directory is maintained elsewhere.
//   - Lookups are best-effort; a miss degrades to the caller's own fields.
package propertydata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/AleutianAI/ResidenceConcierge/services/concierge/datatypes"
)

// Property is one directory record for a residence.
type Property struct {
	PropertyID     string                 `json:"propertyId"`
	CorporateID    string                 `json:"corporateId,omitempty"`
	Name           string                 `json:"name"`
	Address        string                 `json:"address,omitempty"`
	ContactNumber  string                 `json:"contactNumber,omitempty"`
	LivingOptions  []string               `json:"livingOptions,omitempty"`
	SuitePricing   []datatypes.PriceEntry `json:"suitePricing,omitempty"`
	UpcomingEvents string                 `json:"upcomingEvents,omitempty"`
}

// Directory looks up residence records by property id.
type Directory interface {
	// GetProperty returns the directory record for a property id, or an
	// error when the record does not exist or the service is unreachable.
	GetProperty(ctx context.Context, propertyID string) (*Property, error)
}

// Client is an HTTP Directory backed by the property-data service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Directory = (*Client)(nil)

// NewClient creates a client from the PROPERTY_DATA_SERVICE_URL environment
// variable.
func NewClient() (*Client, error) {
	baseURL := os.Getenv("PROPERTY_DATA_SERVICE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("PROPERTY_DATA_SERVICE_URL not set")
	}
	return NewClientWithURL(baseURL), nil
}

// NewClientWithURL creates a client against an explicit base URL. Used by
// tests with an httptest server.
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetProperty fetches one residence record.
func (c *Client) GetProperty(ctx context.Context, propertyID string) (*Property, error) {
	if propertyID == "" {
		return nil, fmt.Errorf("propertyID is empty")
	}

	endpoint := fmt.Sprintf("%s/v1/properties/%s", c.baseURL, url.PathEscape(propertyID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create property request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("property-data request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("property %q not found", propertyID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("property-data service returned status %d", resp.StatusCode)
	}

	var property Property
	if err := json.NewDecoder(resp.Body).Decode(&property); err != nil {
		return nil, fmt.Errorf("failed to decode property response: %w", err)
	}
	return &property, nil
}

// EnrichScope fills empty scope fields from the directory record for the
// scope's property. Caller-supplied fields are never overwritten. Corporate
// scopes and lookup failures leave the scope unchanged.
func EnrichScope(ctx context.Context, directory Directory, scope *datatypes.ScopeDescriptor) error {
	if directory == nil || scope == nil || scope.IsCorporate || scope.PropertyID == "" {
		return nil
	}

	property, err := directory.GetProperty(ctx, scope.PropertyID)
	if err != nil {
		return err
	}

	if scope.CorporateID == "" {
		scope.CorporateID = property.CorporateID
	}
	if scope.PropertyName == "" {
		scope.PropertyName = property.Name
	}
	if scope.Address == "" {
		scope.Address = property.Address
	}
	if scope.ContactNumber == "" {
		scope.ContactNumber = property.ContactNumber
	}
	if len(scope.LivingOptions) == 0 {
		scope.LivingOptions = property.LivingOptions
	}
	if len(scope.SuitePricing) == 0 {
		scope.SuitePricing = property.SuitePricing
	}
	if scope.UpcomingEvents == "" {
		scope.UpcomingEvents = property.UpcomingEvents
	}
	return nil
}
