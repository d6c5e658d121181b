// Copyright (C) 2025 FireDeck Analytics (engineering@firedeck.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ingest validates uploaded tabular records against per-entity
// templates before the data is accepted into the analytics pipeline.
//
// # Description
//
// A Template names the fields an entity kind must and may carry, plus
// enumerated value sets for constrained fields. Built-in templates for
// incidents, vendors and fire stations mirror the canonical sample data
// model; deployments can override or extend them from a YAML file that
// is hot-reloaded on change.
package ingest

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Template is a named ingestion schema: which fields a row must carry,
// which it may carry, and which values constrained fields accept.
type Template struct {
	Name     string              `yaml:"name"`
	Required []string            `yaml:"required"`
	Optional []string            `yaml:"optional"`
	Allowed  map[string][]string `yaml:"allowed"`
}

// Enumerated value sets from the canonical data model.
var (
	severityLevels = []string{"Low", "Medium", "High", "Critical"}

	incidentTypes = []string{
		"Building Fire", "Vehicle Fire", "Forest Fire", "Industrial Fire",
		"Electrical Fire", "Kitchen Fire", "Chemical Fire", "Gas Leak",
	}

	vendorTypes = []string{
		"Equipment Supplier", "Maintenance Service",
		"Training Provider", "Safety Gear Supplier",
	}
)

// builtinTemplates returns the compiled-in schemas. Called once per
// registry so callers can mutate their copy freely.
func builtinTemplates() map[string]Template {
	return map[string]Template{
		"incident": {
			Name: "incident",
			Required: []string{
				"incident_id", "timestamp", "state", "city",
				"incident_type", "severity", "response_time_minutes",
			},
			Optional: []string{
				"district", "location", "latitude", "longitude",
				"resolution_time_minutes", "casualties", "injuries",
				"property_damage_inr", "station_id", "vehicles_deployed",
				"personnel_count", "cause", "remarks",
			},
			Allowed: map[string][]string{
				"severity":      severityLevels,
				"incident_type": incidentTypes,
			},
		},
		"vendor": {
			Name: "vendor",
			Required: []string{
				"vendor_id", "vendor_name", "vendor_type",
				"contract_id", "contract_start_date", "contract_end_date",
			},
			Optional: []string{
				"registration_no", "contact_person", "email", "phone",
				"address", "contract_value_inr", "performance_score",
				"total_deliveries",
			},
			Allowed: map[string][]string{
				"vendor_type": vendorTypes,
			},
		},
		"station": {
			Name: "station",
			Required: []string{
				"station_id", "station_name", "state", "city",
			},
			Optional: []string{
				"address", "latitude", "longitude", "personnel_count",
				"vehicles", "established_year", "coverage_area_sqkm",
			},
		},
	}
}

// Registry holds the active templates. Reads vastly outnumber writes
// (writes only happen on a hot reload), hence the RWMutex.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewRegistry creates a registry seeded with the built-in templates.
func NewRegistry() *Registry {
	return &Registry{templates: builtinTemplates()}
}

// Get returns the template for a kind.
func (r *Registry) Get(kind string) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tpl, ok := r.templates[kind]
	return tpl, ok
}

// Names returns the registered template kinds, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFile merges template overrides from a YAML file on top of the
// built-ins. An override with a known name replaces that built-in
// wholesale; a new name adds a template. The merge is atomic: on any
// error the active set is left untouched.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading templates file: %w", err)
	}

	var overrides []Template
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parsing templates file %s: %w", path, err)
	}

	merged := builtinTemplates()
	for _, tpl := range overrides {
		if tpl.Name == "" {
			return fmt.Errorf("template override in %s is missing a name", path)
		}
		if len(tpl.Required) == 0 {
			return fmt.Errorf("template %q in %s has no required fields", tpl.Name, path)
		}
		merged[tpl.Name] = tpl
	}

	r.mu.Lock()
	r.templates = merged
	r.mu.Unlock()
	return nil
}
