// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

// Package config loads the job configuration: which store flavor to talk
// to, credentials, and the per-entity reconciliation settings (key fields,
// column mappings, retention, diff strategy). Everything is carried in an
// explicit Config value handed to constructors; there is no process-wide
// configuration state.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/msewell13/abs-scrape-sub000/boardsync"
)

// Store flavors.
const (
	StoreMonday = "monday"
	StoreGrist  = "grist"
)

// Config is the root of the YAML configuration file.
type Config struct {
	Store   string       `yaml:"store"`
	Journal string       `yaml:"journal"`
	Monday  MondayConfig `yaml:"monday"`
	Grist   GristConfig  `yaml:"grist"`

	Entities []Entity `yaml:"entities"`
}

// MondayConfig holds the Monday.com connection settings. The token can be
// left empty in the file and supplied via MONDAY_API_TOKEN.
type MondayConfig struct {
	APIURL string `yaml:"api_url"`
	Token  string `yaml:"token"`
}

// GristConfig holds the Grist connection settings. The key can be left
// empty in the file and supplied via GRIST_API_KEY.
type GristConfig struct {
	Server string `yaml:"server"`
	APIKey string `yaml:"api_key"`
	Org    string `yaml:"org"`
	Doc    string `yaml:"doc"`
}

// Entity configures reconciliation for one entity type.
type Entity struct {
	Name      string   `yaml:"name"`
	BoardID   string   `yaml:"board_id"` // monday
	Table     string   `yaml:"table"`    // grist
	Feed      string   `yaml:"feed"`
	KeyFields []string `yaml:"key_fields"`
	Strategy  string   `yaml:"strategy"` // always-write (default) or write-if-changed

	Retention  *Retention `yaml:"retention"`
	AlwaysSend []string   `yaml:"always_send"`
	Relation   *Relation  `yaml:"relation"`
	Columns    []Column   `yaml:"columns"`
}

// Retention configures the per-entity retention window.
type Retention struct {
	DateField string `yaml:"date_field"`
	Days      int    `yaml:"days"`
}

// Relation wires a relation column to the entity whose board holds the
// target items.
type Relation struct {
	Column    string `yaml:"column"`     // source field carrying the display name
	Entity    string `yaml:"entity"`     // entity whose board is the lookup target
	NameField string `yaml:"name_field"` // field on the target board holding display names
}

// Column maps one source field to one board column.
type Column struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"`
}

// Load reads and validates the configuration file, applying environment
// overrides for credentials.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if token := os.Getenv("MONDAY_API_TOKEN"); token != "" {
		cfg.Monday.Token = token
	}
	if key := os.Getenv("GRIST_API_KEY"); key != "" {
		cfg.Grist.APIKey = key
	}
	if cfg.Journal == "" {
		cfg.Journal = "boardsync.db"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is complete enough to run a
// cycle. Missing required configuration is a fatal condition (non-zero
// exit), never a silent default.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMonday:
		if c.Monday.Token == "" {
			return fmt.Errorf("monday store selected but no token configured (set MONDAY_API_TOKEN)")
		}
		if err := CheckMondayToken(c.Monday.Token); err != nil {
			return fmt.Errorf("monday token rejected: %w", err)
		}
	case StoreGrist:
		if c.Grist.Server == "" {
			return fmt.Errorf("grist store selected but no server configured")
		}
		if c.Grist.APIKey == "" {
			return fmt.Errorf("grist store selected but no api key configured (set GRIST_API_KEY)")
		}
		if c.Grist.Org == "" {
			return fmt.Errorf("grist store selected but no org configured")
		}
	default:
		return fmt.Errorf("unknown store %q (want %q or %q)", c.Store, StoreMonday, StoreGrist)
	}

	if len(c.Entities) == 0 {
		return fmt.Errorf("no entities configured")
	}
	names := make(map[string]bool, len(c.Entities))
	for i := range c.Entities {
		if err := c.Entities[i].validate(c.Store); err != nil {
			return err
		}
		if names[c.Entities[i].Name] {
			return fmt.Errorf("duplicate entity name %q", c.Entities[i].Name)
		}
		names[c.Entities[i].Name] = true
	}
	for i := range c.Entities {
		if rel := c.Entities[i].Relation; rel != nil && !names[rel.Entity] {
			return fmt.Errorf("entity %q: relation target %q is not a configured entity",
				c.Entities[i].Name, rel.Entity)
		}
	}
	return nil
}

func (e *Entity) validate(store string) error {
	if e.Name == "" {
		return fmt.Errorf("entity without a name")
	}
	if store == StoreMonday && e.BoardID == "" {
		return fmt.Errorf("entity %q: board_id required for monday store", e.Name)
	}
	if store == StoreGrist && e.Table == "" {
		return fmt.Errorf("entity %q: table required for grist store", e.Name)
	}
	if len(e.KeyFields) == 0 {
		return fmt.Errorf("entity %q: key_fields required", e.Name)
	}
	if len(e.Columns) == 0 {
		return fmt.Errorf("entity %q: columns required", e.Name)
	}
	for _, col := range e.Columns {
		switch col.Kind {
		case boardsync.ColDate, boardsync.ColText, boardsync.ColMultiLabel,
			boardsync.ColCheckbox, boardsync.ColRelation:
		default:
			return fmt.Errorf("entity %q: column %q has unknown kind %q", e.Name, col.Name, col.Kind)
		}
		if col.Name == "" || col.ID == "" {
			return fmt.Errorf("entity %q: column needs both name and id", e.Name)
		}
	}
	if _, err := e.DiffStrategy(); err != nil {
		return err
	}
	if e.Retention != nil && e.Retention.Days > 0 && e.Retention.DateField == "" {
		return fmt.Errorf("entity %q: retention needs a date_field", e.Name)
	}
	return nil
}

// DiffStrategy resolves the entity's configured strategy name.
func (e *Entity) DiffStrategy() (boardsync.DiffStrategy, error) {
	switch e.Strategy {
	case "", "always-write":
		return boardsync.AlwaysWrite{}, nil
	case "write-if-changed":
		return boardsync.WriteIfChanged{}, nil
	default:
		return nil, fmt.Errorf("entity %q: unknown strategy %q", e.Name, e.Strategy)
	}
}

// ColumnDefs converts the entity's column mappings to engine column
// definitions.
func (e *Entity) ColumnDefs() []boardsync.ColumnDef {
	defs := make([]boardsync.ColumnDef, len(e.Columns))
	for i, col := range e.Columns {
		defs[i] = boardsync.ColumnDef{Name: col.Name, ID: col.ID, Kind: col.Kind}
	}
	return defs
}

// EngineConfig builds the engine configuration for this entity. The
// relation resolver, which needs board access, is attached by the caller.
func (e *Entity) EngineConfig(resolver boardsync.RelationResolver) (boardsync.EntityConfig, error) {
	strategy, err := e.DiffStrategy()
	if err != nil {
		return boardsync.EntityConfig{}, err
	}
	cfg := boardsync.EntityConfig{
		Name:       e.Name,
		KeyFields:  e.KeyFields,
		Columns:    e.ColumnDefs(),
		AlwaysSend: e.AlwaysSend,
		Strategy:   strategy,
		Resolver:   resolver,
	}
	if e.Retention != nil {
		cfg.DateField = e.Retention.DateField
		cfg.RetentionDays = e.Retention.Days
	}
	return cfg, nil
}
