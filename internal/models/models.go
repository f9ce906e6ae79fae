/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package models holds the GORM records behind the catalog store.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Catalog is a named, imported item collection.
type Catalog struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"uniqueIndex;size:191"`
	Source    string // file path or "api"
	Checksum  string `gorm:"size:64"`
	ItemCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate assigns an ID when the caller did not.
func (c *Catalog) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CatalogArtist is an artist scoped to one catalog.
type CatalogArtist struct {
	CatalogID string `gorm:"type:uuid;primaryKey"`
	ArtistID  string `gorm:"primaryKey;size:191"`
	Name      string
}

// CatalogAlbum is an album scoped to one catalog.
type CatalogAlbum struct {
	CatalogID string `gorm:"type:uuid;primaryKey"`
	AlbumID   string `gorm:"primaryKey;size:191"`
	ArtistID  string `gorm:"size:191"`
	Title     string
}

// CatalogGenre is a genre scoped to one catalog.
type CatalogGenre struct {
	CatalogID string `gorm:"type:uuid;primaryKey"`
	GenreID   string `gorm:"primaryKey;size:191"`
}

// CatalogItem is one sequenceable item. Position preserves insertion
// order, which the deterministic search uses as its tie-break.
type CatalogItem struct {
	CatalogID string `gorm:"type:uuid;primaryKey"`
	ItemID    string `gorm:"primaryKey;size:191"`
	Position  int    `gorm:"index"`
	Title     string
	ArtistID  string `gorm:"size:191;index"`
	AlbumID   string `gorm:"size:191"`
	GenreID   string `gorm:"size:191"`
	Energy    int
	PlayCount int
	Recency   int `gorm:"type:smallint"`
}

// RunOutcome mirrors the search outcome of a recorded run.
type RunOutcome string

const (
	RunFound         RunOutcome = "found"
	RunUnsatisfiable RunOutcome = "unsatisfiable"
	RunTimeout       RunOutcome = "timeout"
	RunCancelled     RunOutcome = "cancelled"
	RunRejected      RunOutcome = "rejected"
)

// SequenceRun records one generation request and its result.
type SequenceRun struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	CatalogID  string `gorm:"type:uuid;index"`
	Bundle     string `gorm:"size:191;index"`
	Length     int
	Seed       *int64
	Workers    int
	Outcome    RunOutcome `gorm:"type:varchar(16);index"`
	Error      string     `gorm:"type:text"`
	ItemIDs    StringList `gorm:"type:text"`
	Nodes      int64
	Backtracks int64
	ElapsedMS  int64
	CacheHit   bool
	CreatedAt  time.Time
}

// BeforeCreate assigns an ID when the caller did not.
func (r *SequenceRun) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// StringList is a string slice with GORM scanner/valuer support.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringList) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*s = StringList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal StringList: %v", value)
	}
	if len(raw) == 0 {
		*s = StringList{}
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(s))
}
