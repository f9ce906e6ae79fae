/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalogstore reads catalogs from files and persists them, along
// with generation runs, in a relational database.
package catalogstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/friendsincode/grimnir_sequencer/internal/catalog"
	"github.com/friendsincode/grimnir_sequencer/internal/storage"
)

// Document is the on-disk catalog format. JSON documents are accepted too
// since they parse as YAML.
//
//	name: evening
//	artists: [{id: ar1, name: Low}]
//	albums: [{id: al1, artist: ar1, title: Things We Lost}]
//	genres: [slowcore]
//	items:
//	  - {id: s1, artist: ar1, album: al1, genre: slowcore, energy: 3, play_count: 0, recency: stale}
type Document struct {
	Name    string        `yaml:"name" json:"name"`
	Artists []ArtistEntry `yaml:"artists" json:"artists"`
	Albums  []AlbumEntry  `yaml:"albums" json:"albums"`
	Genres  []string      `yaml:"genres" json:"genres"`
	Items   []ItemEntry   `yaml:"items" json:"items"`
}

// ArtistEntry names an artist.
type ArtistEntry struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
}

// AlbumEntry names an album and its owner.
type AlbumEntry struct {
	ID       string `yaml:"id" json:"id"`
	ArtistID string `yaml:"artist" json:"artist"`
	Title    string `yaml:"title,omitempty" json:"title,omitempty"`
}

// ItemEntry is one item. Recency accepts stale/recent or -1/1.
type ItemEntry struct {
	ID        string `yaml:"id" json:"id"`
	Title     string `yaml:"title,omitempty" json:"title,omitempty"`
	ArtistID  string `yaml:"artist" json:"artist"`
	AlbumID   string `yaml:"album" json:"album"`
	GenreID   string `yaml:"genre" json:"genre"`
	Energy    int    `yaml:"energy" json:"energy"`
	PlayCount int    `yaml:"play_count" json:"play_count"`
	Recency   string `yaml:"recency" json:"recency"`
}

// ParseDocument decodes a YAML or JSON catalog document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog document: %w", err)
	}
	if len(doc.Items) == 0 {
		return nil, fmt.Errorf("catalog document has no items")
	}
	return &doc, nil
}

// LoadFile reads and parses a catalog document. A missing name defaults to
// the file's base name.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = baseName(path)
	}
	return doc, nil
}

// LoadObject fetches and parses a catalog document from object storage.
// A missing name defaults to the object's base name.
func LoadObject(ctx context.Context, store storage.ObjectStore, uri string) (*Document, error) {
	bucket, key, err := storage.ParseURI(uri)
	if err != nil {
		return nil, err
	}
	data, err := store.Get(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", uri, err)
	}
	if doc.Name == "" {
		doc.Name = baseName(key)
	}
	return doc, nil
}

// ParseRecency accepts the symbolic and numeric spellings of a rank.
// Anything else is returned as rank 0 so catalog validation reports it
// alongside every other offence.
func ParseRecency(s string) catalog.Recency {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stale", "old", "-1":
		return catalog.RecencyStale
	case "recent", "new", "1", "+1":
		return catalog.RecencyRecent
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return catalog.Recency(n)
	}
	return 0
}

// Catalog builds and validates the catalog described by the document.
// Artist and genre sections are optional; when a section is omitted its
// references go unchecked. Albums must be declared so artist ownership can
// be verified.
func (d *Document) Catalog() (*catalog.Catalog, error) {
	b := catalog.NewBuilder()

	for _, a := range d.Artists {
		b.Artist(a.ID)
	}
	for _, al := range d.Albums {
		b.Album(al.ID, al.ArtistID)
	}
	if len(d.Genres) > 0 {
		b.Genre(d.Genres...)
	}
	for _, it := range d.Items {
		b.Item(it.item())
	}
	return b.Build()
}

// Checksum fingerprints the document content so re-imports of an unchanged
// file can be detected.
func (d *Document) Checksum() string {
	h := sha256.New()
	out, _ := yaml.Marshal(d)
	h.Write(out)
	return hex.EncodeToString(h.Sum(nil))
}

func (it ItemEntry) item() catalog.Item {
	return catalog.Item{
		ID:        it.ID,
		ArtistID:  it.ArtistID,
		AlbumID:   it.AlbumID,
		GenreID:   it.GenreID,
		Energy:    it.Energy,
		PlayCount: it.PlayCount,
		Recency:   ParseRecency(it.Recency),
	}
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
