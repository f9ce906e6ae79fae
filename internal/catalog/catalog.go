/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog holds the read-only reference data sequences are built from.
package catalog

// Recency is a signed rank: lower ranks must be placed before higher ones.
type Recency int

const (
	RecencyStale  Recency = -1 // not recently played
	RecencyRecent Recency = 1  // recently played
)

// Valid reports whether r is one of the two canonical ranks.
func (r Recency) Valid() bool {
	return r == RecencyStale || r == RecencyRecent
}

func (r Recency) String() string {
	switch r {
	case RecencyStale:
		return "stale"
	case RecencyRecent:
		return "recent"
	}
	return "invalid"
}

// Artist is an opaque identity.
type Artist struct {
	ID string `json:"id" yaml:"id"`
}

// Album belongs to exactly one artist.
type Album struct {
	ID       string `json:"id" yaml:"id"`
	ArtistID string `json:"artist_id" yaml:"artist"`
}

// Genre is an opaque identity.
type Genre struct {
	ID string `json:"id" yaml:"id"`
}

// Item is a single song.
type Item struct {
	ID        string  `json:"id" yaml:"id"`
	ArtistID  string  `json:"artist_id" yaml:"artist"`
	AlbumID   string  `json:"album_id" yaml:"album"`
	GenreID   string  `json:"genre_id" yaml:"genre"`
	Energy    int     `json:"energy" yaml:"energy"`
	PlayCount int     `json:"play_count" yaml:"play_count"`
	Recency   Recency `json:"recency" yaml:"recency"`
}

// Catalog is an immutable, indexed collection of items and their references.
// Items keep insertion order, which the sequencer uses as its deterministic
// candidate order.
type Catalog struct {
	artists []Artist
	albums  []Album
	genres  []Genre
	items   []Item

	albumByID map[string]Album
	itemByID  map[string]int
}

// Items returns a copy of the catalog items in insertion order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.items)
}

// At returns the item at index i in insertion order.
func (c *Catalog) At(i int) Item {
	return c.items[i]
}

// Item looks up an item by ID.
func (c *Catalog) Item(id string) (Item, bool) {
	idx, ok := c.itemByID[id]
	if !ok {
		return Item{}, false
	}
	return c.items[idx], true
}

// Index returns the insertion index of the item with the given ID, or -1.
func (c *Catalog) Index(id string) int {
	if idx, ok := c.itemByID[id]; ok {
		return idx
	}
	return -1
}

// Album looks up an album by ID.
func (c *Catalog) Album(id string) (Album, bool) {
	a, ok := c.albumByID[id]
	return a, ok
}

// Artists returns a copy of the artists.
func (c *Catalog) Artists() []Artist {
	return append([]Artist(nil), c.artists...)
}

// Albums returns a copy of the albums.
func (c *Catalog) Albums() []Album {
	return append([]Album(nil), c.albums...)
}

// Genres returns a copy of the genres.
func (c *Catalog) Genres() []Genre {
	return append([]Genre(nil), c.genres...)
}

// Validate re-checks the catalog's structural invariants.
func (c *Catalog) Validate() error {
	return Validate(c.items, c.albums)
}
