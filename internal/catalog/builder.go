/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import "fmt"

// Builder accumulates reference data and produces an immutable Catalog.
type Builder struct {
	artists []Artist
	albums  []Album
	genres  []Genre
	items   []Item
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Artist registers artists.
func (b *Builder) Artist(ids ...string) *Builder {
	for _, id := range ids {
		b.artists = append(b.artists, Artist{ID: id})
	}
	return b
}

// Album registers an album owned by artistID.
func (b *Builder) Album(id, artistID string) *Builder {
	b.albums = append(b.albums, Album{ID: id, ArtistID: artistID})
	return b
}

// Genre registers genres.
func (b *Builder) Genre(ids ...string) *Builder {
	for _, id := range ids {
		b.genres = append(b.genres, Genre{ID: id})
	}
	return b
}

// Item registers an item.
func (b *Builder) Item(item Item) *Builder {
	b.items = append(b.items, item)
	return b
}

// Build validates everything and returns the catalog. Besides the item
// invariants it reports duplicate IDs and, once any artists or genres have
// been registered, references to unknown ones. All offences end up in a
// single *MalformedError. Reference data offences are keyed
// "artist:<id>", "album:<id>" or "genre:<id>".
func (b *Builder) Build() (*Catalog, error) {
	artistSet := make(map[string]struct{}, len(b.artists))
	for _, a := range b.artists {
		artistSet[a.ID] = struct{}{}
	}
	genreSet := make(map[string]struct{}, len(b.genres))
	for _, g := range b.genres {
		genreSet[g.ID] = struct{}{}
	}

	var problems []Problem
	if err := Validate(b.items, b.albums); err != nil {
		problems = append(problems, err.(*MalformedError).Problems...)
	}

	byID := make(map[string]int, len(problems))
	for i, p := range problems {
		byID[p.ItemID] = i
	}
	addReason := func(id, reason string) {
		if i, ok := byID[id]; ok {
			problems[i].Reasons = append(problems[i].Reasons, reason)
			return
		}
		byID[id] = len(problems)
		problems = append(problems, Problem{ItemID: id, Reasons: []string{reason}})
	}

	seenArtist := make(map[string]struct{}, len(b.artists))
	for _, a := range b.artists {
		if _, dup := seenArtist[a.ID]; dup {
			addReason("artist:"+a.ID, "duplicate artist id")
			continue
		}
		seenArtist[a.ID] = struct{}{}
	}
	seenGenre := make(map[string]struct{}, len(b.genres))
	for _, g := range b.genres {
		if _, dup := seenGenre[g.ID]; dup {
			addReason("genre:"+g.ID, "duplicate genre id")
			continue
		}
		seenGenre[g.ID] = struct{}{}
	}
	ownerOf := make(map[string]string, len(b.albums))
	for _, album := range b.albums {
		owner, dup := ownerOf[album.ID]
		switch {
		case !dup:
			ownerOf[album.ID] = album.ArtistID
		case owner != album.ArtistID:
			addReason("album:"+album.ID, fmt.Sprintf("duplicate album id with conflicting owners %q and %q", owner, album.ArtistID))
		default:
			addReason("album:"+album.ID, "duplicate album id")
		}
	}

	for _, album := range b.albums {
		if _, ok := artistSet[album.ArtistID]; !ok && len(b.artists) > 0 {
			for _, item := range b.items {
				if item.AlbumID == album.ID {
					addReason(item.ID, fmt.Sprintf("album %q owned by unknown artist %q", album.ID, album.ArtistID))
				}
			}
		}
	}

	itemIndex := make(map[string]int, len(b.items))
	for i, item := range b.items {
		if _, dup := itemIndex[item.ID]; dup {
			addReason(item.ID, "duplicate item id")
			continue
		}
		itemIndex[item.ID] = i
		if _, ok := genreSet[item.GenreID]; !ok && len(b.genres) > 0 {
			addReason(item.ID, fmt.Sprintf("unknown genre %q", item.GenreID))
		}
	}

	if len(problems) > 0 {
		return nil, &MalformedError{Problems: problems}
	}

	albumByID := make(map[string]Album, len(b.albums))
	for _, a := range b.albums {
		albumByID[a.ID] = a
	}

	return &Catalog{
		artists:   append([]Artist(nil), b.artists...),
		albums:    append([]Album(nil), b.albums...),
		genres:    append([]Genre(nil), b.genres...),
		items:     append([]Item(nil), b.items...),
		albumByID: albumByID,
		itemByID:  itemIndex,
	}, nil
}
