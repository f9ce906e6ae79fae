/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalogtest provides catalogs shared by tests across packages.
package catalogtest

import (
	"fmt"

	"github.com/friendsincode/grimnir_sequencer/internal/catalog"
)

// EightByFour is 8 items over 4 artists, 4 albums and 4 genres. The default
// perceptual bundle is satisfiable on it at full length, e.g. s1..s8 in
// order. Insertion order is scrambled so a deterministic search has to
// backtrack to find it.
func EightByFour() *catalog.Catalog {
	b := catalog.NewBuilder().
		Artist("ar1", "ar2", "ar3", "ar4").
		Album("al1", "ar1").
		Album("al2", "ar2").
		Album("al3", "ar3").
		Album("al4", "ar4").
		Genre("ambient", "rock", "jazz", "soul")

	items := map[string]catalog.Item{
		"s1": {ID: "s1", ArtistID: "ar1", AlbumID: "al1", GenreID: "ambient", Energy: 10, PlayCount: 0, Recency: catalog.RecencyStale},
		"s2": {ID: "s2", ArtistID: "ar2", AlbumID: "al2", GenreID: "rock", Energy: 12, PlayCount: 1, Recency: catalog.RecencyStale},
		"s3": {ID: "s3", ArtistID: "ar3", AlbumID: "al3", GenreID: "jazz", Energy: 14, PlayCount: 2, Recency: catalog.RecencyStale},
		"s4": {ID: "s4", ArtistID: "ar4", AlbumID: "al4", GenreID: "soul", Energy: 16, PlayCount: 5, Recency: catalog.RecencyStale},
		"s5": {ID: "s5", ArtistID: "ar1", AlbumID: "al1", GenreID: "rock", Energy: 18, PlayCount: 3, Recency: catalog.RecencyRecent},
		"s6": {ID: "s6", ArtistID: "ar2", AlbumID: "al2", GenreID: "jazz", Energy: 20, PlayCount: 4, Recency: catalog.RecencyRecent},
		"s7": {ID: "s7", ArtistID: "ar3", AlbumID: "al3", GenreID: "soul", Energy: 22, PlayCount: 6, Recency: catalog.RecencyRecent},
		"s8": {ID: "s8", ArtistID: "ar4", AlbumID: "al4", GenreID: "ambient", Energy: 24, PlayCount: 8, Recency: catalog.RecencyRecent},
	}
	for _, id := range []string{"s8", "s3", "s5", "s1", "s7", "s2", "s6", "s4"} {
		b.Item(items[id])
	}

	return mustBuild(b)
}

// Rotation builds n items cycling through 4 artists (one album each) and 4
// genres. Identity order satisfies the default perceptual bundle for n >= 4:
// energies rise by one, the first half is stale, the first quarter is rarely
// played and the second half is popular.
func Rotation(n int) *catalog.Catalog {
	b := catalog.NewBuilder().Genre("g0", "g1", "g2", "g3")
	for a := 0; a < 4; a++ {
		artist := fmt.Sprintf("ar%d", a)
		b.Artist(artist).Album("al"+artist[2:], artist)
	}

	for k := 0; k < n; k++ {
		artist := k % 4
		plays := 2
		switch {
		case k < (n+3)/4:
			plays = 0
		case k >= n/2:
			plays = 5
		}
		recency := catalog.RecencyStale
		if k >= n/2 {
			recency = catalog.RecencyRecent
		}
		b.Item(catalog.Item{
			ID:        fmt.Sprintf("t%02d", k),
			ArtistID:  fmt.Sprintf("ar%d", artist),
			AlbumID:   fmt.Sprintf("al%d", artist),
			GenreID:   fmt.Sprintf("g%d", (k+k/4)%4),
			Energy:    k,
			PlayCount: plays,
			Recency:   recency,
		})
	}

	return mustBuild(b)
}

// SingleArtist builds n items by one artist on one album.
func SingleArtist(n int) *catalog.Catalog {
	b := catalog.NewBuilder().Artist("solo").Album("only", "solo").Genre("g")
	for k := 0; k < n; k++ {
		b.Item(catalog.Item{
			ID:       fmt.Sprintf("solo%02d", k),
			ArtistID: "solo",
			AlbumID:  "only",
			GenreID:  "g",
			Recency:  catalog.RecencyStale,
		})
	}
	return mustBuild(b)
}

func mustBuild(b *catalog.Builder) *catalog.Catalog {
	cat, err := b.Build()
	if err != nil {
		panic(err)
	}
	return cat
}
