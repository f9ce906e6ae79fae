/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMalformed indicates the catalog breaks a structural invariant.
var ErrMalformed = errors.New("malformed catalog")

// Problem describes everything wrong with a single item.
type Problem struct {
	ItemID  string
	Reasons []string
}

// MalformedError lists every offending item, not just the first.
type MalformedError struct {
	Problems []Problem
}

func (e *MalformedError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("%s (%s)", p.ItemID, strings.Join(p.Reasons, ", ")))
	}
	return fmt.Sprintf("%s: %d offending item(s): %s", ErrMalformed, len(e.Problems), strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrMalformed) work.
func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

// ItemIDs returns the IDs of the offending items, sorted.
func (e *MalformedError) ItemIDs() []string {
	ids := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		ids = append(ids, p.ItemID)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks artist/album consistency, non-negative play counts and
// canonical recency ranks for every item. Energy is unrestricted.
func Validate(items []Item, albums []Album) error {
	albumByID := make(map[string]Album, len(albums))
	for _, a := range albums {
		albumByID[a.ID] = a
	}

	var problems []Problem
	for _, item := range items {
		if reasons := itemReasons(item, albumByID); len(reasons) > 0 {
			problems = append(problems, Problem{ItemID: item.ID, Reasons: reasons})
		}
	}

	if len(problems) > 0 {
		return &MalformedError{Problems: problems}
	}
	return nil
}

func itemReasons(item Item, albumByID map[string]Album) []string {
	var reasons []string

	album, ok := albumByID[item.AlbumID]
	switch {
	case !ok:
		reasons = append(reasons, fmt.Sprintf("unknown album %q", item.AlbumID))
	case album.ArtistID != item.ArtistID:
		reasons = append(reasons, fmt.Sprintf("artist %q does not own album %q (owner %q)", item.ArtistID, item.AlbumID, album.ArtistID))
	}

	if item.PlayCount < 0 {
		reasons = append(reasons, fmt.Sprintf("negative play count %d", item.PlayCount))
	}
	if !item.Recency.Valid() {
		reasons = append(reasons, fmt.Sprintf("invalid recency %d", int(item.Recency)))
	}
	return reasons
}
