/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalogstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/friendsincode/grimnir_sequencer/internal/catalog"
	"github.com/friendsincode/grimnir_sequencer/internal/storage"
)

const eveningYAML = `
name: evening
artists:
  - {id: ar1, name: Low}
  - {id: ar2, name: Duster}
albums:
  - {id: al1, artist: ar1, title: Things We Lost in the Fire}
  - {id: al2, artist: ar2, title: Stratosphere}
genres: [slowcore, space-rock]
items:
  - {id: s1, artist: ar1, album: al1, genre: slowcore, energy: 3, play_count: 0, recency: stale}
  - {id: s2, artist: ar2, album: al2, genre: space-rock, energy: 5, play_count: 2, recency: old}
  - {id: s3, artist: ar1, album: al1, genre: slowcore, energy: 4, play_count: 9, recency: recent}
  - {id: s4, artist: ar2, album: al2, genre: space-rock, energy: 6, play_count: 1, recency: 1}
`

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(eveningYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cat, err := doc.Catalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if cat.Len() != 4 {
		t.Fatalf("expected 4 items, got %d", cat.Len())
	}
	if got := cat.At(0).ID; got != "s1" {
		t.Fatalf("insertion order lost, first item %q", got)
	}
	s4, _ := cat.Item("s4")
	if s4.Recency != catalog.RecencyRecent {
		t.Fatalf("s4 recency = %v", s4.Recency)
	}
}

func TestParseDocumentJSON(t *testing.T) {
	data := `{"name":"j","items":[{"id":"a","artist":"x","album":"y","genre":"z","recency":"stale"}],
"albums":[{"id":"y","artist":"x"}]}`
	doc, err := ParseDocument([]byte(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := doc.Catalog(); err != nil {
		t.Fatalf("catalog: %v", err)
	}
}

func TestParseDocumentRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"no items", "name: x\nitems: []\n"},
		{"not yaml", "items: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDocument([]byte(tt.data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDocumentCatalogMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"duplicate item", `
albums: [{id: al, artist: ar}]
items:
  - {id: a, artist: ar, album: al, genre: g, recency: stale}
  - {id: a, artist: ar, album: al, genre: g, recency: stale}
`},
		{"bad recency", `
albums: [{id: al, artist: ar}]
items:
  - {id: a, artist: ar, album: al, genre: g, recency: sometimes}
`},
		{"album owned by someone else", `
albums: [{id: al, artist: other}]
items:
  - {id: a, artist: ar, album: al, genre: g, recency: stale}
`},
		{"undeclared genre", `
genres: [jazz]
albums: [{id: al, artist: ar}]
items:
  - {id: a, artist: ar, album: al, genre: rock, recency: stale}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.data))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if _, err := doc.Catalog(); !errors.Is(err, catalog.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestParseRecency(t *testing.T) {
	tests := []struct {
		in   string
		want catalog.Recency
	}{
		{"stale", catalog.RecencyStale},
		{"OLD", catalog.RecencyStale},
		{"-1", catalog.RecencyStale},
		{"recent", catalog.RecencyRecent},
		{" new ", catalog.RecencyRecent},
		{"+1", catalog.RecencyRecent},
		{"1", catalog.RecencyRecent},
		{"3", catalog.Recency(3)},
		{"", 0},
		{"whenever", 0},
	}
	for _, tt := range tests {
		if got := ParseRecency(tt.in); got != tt.want {
			t.Errorf("ParseRecency(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadFileDefaultsName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "late-night.yaml")
	data := "albums: [{id: al, artist: ar}]\nitems:\n  - {id: a, artist: ar, album: al, genre: g, recency: stale}\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Name != "late-night" {
		t.Fatalf("name = %q", doc.Name)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestChecksumTracksContent(t *testing.T) {
	a, _ := ParseDocument([]byte(eveningYAML))
	b, _ := ParseDocument([]byte(eveningYAML))
	if a.Checksum() != b.Checksum() {
		t.Fatal("identical documents must share a checksum")
	}
	b.Items[0].Energy++
	if a.Checksum() == b.Checksum() {
		t.Fatal("checksum did not change with content")
	}
}

type memoryObjects map[string][]byte

func (m memoryObjects) Get(_ context.Context, bucket, key string) ([]byte, error) {
	data, ok := m[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("no such object %s/%s", bucket, key)
	}
	return data, nil
}

func TestLoadObject(t *testing.T) {
	objects := memoryObjects{
		"catalogs/evening.yaml":      []byte(eveningYAML),
		"catalogs/nightly/late.json": []byte(`{"albums":[{"id":"al","artist":"ar"}],"items":[{"id":"a","artist":"ar","album":"al","genre":"g","recency":"stale"}]}`),
	}
	ctx := context.Background()

	doc, err := LoadObject(ctx, objects, "s3://catalogs/evening.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Name != "evening" || len(doc.Items) != 4 {
		t.Fatalf("unexpected document %+v", doc)
	}

	doc, err = LoadObject(ctx, objects, "s3://catalogs/nightly/late.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Name != "late" {
		t.Fatalf("name = %q", doc.Name)
	}

	if _, err := LoadObject(ctx, objects, "s3://catalogs/missing.yaml"); err == nil {
		t.Fatal("expected error for missing object")
	}
	if _, err := LoadObject(ctx, objects, "catalogs/evening.yaml"); !errors.Is(err, storage.ErrNotObjectURI) {
		t.Fatalf("expected ErrNotObjectURI, got %v", err)
	}
}
