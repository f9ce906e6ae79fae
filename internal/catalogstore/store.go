/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalogstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_sequencer/internal/catalog"
	"github.com/friendsincode/grimnir_sequencer/internal/models"
)

// ErrNotFound is returned when no catalog matches the requested ID or name.
var ErrNotFound = errors.New("catalog not found")

// Store persists catalogs and sequence runs.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// New creates a store on an already migrated database.
func New(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger.With().Str("component", "catalogstore").Logger()}
}

// Import validates doc and replaces any stored catalog of the same name.
// A malformed document is rejected before anything is written.
func (s *Store) Import(ctx context.Context, doc *Document, source string) (models.Catalog, bool, error) {
	cat, err := doc.Catalog()
	if err != nil {
		return models.Catalog{}, false, fmt.Errorf("import %q: %w", doc.Name, err)
	}
	checksum := doc.Checksum()

	var record models.Catalog
	changed := true
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("name = ?", doc.Name).First(&record).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			record = models.Catalog{Name: doc.Name}
		case err != nil:
			return fmt.Errorf("lookup catalog: %w", err)
		case record.Checksum == checksum:
			changed = false
			return nil
		}

		record.Source = source
		record.Checksum = checksum
		record.ItemCount = cat.Len()
		if err := tx.Save(&record).Error; err != nil {
			return fmt.Errorf("save catalog: %w", err)
		}
		if err := deleteChildren(tx, record.ID); err != nil {
			return err
		}
		return insertChildren(tx, record.ID, doc)
	})
	if err != nil {
		return models.Catalog{}, false, err
	}

	s.logger.Info().
		Str("catalog_id", record.ID).
		Str("name", record.Name).
		Int("items", record.ItemCount).
		Bool("changed", changed).
		Msg("catalog imported")
	return record, changed, nil
}

func deleteChildren(tx *gorm.DB, catalogID string) error {
	for _, model := range []any{&models.CatalogItem{}, &models.CatalogAlbum{}, &models.CatalogArtist{}, &models.CatalogGenre{}} {
		if err := tx.Where("catalog_id = ?", catalogID).Delete(model).Error; err != nil {
			return fmt.Errorf("clear catalog rows: %w", err)
		}
	}
	return nil
}

func insertChildren(tx *gorm.DB, catalogID string, doc *Document) error {
	artists := make([]models.CatalogArtist, 0, len(doc.Artists))
	for _, a := range doc.Artists {
		artists = append(artists, models.CatalogArtist{CatalogID: catalogID, ArtistID: a.ID, Name: a.Name})
	}
	albums := make([]models.CatalogAlbum, 0, len(doc.Albums))
	for _, a := range doc.Albums {
		albums = append(albums, models.CatalogAlbum{CatalogID: catalogID, AlbumID: a.ID, ArtistID: a.ArtistID, Title: a.Title})
	}
	genres := make([]models.CatalogGenre, 0, len(doc.Genres))
	for _, g := range doc.Genres {
		genres = append(genres, models.CatalogGenre{CatalogID: catalogID, GenreID: g})
	}
	items := make([]models.CatalogItem, 0, len(doc.Items))
	for i, it := range doc.Items {
		items = append(items, models.CatalogItem{
			CatalogID: catalogID,
			ItemID:    it.ID,
			Position:  i,
			Title:     it.Title,
			ArtistID:  it.ArtistID,
			AlbumID:   it.AlbumID,
			GenreID:   it.GenreID,
			Energy:    it.Energy,
			PlayCount: it.PlayCount,
			Recency:   int(ParseRecency(it.Recency)),
		})
	}

	batches := []struct {
		name string
		rows any
		n    int
	}{
		{"artists", &artists, len(artists)},
		{"albums", &albums, len(albums)},
		{"genres", &genres, len(genres)},
		{"items", &items, len(items)},
	}
	for _, b := range batches {
		if b.n == 0 {
			continue
		}
		if err := tx.CreateInBatches(b.rows, 200).Error; err != nil {
			return fmt.Errorf("insert %s: %w", b.name, err)
		}
	}
	return nil
}

// Find resolves a catalog record by ID when idOrName parses as a UUID, and
// by name otherwise.
func (s *Store) Find(ctx context.Context, idOrName string) (models.Catalog, error) {
	var record models.Catalog
	query := s.db.WithContext(ctx).Where("name = ?", idOrName)
	if _, err := uuid.Parse(idOrName); err == nil {
		query = s.db.WithContext(ctx).Where("id = ?", idOrName)
	}
	err := query.First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return record, fmt.Errorf("%w: %s", ErrNotFound, idOrName)
	}
	if err != nil {
		return record, fmt.Errorf("find catalog: %w", err)
	}
	return record, nil
}

// Load rebuilds the stored catalog. Rows are validated again, so a database
// edited by hand surfaces as catalog.ErrMalformed.
func (s *Store) Load(ctx context.Context, idOrName string) (*catalog.Catalog, models.Catalog, error) {
	record, err := s.Find(ctx, idOrName)
	if err != nil {
		return nil, record, err
	}

	tx := s.db.WithContext(ctx).Where("catalog_id = ?", record.ID)
	var (
		artists []models.CatalogArtist
		albums  []models.CatalogAlbum
		genres  []models.CatalogGenre
		items   []models.CatalogItem
	)
	if err := tx.Session(&gorm.Session{}).Order("artist_id").Find(&artists).Error; err != nil {
		return nil, record, fmt.Errorf("load artists: %w", err)
	}
	if err := tx.Session(&gorm.Session{}).Order("album_id").Find(&albums).Error; err != nil {
		return nil, record, fmt.Errorf("load albums: %w", err)
	}
	if err := tx.Session(&gorm.Session{}).Order("genre_id").Find(&genres).Error; err != nil {
		return nil, record, fmt.Errorf("load genres: %w", err)
	}
	if err := tx.Session(&gorm.Session{}).Order("position").Find(&items).Error; err != nil {
		return nil, record, fmt.Errorf("load items: %w", err)
	}

	b := catalog.NewBuilder()
	for _, a := range artists {
		b.Artist(a.ArtistID)
	}
	for _, a := range albums {
		b.Album(a.AlbumID, a.ArtistID)
	}
	for _, g := range genres {
		b.Genre(g.GenreID)
	}
	for _, it := range items {
		b.Item(catalog.Item{
			ID:        it.ItemID,
			ArtistID:  it.ArtistID,
			AlbumID:   it.AlbumID,
			GenreID:   it.GenreID,
			Energy:    it.Energy,
			PlayCount: it.PlayCount,
			Recency:   catalog.Recency(it.Recency),
		})
	}

	cat, err := b.Build()
	if err != nil {
		return nil, record, fmt.Errorf("catalog %s: %w", record.Name, err)
	}
	return cat, record, nil
}

// List returns every stored catalog ordered by name.
func (s *Store) List(ctx context.Context) ([]models.Catalog, error) {
	var out []models.Catalog
	if err := s.db.WithContext(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list catalogs: %w", err)
	}
	return out, nil
}

// RecordRun persists a generation run.
func (s *Store) RecordRun(ctx context.Context, run *models.SequenceRun) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Runs returns the most recent runs for a catalog, newest first.
func (s *Store) Runs(ctx context.Context, catalogID string, limit int) ([]models.SequenceRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []models.SequenceRun
	err := s.db.WithContext(ctx).
		Where("catalog_id = ?", catalogID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}
