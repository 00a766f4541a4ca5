package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrMediaNotFound = errors.New("media not found")

// Media is an uploaded file tracked by the library.
type Media struct {
	ID           string    `json:"id"`
	MediaType    string    `json:"media_type"`
	StorageKey   string    `json:"storage_key"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	URL          string    `json:"url"`
	ThumbnailKey string    `json:"thumbnail_key,omitempty"`
	Route        string    `json:"route,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type MediaFilter struct {
	MediaType string
	Query     string
	Page      int
	PerPage   int
}

const mediaColumns = "id, media_type, storage_key, original_name, mime_type, size_bytes, width, height, url, thumbnail_key, route, created_at"

func (db *DB) InsertMedia(m *Media) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := db.Exec(
		"INSERT INTO media ("+mediaColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		m.ID, m.MediaType, m.StorageKey, m.OriginalName, m.MimeType, m.SizeBytes,
		m.Width, m.Height, m.URL, m.ThumbnailKey, m.Route, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert media: %w", err)
	}
	return nil
}

func (db *DB) GetMedia(id string) (*Media, error) {
	row := db.QueryRow("SELECT "+mediaColumns+" FROM media WHERE id = ?", id)
	m, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMediaNotFound
	}
	return m, err
}

// ListMedia returns one page, newest first, and the total matching count.
func (db *DB) ListMedia(f MediaFilter) ([]Media, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 100 {
		f.PerPage = 20
	}

	where := "1=1"
	args := []interface{}{}
	if f.MediaType != "" {
		where += " AND media_type = ?"
		args = append(args, f.MediaType)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where += " AND original_name LIKE ? ESCAPE '\\'"
		args = append(args, "%"+escapeLike(q)+"%")
	}

	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM media WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count media: %w", err)
	}

	pageArgs := append(append([]interface{}{}, args...), f.PerPage, (f.Page-1)*f.PerPage)
	rows, err := db.Query(
		"SELECT "+mediaColumns+" FROM media WHERE "+where+" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		pageArgs...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query media: %w", err)
	}
	defer rows.Close()

	items := []Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *m)
	}
	return items, total, rows.Err()
}

func (db *DB) DeleteMedia(id string) error {
	res, err := db.Exec("DELETE FROM media WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMediaNotFound
	}
	return nil
}

// MediaCreatedBefore lists entries older than cutoff for retention sweeps.
func (db *DB) MediaCreatedBefore(cutoff time.Time) ([]Media, error) {
	rows, err := db.Query("SELECT "+mediaColumns+" FROM media WHERE created_at < ? ORDER BY created_at", cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("query expired media: %w", err)
	}
	defer rows.Close()

	var out []Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMedia(s scanner) (*Media, error) {
	var m Media
	err := s.Scan(&m.ID, &m.MediaType, &m.StorageKey, &m.OriginalName, &m.MimeType, &m.SizeBytes,
		&m.Width, &m.Height, &m.URL, &m.ThumbnailKey, &m.Route, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	return strings.ReplaceAll(s, "_", "\\_")
}
