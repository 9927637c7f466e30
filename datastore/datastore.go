// Package datastore persists one record per registered tracking session so
// results remain queryable after the in-memory stream registry expires.
package datastore

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Session statuses.
const (
	StatusPending   = "pending"
	StatusStreaming = "streaming"
	StatusDone      = "done"
	StatusFailed    = "failed"
)

// Session is the durable record of one tracking run.
type Session struct {
	ID          string `gorm:"primaryKey"`
	VideoPath   string
	LogPath     string
	OutputPath  string // rendered video, empty in streaming mode
	Status      string
	Frames      int
	Rows        int
	Error       string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Store wraps the sqlite database.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the sqlite database and migrates the
// session table.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Session{}); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &Store{db: db}, nil
}

// Save inserts or updates a session record.
func (s *Store) Save(session *Session) error {
	return s.db.Save(session).Error
}

// SetStatus updates only the status of a session.
func (s *Store) SetStatus(id, status string) error {
	return s.db.Model(&Session{}).Where("id = ?", id).Update("status", status).Error
}

// Complete finalizes a session record with its outcome.
func (s *Store) Complete(id, status string, frames, rows int, runErr error) error {
	now := time.Now()
	updates := map[string]any{
		"status":       status,
		"frames":       frames,
		"rows":         rows,
		"completed_at": &now,
	}
	if runErr != nil {
		updates["error"] = runErr.Error()
	}
	return s.db.Model(&Session{}).Where("id = ?", id).Updates(updates).Error
}

// Get fetches one session record.
func (s *Store) Get(id string) (*Session, error) {
	var session Session
	if err := s.db.First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// Recent returns the newest n session records.
func (s *Store) Recent(n int) ([]Session, error) {
	var sessions []Session
	err := s.db.Order("created_at desc").Limit(n).Find(&sessions).Error
	return sessions, err
}
