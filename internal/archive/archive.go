// Package archive keeps a best-effort log of finished matches. Live sessions
// are never restored from it.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const MaxRecent = 100

var ErrDisabled = errors.New("match archive disabled")

type MatchRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RoomCode   string    `gorm:"size:16;index" json:"room_code"`
	GameType   string    `gorm:"size:8" json:"game_type"`
	Mode       string    `gorm:"size:8" json:"mode"`
	HostName   string    `gorm:"size:64" json:"host_name"`
	GuestName  string    `gorm:"size:64" json:"guest_name"`
	HostScore  int       `json:"host_score"`
	GuestScore int       `json:"guest_score"`
	Winner     int       `json:"winner"` // 0 on a draw
	Moves      int       `json:"moves"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `gorm:"index" json:"ended_at"`
}

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects to Postgres and migrates the match table.
func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return New(db, log)
}

func New(db *gorm.DB, log *zap.Logger) (*Store, error) {
	if err := db.AutoMigrate(&MatchRecord{}); err != nil {
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) RecordMatch(ctx context.Context, rec MatchRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("record match %s: %w", rec.RoomCode, err)
	}
	s.log.Debug("match archived",
		zap.String("room", rec.RoomCode),
		zap.String("id", rec.ID.String()),
		zap.Int("winner", rec.Winner))
	return nil
}

// Recent returns the newest records first.
func (s *Store) Recent(ctx context.Context, limit int) ([]MatchRecord, error) {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}
	var recs []MatchRecord
	err := s.db.WithContext(ctx).
		Order("ended_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return recs, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
