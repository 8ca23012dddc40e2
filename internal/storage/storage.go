// Package storage is the persistence layer: PostgreSQL (via GORM) for the
// durable records that must outlive a process (moderation ledger entries,
// bans, call history, callback requests) and Redis for the fast-path caches
// (ban flags, block pairs, search-queue mirror).
package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"callgogo/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Storage is the persistence contract consumed by the services.
type Storage interface {
	// Call history
	SaveCallRecord(rec *models.CallRecord) error
	CloseCallRecord(sessionID string, endedAt time.Time, reason string) error

	// Moderation ledger
	SaveModerationRecord(rec *models.ModerationRecord) error
	ListBlockRecords() ([]models.ModerationRecord, error)
	ListReports(status string) ([]models.ModerationRecord, error)
	UpdateModerationStatus(recordID, status string) error

	// Callback requests
	SaveCallbackRequest(req *models.CallbackRequest) error
	UpdateCallbackStatus(requestID string, status models.CallbackStatus) error

	// Redis fast paths
	CacheBlock(blockerID, blockedID string) error
	AddToSearchQueue(userID string) error
	RemoveFromSearchQueue(userID string) error

	// Bans
	IsBanned(anonID string) (bool, error)
	BanUser(userID string, reasons []string, duration time.Duration) error
	UnbanUser(userID string) error
}

// Service implements Storage over GORM and Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// SaveCallRecord persists a new call session row.
func (s *Service) SaveCallRecord(rec *models.CallRecord) error {
	return s.DB.Save(rec).Error
}

// CloseCallRecord marks a call session row ended.
func (s *Service) CloseCallRecord(sessionID string, endedAt time.Time, reason string) error {
	return s.DB.Model(&models.CallRecord{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"is_active":  false,
			"ended_at":   endedAt,
			"end_reason": reason,
		}).Error
}

// SaveModerationRecord appends a block or report record.
func (s *Service) SaveModerationRecord(rec *models.ModerationRecord) error {
	if rec.Status == "" {
		rec.Status = "new"
	}
	if err := s.DB.Create(rec).Error; err != nil {
		log.Printf("ERROR: Failed to save moderation record %s->%s: %v", rec.ActorID, rec.TargetID, err)
		return err
	}
	return nil
}

// ListBlockRecords returns every persisted block fact, for warming the
// ledger's in-memory index at startup.
func (s *Service) ListBlockRecords() ([]models.ModerationRecord, error) {
	var records []models.ModerationRecord
	err := s.DB.Where("kind = ?", models.ModerationBlock).Find(&records).Error
	if err != nil {
		log.Printf("ERROR: Failed to list block records: %v", err)
		return nil, err
	}
	return records, nil
}

// ListReports returns reports filtered by status ("" for all), newest first.
func (s *Service) ListReports(status string) ([]models.ModerationRecord, error) {
	q := s.DB.Where("kind = ?", models.ModerationReport)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var records []models.ModerationRecord
	if err := q.Order("created_at desc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateModerationStatus moves a record through the admin review flow.
func (s *Service) UpdateModerationStatus(recordID, status string) error {
	return s.DB.Model(&models.ModerationRecord{}).
		Where("id = ?", recordID).
		Update("status", status).Error
}

// SaveCallbackRequest persists a new callback request row.
func (s *Service) SaveCallbackRequest(req *models.CallbackRequest) error {
	return s.DB.Save(req).Error
}

// UpdateCallbackStatus records a callback request's resolution.
func (s *Service) UpdateCallbackStatus(requestID string, status models.CallbackStatus) error {
	return s.DB.Model(&models.CallbackRequest{}).
		Where("id = ?", requestID).
		Updates(map[string]interface{}{
			"status":      status,
			"resolved_at": time.Now(),
		}).Error
}

// CacheBlock mirrors a block pair into Redis for cross-instance visibility.
func (s *Service) CacheBlock(blockerID, blockedID string) error {
	return s.Redis.SAdd(s.Ctx, "block:"+blockerID, blockedID).Err()
}

// AddToSearchQueue mirrors queue membership into a Redis set.
func (s *Service) AddToSearchQueue(userID string) error {
	return s.Redis.SAdd(s.Ctx, "search_queue", userID).Err()
}

// RemoveFromSearchQueue removes a participant from the Redis queue mirror.
func (s *Service) RemoveFromSearchQueue(userID string) error {
	return s.Redis.SRem(s.Ctx, "search_queue", userID).Err()
}

// IsBanned checks the ban flag in Redis first, then falls back to the
// database for bans issued while the cache was cold.
func (s *Service) IsBanned(anonID string) (bool, error) {
	status, err := s.Redis.Get(s.Ctx, "ban:"+anonID).Result()
	if err == nil {
		return status != "", nil
	}
	if !errors.Is(err, redis.Nil) {
		return false, err
	}

	var ban models.Ban
	dbErr := s.DB.Where("user_id = ?", anonID).
		Order("created_at desc").First(&ban).Error
	if errors.Is(dbErr, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if dbErr != nil {
		return false, dbErr
	}
	return ban.Active(time.Now()), nil
}

// BanUser records a ban row and sets the Redis flag. Zero duration means
// permanent.
func (s *Service) BanUser(userID string, reasons []string, duration time.Duration) error {
	ban := &models.Ban{UserID: userID, Reasons: reasons}
	if duration > 0 {
		ban.ExpiresAt = time.Now().Add(duration)
	}
	if err := s.DB.Create(ban).Error; err != nil {
		return err
	}
	if s.Redis != nil {
		if err := s.Redis.Set(s.Ctx, "ban:"+userID, "active", duration).Err(); err != nil {
			log.Printf("WARNING: failed to cache ban for %s: %v", userID, err)
		}
	}
	return nil
}

// UnbanUser clears the Redis flag and expires any active ban rows.
func (s *Service) UnbanUser(userID string) error {
	if s.Redis != nil {
		if err := s.Redis.Del(s.Ctx, "ban:"+userID).Err(); err != nil {
			log.Printf("WARNING: failed to clear ban cache for %s: %v", userID, err)
		}
	}
	return s.DB.Model(&models.Ban{}).
		Where("user_id = ?", userID).
		Update("expires_at", time.Now()).Error
}
