package database

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrStoryNotFound is returned when no story exists for an identifier.
var ErrStoryNotFound = errors.New("story not found")

// ErrInvalidTransition is returned when a status update would move a story
// backward or out of a terminal state.
var ErrInvalidTransition = errors.New("invalid story status transition")

// StoryStore is the persistence boundary the pipeline depends on. There is
// exactly one durable source of truth for story state; no in-memory registry
// exists beside it.
type StoryStore interface {
	CreateStory(story *Story) error
	GetStoryByID(id string) (*Story, error)
	UpdateStoryStatus(id string, status StoryStatus, errorMsg string) error
	UpdateStory(story *Story) error
}

// GormManager is the sqlite-backed StoryStore.
type GormManager struct {
	DB *gorm.DB
}

// NewGormManager opens (or creates) the sqlite database at dbPath and
// migrates the schema.
func NewGormManager(dbPath string) (*GormManager, error) {
	newLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dsn := fmt.Sprintf("%s?_busy_timeout=10000&_journal_mode=WAL&_foreign_keys=on", dbPath)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %v", err)
	}

	manager := &GormManager{DB: db}

	if err := manager.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %v", err)
	}

	return manager, nil
}

// Migrate runs schema migration.
func (gm *GormManager) Migrate() error {
	return gm.DB.AutoMigrate(&Story{})
}

// Close closes the underlying connection.
func (gm *GormManager) Close() error {
	sqlDB, err := gm.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateStory inserts a new story record.
func (gm *GormManager) CreateStory(story *Story) error {
	if story.Status == "" {
		story.Status = StatusPending
	}
	story.CreatedAt = Now()
	story.UpdatedAt = story.CreatedAt

	result := gm.DB.Create(story)
	if result.Error != nil {
		return fmt.Errorf("failed to create story: %v", result.Error)
	}

	return nil
}

// GetStoryByID fetches a story, returning ErrStoryNotFound when absent.
func (gm *GormManager) GetStoryByID(id string) (*Story, error) {
	var story Story
	result := gm.DB.First(&story, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrStoryNotFound
		}
		return nil, fmt.Errorf("failed to get story: %v", result.Error)
	}

	return &story, nil
}

// UpdateStoryStatus moves a story to a new status, enforcing the monotonic
// state machine. errorMsg is recorded only for failed transitions.
func (gm *GormManager) UpdateStoryStatus(id string, status StoryStatus, errorMsg string) error {
	story, err := gm.GetStoryByID(id)
	if err != nil {
		return err
	}

	if !story.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, story.Status, status)
	}

	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if status == StatusFailed {
		updates["error_msg"] = errorMsg
	}

	result := gm.DB.Model(&Story{ID: id}).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update story status: %v", result.Error)
	}

	return nil
}

// UpdateStory saves the full story record.
func (gm *GormManager) UpdateStory(story *Story) error {
	story.UpdatedAt = Now()
	result := gm.DB.Save(story)
	if result.Error != nil {
		return fmt.Errorf("failed to update story: %v", result.Error)
	}

	return nil
}
