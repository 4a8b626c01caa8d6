package configdb

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"
)

// ConfigDB holds the configured video sources and run history.
type ConfigDB struct {
	Log logs.Log
	DB  *gorm.DB
}

func NewConfigDB(logger logs.Log, dbFilename string) (*ConfigDB, error) {
	os.MkdirAll(filepath.Dir(dbFilename), 0777)
	db, err := dbh.OpenDB(logger, dbh.MakeSqliteConfig(dbFilename), Migrations(logger), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open database %v: %w", dbFilename, err)
	}
	return &ConfigDB{
		Log: logger,
		DB:  db,
	}, nil
}

// ListSources returns all configured video sources.
func (c *ConfigDB) ListSources() ([]VideoSource, error) {
	sources := []VideoSource{}
	if err := c.DB.Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

// EnabledSources returns the sources that should be started at boot.
func (c *ConfigDB) EnabledSources() ([]VideoSource, error) {
	sources := []VideoSource{}
	if err := c.DB.Where("enabled = ?", true).Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

// AddSource stores a new video source and returns it with its ID populated.
func (c *ConfigDB) AddSource(src *VideoSource) error {
	return c.DB.Create(src).Error
}

// DeleteSource removes a video source by ID.
func (c *ConfigDB) DeleteSource(id int64) error {
	return c.DB.Delete(&VideoSource{}, id).Error
}

// RecordRunSummary appends the tally snapshot of a finished source run.
func (c *ConfigDB) RecordRunSummary(summary *RunSummary) error {
	return c.DB.Create(summary).Error
}

// RecentRunSummaries returns the most recent run summaries, newest first.
func (c *ConfigDB) RecentRunSummaries(limit int) ([]RunSummary, error) {
	summaries := []RunSummary{}
	if err := c.DB.Order("id DESC").Limit(limit).Find(&summaries).Error; err != nil {
		return nil, err
	}
	return summaries, nil
}

// GetVariable reads a key from the variable table ("" if absent).
func (c *ConfigDB) GetVariable(key string) (string, error) {
	v := Variable{}
	err := c.DB.First(&v, "key = ?", key).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v.Value, nil
}

// SetVariable writes a key to the variable table.
func (c *ConfigDB) SetVariable(key, value string) error {
	return c.DB.Exec("INSERT INTO variable (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value", key, value).Error
}
