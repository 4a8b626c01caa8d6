package configdb

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE video_source(
			id INTEGER PRIMARY KEY,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			device_index INT,
			path TEXT,
			enabled INT NOT NULL DEFAULT 1
		);

		CREATE TABLE variable(
			key TEXT PRIMARY KEY,
			value TEXT
		);

		CREATE TABLE run_summary(
			id INTEGER PRIMARY KEY,
			source_name TEXT NOT NULL,
			live INT NOT NULL,
			started_at INT NOT NULL,
			finished_at INT NOT NULL,
			active_count INT NOT NULL,
			idle_count INT NOT NULL,
			degraded INT NOT NULL
		);
	`))

	return migs
}
