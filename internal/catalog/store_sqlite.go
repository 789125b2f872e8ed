package catalog

import (
	"database/sql"
	"fmt"

	"soundcast/internal/domain"

	_ "modernc.org/sqlite"
)

// sqliteStore persists the catalog in a SQLite database. The whole ordered
// snapshot is rewritten in one transaction per mutation; the catalog is
// small enough that this is simpler and safer than row diffing.
type sqliteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sounds (
			id       INTEGER PRIMARY KEY,
			position INTEGER NOT NULL,
			name     TEXT NOT NULL,
			file     TEXT NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sounds table: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Load() ([]domain.Sound, error) {
	rows, err := s.db.Query(`SELECT id, name, file FROM sounds ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query sounds: %w", err)
	}
	defer rows.Close()

	sounds := []domain.Sound{}
	for rows.Next() {
		var snd domain.Sound
		if err := rows.Scan(&snd.ID, &snd.Name, &snd.File); err != nil {
			return nil, err
		}
		sounds = append(sounds, snd)
	}
	return sounds, rows.Err()
}

func (s *sqliteStore) Save(sounds []domain.Sound) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sounds`); err != nil {
		return fmt.Errorf("clear sounds: %w", err)
	}
	for pos, snd := range sounds {
		if _, err := tx.Exec(
			`INSERT INTO sounds (id, position, name, file) VALUES (?, ?, ?, ?)`,
			snd.ID, pos, snd.Name, snd.File,
		); err != nil {
			return fmt.Errorf("insert sound %d: %w", snd.ID, err)
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
