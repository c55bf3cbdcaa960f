package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/focus_mode/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.IsEncrypted

const sessionDBName = "focus_sessions.db"

// EncryptedSessionLog implements domain.SessionLog using a SQLCipher
// encrypted SQLite database. Records are append-only: nothing in this
// daemon updates or deletes them.
type EncryptedSessionLog struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedSessionLog opens (or creates) the encrypted session database.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedSessionLog(dataDir string, key []byte) (*EncryptedSessionLog, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, sessionDBName)
	keyHex := hex.EncodeToString(key)

	// Open with SQLCipher key as DSN parameter
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to session database: %w", err)
	}

	return &EncryptedSessionLog{db: db, dbPath: dbPath}, nil
}

// Init creates the schema if it doesn't exist. Idempotent.
func (s *EncryptedSessionLog) Init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS focus_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		app_name TEXT NOT NULL,
		mode TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append inserts a new session record.
func (s *EncryptedSessionLog) Append(appName string, mode domain.Mode, timestamp string) error {
	_, err := s.db.Exec(
		`INSERT INTO focus_log (app_name, mode, timestamp) VALUES (?, ?, ?)`,
		appName, string(mode), timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append session record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *EncryptedSessionLog) Recent(limit int) ([]domain.SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, app_name, mode, timestamp FROM focus_log ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query session records: %w", err)
	}
	defer rows.Close()

	var records []domain.SessionRecord
	for rows.Next() {
		var r domain.SessionRecord
		var mode string
		if err := rows.Scan(&r.ID, &r.AppName, &mode, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan session record: %w", err)
		}
		r.Mode = domain.Mode(mode)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close releases the database connection.
func (s *EncryptedSessionLog) Close() error {
	return s.db.Close()
}

// Ensure EncryptedSessionLog implements domain.SessionLog.
var _ domain.SessionLog = (*EncryptedSessionLog)(nil)
