package main

import (
	"database/sql"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// AccountRow represents a pilot account record
type AccountRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// StatsRow represents cumulative account stats
type StatsRow struct {
	AccountID int64
	Kills     int
	Deaths    int
	Wins      int
	Sorties   int
	Score     int
	Playtime  float64 // seconds
	Tokens    int
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		is_guest INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS stats (
		account_id INTEGER PRIMARY KEY REFERENCES accounts(id),
		kills INTEGER NOT NULL DEFAULT 0,
		deaths INTEGER NOT NULL DEFAULT 0,
		wins INTEGER NOT NULL DEFAULT 0,
		sorties INTEGER NOT NULL DEFAULT 0,
		score INTEGER NOT NULL DEFAULT 0,
		playtime REAL NOT NULL DEFAULT 0,
		tokens INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		mode INTEGER NOT NULL DEFAULT 0,
		map TEXT NOT NULL DEFAULT '',
		duration REAL NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		players INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS session_players (
		session_id TEXT NOT NULL REFERENCES sessions(id),
		player_id TEXT NOT NULL DEFAULT '',
		account_id INTEGER NOT NULL DEFAULT 0,
		name TEXT NOT NULL DEFAULT '',
		aircraft INTEGER NOT NULL DEFAULT 0,
		rank INTEGER NOT NULL DEFAULT 0,
		score INTEGER NOT NULL DEFAULT 0,
		kills INTEGER NOT NULL DEFAULT 0,
		deaths INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (session_id, player_id)
	);

	CREATE TABLE IF NOT EXISTS achievements (
		account_id INTEGER NOT NULL REFERENCES accounts(id),
		achievement_id TEXT NOT NULL,
		unlocked_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (account_id, achievement_id)
	);

	CREATE TABLE IF NOT EXISTS rewards (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tx_ref TEXT NOT NULL UNIQUE,
		account_id INTEGER NOT NULL REFERENCES accounts(id),
		amount INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_session_players_account ON session_players(account_id);
	CREATE INDEX IF NOT EXISTS idx_accounts_username ON accounts(username);
	CREATE INDEX IF NOT EXISTS idx_rewards_account ON rewards(account_id);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// CreateAccount creates a new pilot account (returns account ID)
func (db *DB) CreateAccount(username, passHash string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO accounts (username, pass_hash) VALUES (?, ?)",
		username, passHash,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	// Create stats row
	_, err = db.conn.Exec("INSERT INTO stats (account_id) VALUES (?)", id)
	return id, err
}

// GetAccountByUsername returns an account by username
func (db *DB) GetAccountByUsername(username string) (*AccountRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM accounts WHERE username = ?",
		username,
	)
	a := &AccountRow{}
	err := row.Scan(&a.ID, &a.Username, &a.PassHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// GetAccountByID returns an account by ID
func (db *DB) GetAccountByID(id int64) (*AccountRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM accounts WHERE id = ?",
		id,
	)
	a := &AccountRow{}
	err := row.Scan(&a.ID, &a.Username, &a.PassHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM accounts WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// GetStats returns account stats
func (db *DB) GetStats(accountID int64) (*StatsRow, error) {
	row := db.conn.QueryRow(
		"SELECT account_id, kills, deaths, wins, sorties, score, playtime, tokens FROM stats WHERE account_id = ?",
		accountID,
	)
	s := &StatsRow{}
	err := row.Scan(&s.AccountID, &s.Kills, &s.Deaths, &s.Wins, &s.Sorties, &s.Score, &s.Playtime, &s.Tokens)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// UpdateStatsAfterSession folds one session's results into the account totals
func (db *DB) UpdateStatsAfterSession(accountID int64, kills, deaths, score int, won bool, duration float64) error {
	winInc := 0
	if won {
		winInc = 1
	}
	_, err := db.conn.Exec(`
		UPDATE stats SET
			kills = kills + ?,
			deaths = deaths + ?,
			wins = wins + ?,
			sorties = sorties + 1,
			score = score + ?,
			playtime = playtime + ?
		WHERE account_id = ?`,
		kills, deaths, winInc, score, duration, accountID,
	)
	return err
}

// RecordSession records a completed session
func (db *DB) RecordSession(rec SessionRecord) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO sessions (id, mode, map, duration, reason, players) VALUES (?, ?, ?, ?, ?, ?)",
		rec.SessionID, rec.Mode, rec.MapID, rec.Duration, rec.Reason, rec.Players,
	)
	return err
}

// RecordSessionPlayer records one player's final standing in a session
func (db *DB) RecordSessionPlayer(row SessionPlayerRecord) error {
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO session_players (session_id, player_id, account_id, name, aircraft, rank, score, kills, deaths)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.SessionID, row.PlayerID, row.AccountID, row.Name, row.Aircraft, row.Rank, row.Score, row.Kills, row.Deaths,
	)
	return err
}

// UnlockAchievement stores one unlock; replays are ignored
func (db *DB) UnlockAchievement(accountID int64, achievementID string) error {
	_, err := db.conn.Exec(
		"INSERT OR IGNORE INTO achievements (account_id, achievement_id) VALUES (?, ?)",
		accountID, achievementID,
	)
	return err
}

// GetAchievements returns the account's unlocked achievement ids
func (db *DB) GetAchievements(accountID int64) ([]string, error) {
	rows, err := db.conn.Query(
		"SELECT achievement_id FROM achievements WHERE account_id = ?", accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertReward records a token award and credits the wallet atomically
func (db *DB) InsertReward(txRef string, accountID int64, amount int, reason string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO rewards (tx_ref, account_id, amount, reason) VALUES (?, ?, ?, ?)",
		txRef, accountID, amount, reason,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"UPDATE stats SET tokens = tokens + ? WHERE account_id = ?",
		amount, accountID,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// GetSetting reads a settings value, "" if absent
func (db *DB) GetSetting(key string) (string, error) {
	var val string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&val)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return val, err
}

// SetSetting stores a settings value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// LeaderboardEntry represents one row in the leaderboard
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	Kills    int    `json:"kills"`
	Deaths   int    `json:"deaths"`
	Wins     int    `json:"wins"`
	Sorties  int    `json:"sorties"`
}

// GetLeaderboard returns top accounts sorted by the given field
func (db *DB) GetLeaderboard(orderBy string, limit int) ([]LeaderboardEntry, error) {
	// Whitelist valid order columns
	validCols := map[string]string{
		"kills": "s.kills", "wins": "s.wins", "score": "s.score",
		"kd": "CASE WHEN s.deaths > 0 THEN CAST(s.kills AS REAL)/s.deaths ELSE s.kills END",
	}
	col, ok := validCols[orderBy]
	if !ok {
		col = "s.score"
	}

	query := `SELECT a.username, s.score, s.kills, s.deaths, s.wins, s.sorties
		FROM stats s JOIN accounts a ON a.id = s.account_id
		WHERE a.is_guest = 0
		ORDER BY ` + col + ` DESC LIMIT ?`

	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LeaderboardEntry
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Score, &e.Kills, &e.Deaths, &e.Wins, &e.Sorties); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		result = append(result, e)
	}
	return result, rows.Err()
}
