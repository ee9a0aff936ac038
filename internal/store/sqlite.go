package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/akuru-app/akuru/internal/model/chat"
	"github.com/akuru-app/akuru/internal/model/dialect"
	"github.com/akuru-app/akuru/internal/model/dict"
)

// SQLiteStore implements Repository on top of a local sqlite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (and if needed creates) the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create database directory")
		}
	}

	// WAL keeps readers from blocking the message-insert path.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "ping database")
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, errors.Wrap(err, "initialize schema")
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		title TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		is_active INTEGER DEFAULT 1,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, updated_at);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id INTEGER NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);

	CREATE TABLE IF NOT EXISTS dialect_words (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		english TEXT UNIQUE NOT NULL,
		male TEXT NOT NULL,
		huvadhoo TEXT NOT NULL,
		addu TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS dictionary_words (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		word TEXT UNIQUE NOT NULL,
		definition TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return errors.Wrap(err, "create schema")
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateUser inserts a new account. Emails are unique.
func (s *SQLiteStore) CreateUser(ctx context.Context, name, email, passwordHash string) (chat.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email = ?`, email).Scan(&exists)
	if err != nil {
		return chat.User{}, errors.Wrap(err, "check existing user")
	}
	if exists > 0 {
		return chat.User{}, ErrDuplicateEmail
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password, created_at) VALUES (?, ?, ?, ?)`,
		name, email, passwordHash, now.Unix(),
	)
	if err != nil {
		// A concurrent signup can slip past the existence check and land
		// on the unique index instead.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return chat.User{}, ErrDuplicateEmail
		}
		return chat.User{}, errors.Wrap(err, "insert user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return chat.User{}, errors.Wrap(err, "user insert id")
	}

	return chat.User{ID: id, Name: name, Email: email, PasswordHash: passwordHash, CreatedAt: now}, nil
}

// GetUserByEmail looks up an account for login.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (chat.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password, created_at FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetUserByID looks up an account for profile checks.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (chat.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (chat.User, error) {
	var u chat.User
	var createdAt int64
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.User{}, ErrNotFound
	}
	if err != nil {
		return chat.User{}, errors.Wrap(err, "scan user row")
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return u, nil
}

// CreateConversation inserts a conversation owned by userID.
func (s *SQLiteStore) CreateConversation(ctx context.Context, userID int64, title string) (chat.Conversation, error) {
	if title == "" {
		title = chat.DefaultTitle
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		userID, title, now.Unix(), now.Unix(),
	)
	if err != nil {
		return chat.Conversation{}, errors.Wrap(err, "insert conversation")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return chat.Conversation{}, errors.Wrap(err, "conversation insert id")
	}

	return chat.Conversation{
		ID:        id,
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ListConversations returns the user's conversations, newest-updated first,
// each carrying its message count.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID int64) ([]chat.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.title, c.created_at, c.updated_at, COUNT(m.id)
		FROM conversations c
		LEFT JOIN messages m ON c.id = m.conversation_id
		WHERE c.user_id = ?
		GROUP BY c.id
		ORDER BY c.updated_at DESC, c.id DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "query conversations")
	}
	defer rows.Close()

	conversations := make([]chat.Conversation, 0, 16)
	for rows.Next() {
		var c chat.Conversation
		var createdAt, updatedAt int64
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &createdAt, &updatedAt, &c.MessageCount); err != nil {
			return nil, errors.Wrap(err, "scan conversation row")
		}
		c.CreatedAt = time.Unix(createdAt, 0).UTC()
		c.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// GetConversation fetches a single conversation by id.
func (s *SQLiteStore) GetConversation(ctx context.Context, id int64) (chat.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.user_id, c.title, c.created_at, c.updated_at, COUNT(m.id)
		FROM conversations c
		LEFT JOIN messages m ON c.id = m.conversation_id
		WHERE c.id = ?
		GROUP BY c.id`, id)

	var c chat.Conversation
	var createdAt, updatedAt int64
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &createdAt, &updatedAt, &c.MessageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Conversation{}, ErrNotFound
	}
	if err != nil {
		return chat.Conversation{}, errors.Wrap(err, "scan conversation row")
	}
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	c.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return c, nil
}

// UpdateConversationTitle renames a conversation.
func (s *SQLiteStore) UpdateConversationTitle(ctx context.Context, id int64, title string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return errors.Wrap(err, "update conversation title")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "title update result")
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteConversation removes a conversation; messages cascade.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete conversation")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete result")
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddMessage appends a message and bumps the conversation's updated_at so
// the list ordering follows activity.
func (s *SQLiteStore) AddMessage(ctx context.Context, conversationID int64, role, content string) (chat.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "begin message tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		conversationID, role, content, now.UnixNano(),
	)
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "insert message")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "message insert id")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, now.Unix(), conversationID); err != nil {
		return chat.Message{}, errors.Wrap(err, "bump conversation updated_at")
	}

	if err := tx.Commit(); err != nil {
		return chat.Message{}, errors.Wrap(err, "commit message tx")
	}

	return chat.Message{
		ID:             id,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}, nil
}

// ListMessages returns a conversation's messages in creation order.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID int64) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, errors.Wrap(err, "query messages")
	}
	defer rows.Close()

	messages := make([]chat.Message, 0, 32)
	for rows.Next() {
		var m chat.Message
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, errors.Wrap(err, "scan message row")
		}
		m.CreatedAt = time.Unix(0, createdAt).UTC()
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// LookupDialect finds the dialect row for an English term, case-insensitive.
func (s *SQLiteStore) LookupDialect(ctx context.Context, english string) (dialect.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, english, male, huvadhoo, addu
		FROM dialect_words WHERE english = ? COLLATE NOCASE`,
		strings.TrimSpace(english))

	var e dialect.Entry
	err := row.Scan(&e.ID, &e.English, &e.Male, &e.Huvadhoo, &e.Addu)
	if errors.Is(err, sql.ErrNoRows) {
		return dialect.Entry{}, ErrNotFound
	}
	if err != nil {
		return dialect.Entry{}, errors.Wrap(err, "scan dialect row")
	}
	return e, nil
}

// UpsertDialect inserts or replaces a dialect row, used by seeding.
func (s *SQLiteStore) UpsertDialect(ctx context.Context, entry dialect.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dialect_words (english, male, huvadhoo, addu) VALUES (?, ?, ?, ?)
		ON CONFLICT(english) DO UPDATE SET male = excluded.male,
			huvadhoo = excluded.huvadhoo, addu = excluded.addu`,
		strings.ToLower(strings.TrimSpace(entry.English)), entry.Male, entry.Huvadhoo, entry.Addu)
	return errors.Wrap(err, "upsert dialect word")
}

// LookupDefinition finds the dictionary row for a word, case-insensitive.
func (s *SQLiteStore) LookupDefinition(ctx context.Context, word string) (dict.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, word, definition
		FROM dictionary_words WHERE word = ? COLLATE NOCASE`,
		strings.TrimSpace(word))

	var e dict.Entry
	err := row.Scan(&e.ID, &e.Word, &e.Definition)
	if errors.Is(err, sql.ErrNoRows) {
		return dict.Entry{}, ErrNotFound
	}
	if err != nil {
		return dict.Entry{}, errors.Wrap(err, "scan dictionary row")
	}
	return e, nil
}

// SimilarWords returns dictionary words containing the term, for the
// did-you-mean suggestions on a missed lookup.
func (s *SQLiteStore) SimilarWords(ctx context.Context, term string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT word FROM dictionary_words
		WHERE word LIKE '%' || ? || '%' ORDER BY word LIMIT ?`,
		strings.ToLower(strings.TrimSpace(term)), limit)
	if err != nil {
		return nil, errors.Wrap(err, "query similar words")
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			return nil, errors.Wrap(err, "scan similar word")
		}
		words = append(words, word)
	}
	return words, errors.Wrap(rows.Err(), "iterate similar words")
}

// UpsertDefinition inserts or replaces a dictionary row, used by seeding.
func (s *SQLiteStore) UpsertDefinition(ctx context.Context, entry dict.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dictionary_words (word, definition) VALUES (?, ?)
		ON CONFLICT(word) DO UPDATE SET definition = excluded.definition`,
		strings.ToLower(strings.TrimSpace(entry.Word)), entry.Definition)
	return errors.Wrap(err, "upsert dictionary word")
}
