package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SQLiteLinkRepository handles database operations for stored links
type SQLiteLinkRepository struct {
	db *DB
}

var _ LinkRepository = (*SQLiteLinkRepository)(nil)

func NewLinkRepository(db *DB) *SQLiteLinkRepository {
	return &SQLiteLinkRepository{db: db}
}

// InsertLinks stores all links in one transaction, skipping URLs that are
// already present.
func (r *SQLiteLinkRepository) InsertLinks(links []NewLink) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (link, title) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, link := range links {
		result, err := stmt.Exec(link.URL, link.Title)
		if err != nil {
			return 0, fmt.Errorf("failed to insert link %s: %w", link.URL, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit links: %w", err)
	}

	return inserted, nil
}

func (r *SQLiteLinkRepository) GetLinksFrom(minID int64) ([]Link, error) {
	rows, err := r.db.Query(`
		SELECT id, link, title, created_at
		FROM links
		WHERE id >= ?
		ORDER BY id ASC
	`, minID)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var link Link
		if err := rows.Scan(&link.ID, &link.URL, &link.Title, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate links: %w", err)
	}

	return links, nil
}

func (r *SQLiteLinkRepository) DeleteLink(id int64) error {
	result, err := r.db.Exec(`DELETE FROM links WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete link %d: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("link %d: %w", id, ErrLinkNotFound)
	}

	return nil
}

func (r *SQLiteLinkRepository) GetLinkCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM links`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get link count: %w", err)
	}
	return count, nil
}

// GetMatchingLinkCount counts links whose title contains term as a phrase.
// An empty term matches every link.
func (r *SQLiteLinkRepository) GetMatchingLinkCount(term string) (int, error) {
	match, ok := matchExpression(term)
	if !ok {
		return r.GetLinkCount()
	}

	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM links_title_idx WHERE links_title_idx MATCH ?`, match).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get matching link count: %w", err)
	}
	return count, nil
}

func (r *SQLiteLinkRepository) GetRandomLink() (*Link, error) {
	return r.scanOptionalLink(r.db.QueryRow(`
		SELECT id, link, title, created_at
		FROM links
		ORDER BY RANDOM()
		LIMIT 1
	`))
}

// GetRandomMatchingLink returns nil when no title contains term.
func (r *SQLiteLinkRepository) GetRandomMatchingLink(term string) (*Link, error) {
	match, ok := matchExpression(term)
	if !ok {
		return r.GetRandomLink()
	}

	return r.scanOptionalLink(r.db.QueryRow(`
		SELECT l.id, l.link, l.title, l.created_at
		FROM links_title_idx
		JOIN links l ON l.id = links_title_idx.rowid
		WHERE links_title_idx MATCH ?
		ORDER BY RANDOM()
		LIMIT 1
	`, match))
}

func (r *SQLiteLinkRepository) scanOptionalLink(row *sql.Row) (*Link, error) {
	var link Link
	err := row.Scan(&link.ID, &link.URL, &link.Title, &link.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get random link: %w", err)
	}
	return &link, nil
}

// matchExpression quotes term as a single FTS5 phrase so that user input is
// never parsed as query syntax.
func matchExpression(term string) (string, bool) {
	term = strings.TrimSpace(term)
	if term == "" {
		return "", false
	}
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`, true
}
