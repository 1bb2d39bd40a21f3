// Package manuscript stores chapter text and answers mention lookups: which
// passages reference a graph entity by its current name. The editor that
// produces the text lives elsewhere; this side only ingests and searches it.
package manuscript

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "github.com/mattn/go-sqlite3"

	"github.com/storyloom/atlas/internal/core/model"
)

const chapterSchema = `
CREATE TABLE IF NOT EXISTS chapters (
    id         TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    title      TEXT NOT NULL,
    position   INTEGER NOT NULL DEFAULT 0,
    content    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_chapters_project ON chapters(project_id, position);
`

// contextRadius is the number of characters kept on each side of a match.
const contextRadius = 80

// maxMentionsPerChapter caps how many snippets one chapter contributes.
const maxMentionsPerChapter = 3

type Chapter struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
	Position  int    `json:"position"`
	Content   string `json:"content"`
}

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manuscript database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(chapterSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create chapter schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) UpsertChapter(ctx context.Context, ch Chapter) error {
	if ch.ID == "" || ch.ProjectID == "" {
		return fmt.Errorf("chapter: missing id or project_id")
	}
	const q = `
		INSERT INTO chapters (id, project_id, title, position, content)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			position = excluded.position,
			content = excluded.content`
	if _, err := s.db.ExecContext(ctx, q, ch.ID, ch.ProjectID, ch.Title, ch.Position, ch.Content); err != nil {
		return fmt.Errorf("failed to upsert chapter %s: %w", ch.ID, err)
	}
	return nil
}

// GetMentions scans the project's chapters for case-insensitive occurrences
// of the entity's current name and returns context snippets in manuscript
// order. The entity id and type travel with the request for collaborators
// that key on them; the search itself matches on the name.
func (s *Store) GetMentions(ctx context.Context, projectID, entityID string, entityType model.EntityType, name string) ([]model.Mention, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}

	const q = `
		SELECT id, title, content FROM chapters
		WHERE project_id = ? AND content LIKE '%' || ? || '%' COLLATE NOCASE
		ORDER BY position, id`
	rows, err := s.db.QueryContext(ctx, q, projectID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to search chapters: %w", err)
	}
	defer rows.Close()

	var mentions []model.Mention
	for rows.Next() {
		var id, title, content string
		if err := rows.Scan(&id, &title, &content); err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		for _, snippet := range extractSnippets(content, name, maxMentionsPerChapter) {
			mentions = append(mentions, model.Mention{
				ChapterID:    id,
				ChapterTitle: title,
				Context:      snippet,
			})
		}
	}
	return mentions, rows.Err()
}

// extractSnippets finds up to limit case-insensitive occurrences of name and
// returns each with surrounding context, trimmed at rune boundaries.
//
// Case folding is ASCII-oriented: offsets located in the lowered copy are
// applied to the original, which assumes lowering preserves byte length.
// That holds for all ASCII and the vast majority of letters; the handful of
// length-changing case mappings (e.g. U+0130) can skew a snippet window but
// never escape the clamped bounds. The SQLite LIKE ... COLLATE NOCASE filter
// feeding this function is ASCII-insensitive only, so matching beyond ASCII
// here would find nothing the query layer returns anyway.
func extractSnippets(content, name string, limit int) []string {
	lower := strings.ToLower(content)
	needle := strings.ToLower(name)

	var snippets []string
	offset := 0
	for len(snippets) < limit {
		idx := strings.Index(lower[offset:], needle)
		if idx < 0 {
			break
		}
		at := offset + idx

		start := at - contextRadius
		if start < 0 {
			start = 0
		}
		for start > 0 && !utf8.RuneStart(content[start]) {
			start--
		}
		end := at + len(needle) + contextRadius
		if end > len(content) {
			end = len(content)
		}
		for end < len(content) && !utf8.RuneStart(content[end]) {
			end++
		}

		snippet := strings.TrimSpace(content[start:end])
		if start > 0 {
			snippet = "…" + snippet
		}
		if end < len(content) {
			snippet = snippet + "…"
		}
		snippets = append(snippets, snippet)
		offset = at + len(needle)
	}
	return snippets
}
