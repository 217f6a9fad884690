package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/CURENT/pv-curve-llm/agent/dialogue/ports"
)

// FTSIndex serves snippet search from an FTS5 table in the embedded libsql
// database. The table is populated out of band (ingest tooling or the
// migration seeding the built-in knowledge base).
type FTSIndex struct {
	db *sql.DB
}

// NewFTSIndex wraps an open database handle.
func NewFTSIndex(db *sql.DB) *FTSIndex {
	return &FTSIndex{db: db}
}

// Seed loads the built-in knowledge base into the FTS table if it is empty.
func (f *FTSIndex) Seed(ctx context.Context) error {
	var n int
	if err := f.db.QueryRowContext(ctx, `SELECT count(*) FROM snippets_fts`).Scan(&n); err != nil {
		return fmt.Errorf("snippet table probe failed: %w", err)
	}
	if n > 0 {
		return nil
	}
	for _, d := range knowledgeBase {
		_, err := f.db.ExecContext(ctx,
			`INSERT INTO snippets_fts (title, body) VALUES (?, ?)`, d.Title, d.Text)
		if err != nil {
			return fmt.Errorf("seeding snippet %q failed: %w", d.Title, err)
		}
	}
	return nil
}

// Search runs a BM25-ranked FTS5 match. Empty result sets are valid.
func (f *FTSIndex) Search(ctx context.Context, query string, k int) ([]ports.Snippet, error) {
	match := escapeFTSQuery(query)
	if match == "" || k <= 0 {
		return nil, nil
	}

	rows, err := f.db.QueryContext(ctx, `
		SELECT title, body, bm25(snippets_fts) AS rank
		FROM snippets_fts
		WHERE snippets_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, match, k)
	if err != nil {
		return nil, fmt.Errorf("fts search failed: %w", err)
	}
	defer rows.Close()

	var out []ports.Snippet
	for rows.Next() {
		var title, body string
		var rank float64
		if err := rows.Scan(&title, &body, &rank); err != nil {
			return nil, fmt.Errorf("fts scan failed: %w", err)
		}
		// bm25() returns lower-is-better; flip the sign so the fuser sees
		// higher-is-better like every other source.
		out = append(out, ports.Snippet{Text: body, Score: -rank, Source: "fts:" + title})
	}
	return out, rows.Err()
}

var _ source = (*FTSIndex)(nil)

// escapeFTSQuery turns free text into an OR query of quoted terms so user
// punctuation cannot break FTS5 syntax.
func escapeFTSQuery(query string) string {
	terms := tokenize(query)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}
