package index

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteBackend persists points in a local SQLite file, vectors as
// little-endian float32 blobs. Search is a brute-force cosine scan over all
// rows; fine for a corpus of book summaries.
type SQLiteBackend struct {
	db         *sql.DB
	path       string
	collection string
}

func NewSQLiteBackend(dbPath, collection string) (*SQLiteBackend, error) {
	if collection == "" {
		collection = defaultCollection
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	b := &SQLiteBackend{
		db:         db,
		path:       dbPath,
		collection: collection,
	}

	if err := b.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) initSchema() error {
	query := `CREATE TABLE IF NOT EXISTS points (
		id TEXT NOT NULL,
		collection TEXT NOT NULL,
		title TEXT,
		summary TEXT,
		document TEXT,
		vector BLOB,
		PRIMARY KEY (id, collection)
	);`
	if _, err := b.db.Exec(query); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Collection() string {
	return b.collection
}

func (b *SQLiteBackend) Location() string {
	return filepath.Dir(b.path)
}

func (b *SQLiteBackend) Count(ctx context.Context) (int, error) {
	var n int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM points WHERE collection = ?`, b.collection).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (b *SQLiteBackend) Upsert(ctx context.Context, points []Point) error {
	for _, p := range points {
		vecBuf := new(bytes.Buffer)
		if err := binary.Write(vecBuf, binary.LittleEndian, p.Vector); err != nil {
			return fmt.Errorf("failed to encode vector: %w", err)
		}
		query := `INSERT OR REPLACE INTO points (id, collection, title, summary, document, vector)
			VALUES (?, ?, ?, ?, ?, ?)`
		if _, err := b.db.ExecContext(ctx, query, p.ID, b.collection, p.Title, p.Summary, p.Document, vecBuf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func (b *SQLiteBackend) Query(ctx context.Context, queryVector []float32, k int) ([]Scored, error) {
	if k <= 0 {
		k = 3
	}

	rows, err := b.db.QueryContext(ctx, `SELECT id, title, summary, document, vector FROM points WHERE collection = ?`, b.collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scored []Scored
	for rows.Next() {
		var s Scored
		var vecBlob []byte
		if err := rows.Scan(&s.ID, &s.Title, &s.Summary, &s.Document, &vecBlob); err != nil {
			continue
		}

		vector := make([]float32, len(vecBlob)/4)
		if err := binary.Read(bytes.NewReader(vecBlob), binary.LittleEndian, &vector); err != nil {
			continue
		}

		s.Similarity = cosineSimilarity(queryVector, vector)
		scored = append(scored, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (b *SQLiteBackend) Drop(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM points WHERE collection = ?`, b.collection)
	return err
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var dot, magA, magB float32
	for i := 0; i < len(a); i++ {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0.0
	}
	return dot / (float32(math.Sqrt(float64(magA))) * float32(math.Sqrt(float64(magB))))
}
