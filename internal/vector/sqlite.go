package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "modernc.org/sqlite"
)

// persistDB holds the two synchronized on-disk artifacts: the embedding
// sequence and the ordered chunk metadata list. Both live in one SQLite file
// and every write touches them inside a single transaction, so a crash can
// never leave one ahead of the other.
type persistDB struct {
	db *sql.DB
}

func openPersistDB(path string) (*persistDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("vector: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("vector: pragma failed: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS vectors (
			pos INTEGER PRIMARY KEY,
			embedding BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS chunks (
			pos INTEGER PRIMARY KEY,
			document_id INTEGER NOT NULL,
			owner_id INTEGER NOT NULL,
			text TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_owner ON chunks (owner_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("vector: schema creation failed: %w", err)
	}

	return &persistDB{db: db}, nil
}

// saveFrom writes entries at positions [from, len) as one transaction.
// The index is append-only, so write-through only needs the tail.
func (p *persistDB) saveFrom(ctx context.Context, from int, vectors [][]float32, chunks []Chunk) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	vecStmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO vectors (pos, embedding) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer vecStmt.Close()

	chunkStmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO chunks (pos, document_id, owner_id, text) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer chunkStmt.Close()

	for pos := from; pos < len(vectors); pos++ {
		if _, err := vecStmt.ExecContext(ctx, pos, encodeFloat32s(vectors[pos])); err != nil {
			return err
		}
		c := chunks[pos]
		if _, err := chunkStmt.ExecContext(ctx, pos, c.DocumentID, c.OwnerID, c.Text); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// loadAll reads both artifacts back in position order. Gaps in the position
// sequence mean the pair is corrupt.
func (p *persistDB) loadAll(ctx context.Context) ([][]float32, []Chunk, error) {
	vectors, err := p.loadVectors(ctx)
	if err != nil {
		return nil, nil, err
	}
	chunks, err := p.loadChunks(ctx)
	if err != nil {
		return nil, nil, err
	}
	return vectors, chunks, nil
}

func (p *persistDB) loadVectors(ctx context.Context) ([][]float32, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT pos, embedding FROM vectors ORDER BY pos")
	if err != nil {
		return nil, fmt.Errorf("vector: load vectors: %w", err)
	}
	defer rows.Close()

	var vectors [][]float32
	for rows.Next() {
		var pos int
		var blob []byte
		if err := rows.Scan(&pos, &blob); err != nil {
			return nil, err
		}
		if pos != len(vectors) {
			return nil, fmt.Errorf("%w: vector position %d out of sequence", ErrStorageCorrupt, pos)
		}
		vectors = append(vectors, decodeFloat32s(blob))
	}
	return vectors, rows.Err()
}

func (p *persistDB) loadChunks(ctx context.Context) ([]Chunk, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT pos, document_id, owner_id, text FROM chunks ORDER BY pos")
	if err != nil {
		return nil, fmt.Errorf("vector: load chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var pos int
		var c Chunk
		if err := rows.Scan(&pos, &c.DocumentID, &c.OwnerID, &c.Text); err != nil {
			return nil, err
		}
		if pos != len(chunks) {
			return nil, fmt.Errorf("%w: chunk position %d out of sequence", ErrStorageCorrupt, pos)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (p *persistDB) Close() error {
	return p.db.Close()
}

// encodeFloat32s converts []float32 to little-endian bytes.
func encodeFloat32s(f []float32) []byte {
	buf := make([]byte, len(f)*4)
	for i, v := range f {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeFloat32s converts little-endian bytes back to []float32.
func decodeFloat32s(b []byte) []float32 {
	f := make([]float32, len(b)/4)
	for i := range f {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return f
}
