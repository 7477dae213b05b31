package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/chris-bluera/bluera-knowledge/internal/engineerr"
)

// extensionOnce guards sqlite-vec's process-wide extension registration,
// which must happen once before any connection opens.
var extensionOnce sync.Once

func registerExtension() { extensionOnce.Do(sqlitevec.Auto) }

// Store is the vector+FTS capability the indexer writes to and the search
// engine reads from.
type Store interface {
	Initialize(ctx context.Context) error
	AddDocuments(ctx context.Context, docs []Document) error
	DeleteDocuments(ctx context.Context, storeID string, ids []string) error
	Search(ctx context.Context, storeID string, vector []float32, k int) ([]Hit, error)
	FullTextSearch(ctx context.Context, storeID string, query string, k int) ([]Hit, error)
	CreateFTSIndex(ctx context.Context) error
	DeleteStore(ctx context.Context, storeID string) error
	Close() error
}

type sqliteStore struct {
	db         *sql.DB
	dimensions int
}

// Open opens (creating if absent) a sqlite-backed Store at path, sized for
// vectors of the given dimensionality.
func Open(path string, dimensions int) (Store, error) {
	registerExtension()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.IO, "vectorstore.Open", "cannot open "+path, err)
	}
	db.SetMaxOpenConns(1) // one logical writer; sqlite's writer lock wants one conn
	s := &sqliteStore{db: db, dimensions: dimensions}
	return s, nil
}

// Initialize creates the tables every store shares: documents holds
// metadata+content (indexed by store_id) and documents_vec is the vec0
// nearest-neighbor index. The documents_fts FTS5 table is created
// separately by CreateFTSIndex.
func (s *sqliteStore) Initialize(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			store_id TEXT NOT NULL,
			content TEXT NOT NULL,
			source TEXT NOT NULL,
			doc_type TEXT NOT NULL,
			source_hash TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			total_chunks INTEGER NOT NULL,
			indexed_at TEXT NOT NULL,
			classification TEXT NOT NULL,
			section_header TEXT,
			symbol_name TEXT,
			doc_summary TEXT,
			crawl_depth INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_store ON documents(store_id)`,
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS documents_vec USING vec0(
			id TEXT PRIMARY KEY,
			embedding float[%d]
		)`, s.dimensions),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return engineerr.Wrap(engineerr.IO, "vectorstore.Initialize", "schema creation failed", err)
		}
	}
	return nil
}

// CreateFTSIndex creates the FTS5 virtual table. It runs after all
// documents for an indexing pass are inserted, so it is a separate
// operation from Initialize rather than part of the base schema.
func (s *sqliteStore) CreateFTSIndex(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			id UNINDEXED,
			content,
			tokenize = 'unicode61 remove_diacritics 0'
		)
	`)
	if err != nil {
		return engineerr.Wrap(engineerr.IO, "vectorstore.CreateFTSIndex", "fts5 table creation failed", err)
	}

	// (Re)populate from documents: CreateFtsIndex is idempotent and may run
	// after a partial prior run, so upsert every current row rather than
	// assuming the table was just created empty.
	rows, err := s.db.QueryContext(ctx, `SELECT id, content FROM documents`)
	if err != nil {
		return engineerr.Wrap(engineerr.IO, "vectorstore.CreateFTSIndex", "cannot read documents", err)
	}
	defer rows.Close()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return engineerr.Wrap(engineerr.IO, "vectorstore.CreateFTSIndex", "cannot begin transaction", err)
	}
	del, err := tx.Prepare(`DELETE FROM documents_fts WHERE id = ?`)
	if err != nil {
		tx.Rollback()
		return engineerr.Wrap(engineerr.IO, "vectorstore.CreateFTSIndex", "prepare delete failed", err)
	}
	ins, err := tx.Prepare(`INSERT INTO documents_fts (id, content) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return engineerr.Wrap(engineerr.IO, "vectorstore.CreateFTSIndex", "prepare insert failed", err)
	}
	for rows.Next() {
		var id, content string
		if err := rows.Scan(&id, &content); err != nil {
			tx.Rollback()
			return engineerr.Wrap(engineerr.IO, "vectorstore.CreateFTSIndex", "scan failed", err)
		}
		if _, err := del.Exec(id); err != nil {
			tx.Rollback()
			return engineerr.Wrap(engineerr.IO, "vectorstore.CreateFTSIndex", "delete failed", err)
		}
		if _, err := ins.Exec(id, content); err != nil {
			tx.Rollback()
			return engineerr.Wrap(engineerr.IO, "vectorstore.CreateFTSIndex", "insert failed", err)
		}
	}
	if err := rows.Err(); err != nil {
		tx.Rollback()
		return engineerr.Wrap(engineerr.IO, "vectorstore.CreateFTSIndex", "iterate failed", err)
	}
	if err := tx.Commit(); err != nil {
		return engineerr.Wrap(engineerr.IO, "vectorstore.CreateFTSIndex", "commit failed", err)
	}
	return nil
}

// AddDocuments bulk-inserts documents, writing each one's metadata row and
// vector row in the order given, inside one transaction.
func (s *sqliteStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return engineerr.Wrap(engineerr.IO, "vectorstore.AddDocuments", "cannot begin transaction", err)
	}

	insertDoc := squirrel.Insert("documents").
		Columns("id", "store_id", "content", "source", "doc_type", "source_hash",
			"chunk_index", "total_chunks", "indexed_at", "classification",
			"section_header", "symbol_name", "doc_summary", "crawl_depth").
		PlaceholderFormat(squirrel.Question).
		RunWith(tx)

	vecStmt, err := tx.Prepare(`INSERT INTO documents_vec (id, embedding) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return engineerr.Wrap(engineerr.IO, "vectorstore.AddDocuments", "prepare vector insert failed", err)
	}
	delVec, err := tx.Prepare(`DELETE FROM documents_vec WHERE id = ?`)
	if err != nil {
		tx.Rollback()
		return engineerr.Wrap(engineerr.IO, "vectorstore.AddDocuments", "prepare vector delete failed", err)
	}

	for _, d := range docs {
		m := d.Metadata
		var crawlDepth interface{}
		if m.CrawlDepth != nil {
			crawlDepth = *m.CrawlDepth
		}
		_, err := insertDoc.Values(d.ID, m.StoreID, d.Content, m.Source, string(m.Type), m.SourceHash,
			m.ChunkIndex, m.TotalChunks, m.IndexedAt.UTC().Format(time.RFC3339Nano), string(m.Classification),
			nullable(m.SectionHeader), nullable(m.SymbolName), nullable(m.DocSummary), crawlDepth).Exec()
		if err != nil {
			// re-indexing the same store overwrites documents by their
			// deterministic id
			if _, delErr := tx.Exec(`DELETE FROM documents WHERE id = ?`, d.ID); delErr == nil {
				_, err = insertDoc.Values(d.ID, m.StoreID, d.Content, m.Source, string(m.Type), m.SourceHash,
					m.ChunkIndex, m.TotalChunks, m.IndexedAt.UTC().Format(time.RFC3339Nano), string(m.Classification),
					nullable(m.SectionHeader), nullable(m.SymbolName), nullable(m.DocSummary), crawlDepth).Exec()
			}
			if err != nil {
				tx.Rollback()
				return engineerr.Wrap(engineerr.IO, "vectorstore.AddDocuments", "insert failed for "+d.ID, err)
			}
		}

		embBytes, err := sqlitevec.SerializeFloat32(d.Vector)
		if err != nil {
			tx.Rollback()
			return engineerr.Wrap(engineerr.Invalid, "vectorstore.AddDocuments", "serialize vector failed for "+d.ID, err)
		}
		if _, err := delVec.Exec(d.ID); err != nil {
			tx.Rollback()
			return engineerr.Wrap(engineerr.IO, "vectorstore.AddDocuments", "vector upsert-delete failed for "+d.ID, err)
		}
		if _, err := vecStmt.Exec(d.ID, embBytes); err != nil {
			tx.Rollback()
			return engineerr.Wrap(engineerr.IO, "vectorstore.AddDocuments", "vector insert failed for "+d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return engineerr.Wrap(engineerr.IO, "vectorstore.AddDocuments", "commit failed", err)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// DeleteDocuments removes documents (and their vector/FTS rows) by id.
func (s *sqliteStore) DeleteDocuments(ctx context.Context, storeID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return engineerr.Wrap(engineerr.IO, "vectorstore.DeleteDocuments", "cannot begin transaction", err)
	}
	for _, id := range ids {
		if _, err := tx.Exec(`DELETE FROM documents WHERE id = ? AND store_id = ?`, id, storeID); err != nil {
			tx.Rollback()
			return engineerr.Wrap(engineerr.IO, "vectorstore.DeleteDocuments", "delete failed for "+id, err)
		}
		_, _ = tx.Exec(`DELETE FROM documents_vec WHERE id = ?`, id)
		_, _ = tx.Exec(`DELETE FROM documents_fts WHERE id = ?`, id)
	}
	if err := tx.Commit(); err != nil {
		return engineerr.Wrap(engineerr.IO, "vectorstore.DeleteDocuments", "commit failed", err)
	}
	return nil
}

// Search runs cosine nearest-neighbor over storeID's vectors; score is
// 1 - cosineDistance. Filtering by store is done via a join on the
// documents table rather than a vec0 partition key.
func (s *sqliteStore) Search(ctx context.Context, storeID string, vector []float32, k int) ([]Hit, error) {
	embBytes, err := sqlitevec.SerializeFloat32(vector)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.Invalid, "vectorstore.Search", "serialize query vector failed", err)
	}

	// The store_id filter applies before LIMIT, so the k*8 row limit only
	// bounds the query result; the loop below keeps the first k hits.
	overFetch := k * 8
	if overFetch < k {
		overFetch = k
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.content, vec_distance_cosine(v.embedding, ?) as distance,
			d.store_id, d.source, d.doc_type, d.source_hash, d.chunk_index,
			d.total_chunks, d.indexed_at, d.classification, d.section_header,
			d.symbol_name, d.doc_summary, d.crawl_depth
		FROM documents_vec v
		JOIN documents d ON d.id = v.id
		WHERE d.store_id = ?
		ORDER BY distance
		LIMIT ?
	`, embBytes, storeID, overFetch)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.IO, "vectorstore.Search", "vector query failed", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var distance float64
		m, err := scanMetaRow(rows, &h.ID, &h.Content, &distance)
		if err != nil {
			return nil, err
		}
		h.Metadata = m
		h.Score = 1 - distance
		hits = append(hits, h)
		if len(hits) >= k {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, engineerr.Wrap(engineerr.IO, "vectorstore.Search", "iterate failed", err)
	}
	return hits, nil
}

// FullTextSearch runs an FTS5 MATCH query scoped to storeID.
// Per-store errors from this leg are swallowed by the search engine, not
// here; Store surfaces the raw error so callers can decide.
func (s *sqliteStore) FullTextSearch(ctx context.Context, storeID, query string, k int) ([]Hit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.content, bm25(documents_fts) as score,
			d.store_id, d.source, d.doc_type, d.source_hash, d.chunk_index,
			d.total_chunks, d.indexed_at, d.classification, d.section_header,
			d.symbol_name, d.doc_summary, d.crawl_depth
		FROM documents_fts f
		JOIN documents d ON d.id = f.id
		WHERE f.content MATCH ? AND d.store_id = ?
		ORDER BY score
		LIMIT ?
	`, query, storeID, k)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.IO, "vectorstore.FullTextSearch", "fts query failed", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var rawScore float64
		m, err := scanMetaRow(rows, &h.ID, &h.Content, &rawScore)
		if err != nil {
			return nil, err
		}
		h.Metadata = m
		// bm25() is negative and lower-is-better; flip sign so higher is
		// better, matching the vector leg's "higher score wins" convention.
		h.Score = -rawScore
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, engineerr.Wrap(engineerr.IO, "vectorstore.FullTextSearch", "iterate failed", err)
	}
	return hits, nil
}

// scanRow is the subset of *sql.Rows this package needs, so scanMetaRow can
// be shared between Search and FullTextSearch despite their different
// leading score column.
type scanRow interface {
	Scan(dest ...interface{}) error
}

func scanMetaRow(row scanRow, id, content *string, score *float64) (Metadata, error) {
	var m Metadata
	var storeID, source, docType, sourceHash, classification string
	var indexedAtStr string
	var sectionHeader, symbolName, docSummary sql.NullString
	var crawlDepth sql.NullInt64

	err := row.Scan(id, content, score, &storeID, &source, &docType, &sourceHash,
		&m.ChunkIndex, &m.TotalChunks, &indexedAtStr, &classification,
		&sectionHeader, &symbolName, &docSummary, &crawlDepth)
	if err != nil {
		return Metadata{}, engineerr.Wrap(engineerr.IO, "vectorstore.scan", "row scan failed", err)
	}

	m.StoreID = storeID
	m.Source = source
	m.Type = DocType(docType)
	m.SourceHash = sourceHash
	m.Classification = Classification(classification)
	m.SectionHeader = sectionHeader.String
	m.SymbolName = symbolName.String
	m.DocSummary = docSummary.String
	if indexedAt, err := time.Parse(time.RFC3339Nano, indexedAtStr); err == nil {
		m.IndexedAt = indexedAt
	}
	if crawlDepth.Valid {
		d := int(crawlDepth.Int64)
		m.CrawlDepth = &d
	}
	return m, nil
}

// DeleteStore drops every document (and derived vector/FTS rows) belonging
// to storeID.
func (s *sqliteStore) DeleteStore(ctx context.Context, storeID string) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM documents WHERE store_id = ?`, storeID)
	if err != nil {
		return engineerr.Wrap(engineerr.IO, "vectorstore.DeleteStore", "cannot list document ids", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return engineerr.Wrap(engineerr.IO, "vectorstore.DeleteStore", "scan failed", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	return s.DeleteDocuments(ctx, storeID, ids)
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
