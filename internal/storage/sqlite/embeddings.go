// Embedding index: the blob table (node_embeddings) plus the vec0 ANN
// table (node_embeddings_vec), kept in sync under one transaction.
// vec0 doesn't support INSERT OR REPLACE reliably, so writes are
// DELETE+INSERT, and the dimension is baked in at creation.
package sqlite

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/Whamp/sessionkg/internal/embedtext"
	"github.com/Whamp/sessionkg/internal/storeerr"
	"github.com/Whamp/sessionkg/internal/types"
)

// maxConcurrentEmbedBatches bounds how many batches call provider.Embed at
// once; storage writes stay serialized behind BackfillEmbeddings' writeMu
// regardless.
const maxConcurrentEmbedBatches = 4

// StoreEmbeddingWithVec upserts node's embedding into both the blob table
// and the vector table in one transaction. A vector whose length doesn't
// match the table's configured dimension aborts the transaction and
// surfaces ErrDimensionMismatch, leaving hasEmbedding(id) false.
func (s *Storage) StoreEmbeddingWithVec(ctx context.Context, nodeID string, vec []float32, model, inputText string) error {
	if len(vec) != s.vectorDim {
		return storeerr.Wrapf(storeerr.ErrDimensionMismatch, "sqlite.StoreEmbeddingWithVec: got %d want %d", len(vec), s.vectorDim)
	}
	blob := embedtext.Serialize(vec)
	normalized := embedtext.Normalize(vec)
	serialized, err := sqlite_vec.SerializeFloat32(normalized)
	if err != nil {
		return storeerr.Wrap("sqlite.StoreEmbeddingWithVec", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO node_embeddings (node_id, model_name, input_text, embedding, dim, created_at)
			 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			 ON CONFLICT(node_id) DO UPDATE SET model_name=excluded.model_name, input_text=excluded.input_text,
			   embedding=excluded.embedding, dim=excluded.dim, created_at=CURRENT_TIMESTAMP`,
			nodeID, model, inputText, blob, len(vec),
		); err != nil {
			return storeerr.Wrap("sqlite.StoreEmbeddingWithVec", err)
		}

		var rowid int64
		if err := tx.QueryRowContext(ctx, `SELECT rowid FROM nodes WHERE id = ?`, nodeID).Scan(&rowid); err != nil {
			return storeerr.Wrap("sqlite.StoreEmbeddingWithVec", err)
		}
		if err := vecSkip(func() error {
			_, err := tx.ExecContext(ctx, `DELETE FROM node_embeddings_vec WHERE rowid = ?`, rowid)
			return err
		}()); err != nil {
			return err
		}
		if err := vecSkip(func() error {
			_, err := tx.ExecContext(ctx, `INSERT INTO node_embeddings_vec(rowid, embedding) VALUES (?, ?)`, rowid, serialized)
			return err
		}()); err != nil {
			return err
		}
		return nil
	})
}

var vecWarnOnce sync.Once

// vecSkip lets a build without the vec0 module keep storing blob
// embeddings: "no such table/module" errors on the ANN side are
// swallowed after a one-time warning, everything else propagates.
func vecSkip(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "no such module") || strings.Contains(msg, "no such table: node_embeddings_vec") {
		vecWarnOnce.Do(func() {
			log.Printf("[embed] sqlite-vec not available: %v — vector index writes skipped, blob embeddings still stored", err)
		})
		return nil
	}
	return storeerr.Wrap("sqlite.vec", err)
}

// HasEmbedding reports whether id currently has a stored embedding.
func (s *Storage) HasEmbedding(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM node_embeddings WHERE node_id = ?`, id).Scan(&count)
	if err != nil {
		return false, storeerr.Wrap("sqlite.HasEmbedding", err)
	}
	return count > 0, nil
}

// GetEmbedding fetches and deserializes a node's stored vector.
func (s *Storage) GetEmbedding(ctx context.Context, id string) (*types.Embedding, error) {
	var e types.Embedding
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT node_id, model_name, input_text, embedding, dim FROM node_embeddings WHERE node_id = ?`,
		id,
	).Scan(&e.NodeID, &e.ModelName, &e.InputText, &blob, &e.Dim)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeerr.Wrap("sqlite.GetEmbedding", err)
	}
	e.Vector = embedtext.Deserialize(blob)
	return &e, nil
}

// NeedsEmbeddingRow is a candidate surfaced by FindNodesNeedingEmbedding.
type NeedsEmbeddingRow struct {
	NodeID   string
	DataFile string
}

// FindNodesNeedingEmbedding selects nodes whose current embedding has a
// different model name, is missing the current format sentinel, or has no
// embedding at all — regardless of recency. Force
// mode returns every node instead.
func (s *Storage) FindNodesNeedingEmbedding(ctx context.Context, provider types.EmbeddingProvider, force bool, limit int) ([]NeedsEmbeddingRow, error) {
	var rows *sql.Rows
	var err error
	if force {
		rows, err = s.db.QueryContext(ctx, `SELECT id, data_file FROM nodes ORDER BY timestamp ASC LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT n.id, n.data_file FROM nodes n
			LEFT JOIN node_embeddings e ON e.node_id = n.id
			WHERE e.node_id IS NULL OR e.model_name != ? OR e.input_text NOT LIKE ?
			ORDER BY n.timestamp ASC LIMIT ?`,
			provider.ModelName(), "%"+embedtext.EMBEDDING_FORMAT_VERSION, limit,
		)
	}
	if err != nil {
		return nil, storeerr.Wrap("sqlite.FindNodesNeedingEmbedding", err)
	}
	defer rows.Close()

	var out []NeedsEmbeddingRow
	for rows.Next() {
		var r NeedsEmbeddingRow
		if err := rows.Scan(&r.NodeID, &r.DataFile); err != nil {
			return nil, storeerr.Wrap("sqlite.FindNodesNeedingEmbedding", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BackfillProgress reports (processed, total) after each batch.
type BackfillProgress struct {
	Processed int
	Total     int
}

// BackfillResult summarizes a completed backfill run.
type BackfillResult struct {
	Processed     int
	FailedNodeIDs []string
}

// BackfillEmbeddings streams candidates in batches of batchSize, builds
// embedding text per node, and calls provider.Embed once per batch — with
// transient provider failures retried via exponential backoff before being
// counted against the batch. Multiple batches' Embed calls run concurrently
// (bounded by maxConcurrentEmbedBatches); the resulting storage writes and
// progress reports are serialized behind one mutex, in the order the
// batches' Embed calls finish rather than in candidate order.
// Per-node failures are tolerated without aborting the run.
func (s *Storage) BackfillEmbeddings(ctx context.Context, provider types.EmbeddingProvider, reader types.NodeReader, batchSize int, force bool, onProgress func(BackfillProgress)) (*BackfillResult, error) {
	if batchSize <= 0 {
		batchSize = 50
	}
	candidates, err := s.FindNodesNeedingEmbedding(ctx, provider, force, types.InternalMaxLimit)
	if err != nil {
		return nil, err
	}
	total := len(candidates)
	result := &BackfillResult{}
	var writeMu sync.Mutex
	processed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentEmbedBatches)

	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}
		batch := candidates[start:end]

		g.Go(func() error {
			nodes := make([]*types.Node, 0, len(batch))
			texts := make([]string, 0, len(batch))
			var readFailures []string
			for _, c := range batch {
				node, err := reader.Read(c.DataFile)
				if err != nil {
					readFailures = append(readFailures, c.NodeID)
					continue
				}
				nodes = append(nodes, node)
				texts = append(texts, embedtext.BuildEmbeddingText(node))
			}
			if len(readFailures) > 0 {
				writeMu.Lock()
				result.FailedNodeIDs = append(result.FailedNodeIDs, readFailures...)
				writeMu.Unlock()
			}

			if len(texts) == 0 {
				return nil
			}

			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = 0
			retrier := backoff.WithMaxRetries(bo, 3)

			var vectors [][]float32
			embedErr := backoff.Retry(func() error {
				v, err := provider.Embed(texts)
				if err != nil {
					return err
				}
				vectors = v
				return nil
			}, backoff.WithContext(retrier, gctx))

			writeMu.Lock()
			defer writeMu.Unlock()
			if embedErr != nil {
				log.Printf("[embed] %v", storeerr.Wrapf(storeerr.ErrProvider, "embed batch of %d failed after retries: %v", len(texts), embedErr))
				for _, n := range nodes {
					result.FailedNodeIDs = append(result.FailedNodeIDs, n.ID)
				}
				processed += end - start
				if onProgress != nil {
					onProgress(BackfillProgress{Processed: processed, Total: total})
				}
				return nil
			}

			for i, n := range nodes {
				if i >= len(vectors) {
					result.FailedNodeIDs = append(result.FailedNodeIDs, n.ID)
					continue
				}
				if err := s.StoreEmbeddingWithVec(ctx, n.ID, vectors[i], provider.ModelName(), texts[i]); err != nil {
					result.FailedNodeIDs = append(result.FailedNodeIDs, n.ID)
					continue
				}
				result.Processed++
			}
			processed += end - start
			if onProgress != nil {
				onProgress(BackfillProgress{Processed: processed, Total: total})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, storeerr.Wrap("sqlite.BackfillEmbeddings", err)
	}
	return result, nil
}
