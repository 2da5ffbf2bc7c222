package kb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type PGIndexConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	BatchSize  int
}

// PGIndex keeps the document vectors in Postgres with pgvector, ordered by
// L2 distance. It implements the same contract as FlatIndex and exists for
// deployments where the corpus outgrows memory.
type PGIndex struct {
	config PGIndexConfig
	pool   *pgxpool.Pool
}

func NewPGIndexWithConfig(ctx context.Context, config PGIndexConfig) (*PGIndex, error) {
	if config.TableName == "" {
		config.TableName = "documents"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	idx := &PGIndex{
		config: config,
		pool:   pool,
	}

	if err := idx.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return idx, nil
}

func (i *PGIndex) initialize(ctx context.Context) error {
	_, err := i.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			embedding vector(%d)
		)`, i.config.TableName, i.config.VectorDim)

	_, err = i.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_l2_ops)
		WITH (lists = 100)`,
		i.config.TableName, i.config.TableName)

	_, err = i.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

// Build replaces the table contents with the given ids and vectors in one
// transaction, so a failed rebuild leaves the previous index intact.
func (i *PGIndex) Build(ctx context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("pg index: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}

	tx, err := i.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE %s", i.config.TableName)); err != nil {
		return fmt.Errorf("failed to clear table: %v", err)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, embedding)
		VALUES ($1, $2)`,
		i.config.TableName)

	for n := range ids {
		if _, err := tx.Exec(ctx, stmt, ids[n], pgvector.NewVector(vectors[n])); err != nil {
			return fmt.Errorf("failed to insert vector: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

// Search returns up to k ids ordered by ascending L2 distance.
func (i *PGIndex) Search(ctx context.Context, query []float32, k int) ([]int64, []float32, error) {
	stmt := fmt.Sprintf(`
		SELECT id, embedding <-> $1 AS distance
		FROM %s
		ORDER BY distance
		LIMIT $2`,
		i.config.TableName)

	rows, err := i.pool.Query(ctx, stmt, pgvector.NewVector(query), k)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query vectors: %v", err)
	}
	defer rows.Close()

	var ids []int64
	var dists []float32
	for rows.Next() {
		var id int64
		var dist float64
		if err := rows.Scan(&id, &dist); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %v", err)
		}
		ids = append(ids, id)
		dists = append(dists, float32(dist))
	}

	return ids, dists, rows.Err()
}

func (i *PGIndex) Close() {
	if i.pool != nil {
		i.pool.Close()
	}
}
