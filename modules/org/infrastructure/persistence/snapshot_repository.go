package persistence

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/org-hierarchy/modules/org/domain/hierarchy"
	"github.com/iota-uz/org-hierarchy/pkg/composables"
)

const DefaultSnapshotsTable = "org_hierarchy_snapshots"

var (
	ErrInvalidTable     = errors.New("invalid snapshot table name")
	ErrSnapshotNotFound = errors.New("snapshot not found")

	tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)
)

var snapshotColumns = []string{"run_id", "position", "id", "name", "kind", "parent_id", "captured_at"}

// SnapshotRepository stores flattened hierarchies in Postgres, one row per node,
// keyed by run id and row position. All methods require a transaction in ctx.
type SnapshotRepository struct {
	table string
	now   func() time.Time
}

func NewSnapshotRepository(table string) (*SnapshotRepository, error) {
	if table == "" {
		table = DefaultSnapshotsTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, errors.Wrapf(ErrInvalidTable, "%q", table)
	}
	return &SnapshotRepository{table: table, now: time.Now}, nil
}

func (r *SnapshotRepository) ident() string {
	return pgx.Identifier{r.table}.Sanitize()
}

func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
  run_id      uuid        NOT NULL,
  position    integer     NOT NULL,
  id          text        NOT NULL,
  name        text        NOT NULL DEFAULT '',
  kind        text        NOT NULL,
  parent_id   text        NULL,
  captured_at timestamptz NOT NULL,
  PRIMARY KEY (run_id, position)
)`, r.ident())
	if _, err := tx.Exec(ctx, q); err != nil {
		return errors.Wrap(err, "create snapshot table")
	}
	return nil
}

// Save copies every row of rel under runID and returns the number of rows written.
func (r *SnapshotRepository) Save(ctx context.Context, runID uuid.UUID, rel *hierarchy.Relation) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	if rel == nil || rel.Len() == 0 {
		return 0, nil
	}

	capturedAt := r.now().UTC()
	rows := make([][]any, 0, rel.Len())
	for i, n := range rel.Rows {
		var parent *string
		if n.ParentID != "" {
			p := n.ParentID
			parent = &p
		}
		rows = append(rows, []any{runID, i, n.ID, n.Name, string(n.Kind), parent, capturedAt})
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{r.table}, snapshotColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, errors.Wrapf(err, "copy snapshot %s", runID)
	}
	return copied, nil
}

// Load returns the snapshot stored under runID in its original row order.
func (r *SnapshotRepository) Load(ctx context.Context, runID uuid.UUID) (*hierarchy.Relation, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
SELECT id, name, kind, COALESCE(parent_id, '')
FROM %s
WHERE run_id = $1
ORDER BY position ASC`, r.ident())
	rows, err := tx.Query(ctx, q, runID)
	if err != nil {
		return nil, errors.Wrap(err, "query snapshot")
	}
	defer rows.Close()

	rel := &hierarchy.Relation{}
	for rows.Next() {
		var n hierarchy.Node
		var kind string
		if err := rows.Scan(&n.ID, &n.Name, &kind, &n.ParentID); err != nil {
			return nil, err
		}
		n.Kind = hierarchy.Kind(kind)
		rel.Rows = append(rel.Rows, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(rel.Rows) == 0 {
		return nil, errors.Wrapf(ErrSnapshotNotFound, "%s", runID)
	}
	return rel, nil
}

// Delete removes a snapshot and reports how many rows were dropped.
func (r *SnapshotRepository) Delete(ctx context.Context, runID uuid.UUID) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE run_id = $1`, r.ident()), runID)
	if err != nil {
		return 0, errors.Wrap(err, "delete snapshot")
	}
	return tag.RowsAffected(), nil
}
