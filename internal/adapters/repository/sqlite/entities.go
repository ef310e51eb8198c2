package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/trendetl/internal/adapters/repository"
	"github.com/okian/trendetl/internal/domain/model"
	"github.com/okian/trendetl/pkg/metrics"
)

// entitySpec maps one entity kind onto its table.
type entitySpec[E any] struct {
	table string
	alloc func() E
	id    func(E) string
	// columns are the indexed columns written from values, in order.
	columns []string
	values  func(E) []any
	updated func(E) time.Time
	// fields and metrics map query names onto columns.
	fields  map[string]string
	metrics map[string]string
}

var soundSpec = entitySpec[*model.Sound]{
	table:   "sounds",
	alloc:   func() *model.Sound { return &model.Sound{} },
	id:      func(s *model.Sound) string { return s.ID },
	columns: []string{"genre", "stage", "velocity_7d", "velocity_14d", "velocity_30d", "usage_count"},
	values: func(s *model.Sound) []any {
		return []any{s.Genre, string(s.Lifecycle.Stage), s.Stats.GrowthVelocity7d,
			s.Stats.GrowthVelocity14d, s.Stats.GrowthVelocity30d, s.Stats.UsageCount}
	},
	updated: func(s *model.Sound) time.Time { return s.UpdatedAt },
	fields: map[string]string{
		model.FieldSoundGenre: "genre",
		model.FieldSoundStage: "stage",
	},
	metrics: map[string]string{
		model.MetricSoundVelocity7d:  "velocity_7d",
		model.MetricSoundVelocity14d: "velocity_14d",
		model.MetricSoundVelocity30d: "velocity_30d",
		model.MetricSoundUsage:       "usage_count",
	},
}

var templateSpec = entitySpec[*model.Template]{
	table:   "templates",
	alloc:   func() *model.Template { return &model.Template{} },
	id:      func(t *model.Template) string { return t.ID },
	columns: []string{"category", "sound_id", "author_id", "velocity_score", "engagement"},
	values: func(t *model.Template) []any {
		return []any{t.Category, t.SoundID, t.AuthorID, t.TrendData.VelocityScore, t.Engagement}
	},
	updated: func(t *model.Template) time.Time { return t.UpdatedAt },
	fields: map[string]string{
		model.FieldTemplateCat:    "category",
		model.FieldTemplateSound:  "sound_id",
		model.FieldTemplateAuthor: "author_id",
	},
	metrics: map[string]string{
		model.MetricTemplateVelocity:   "velocity_score",
		model.MetricTemplateEngagement: "engagement",
	},
}

// entities implements repository.EntityStore over one table.
type entities[E any] struct {
	store *Store
	spec  entitySpec[E]
}

func (e *entities[E]) observe(op string, err *error) func() {
	op = e.spec.table + "." + op
	start := time.Now()
	return func() {
		metrics.RecordStoreLatency(op, float64(time.Since(start).Milliseconds()))
		if *err != nil {
			metrics.RecordStoreError(op)
		}
	}
}

func (e *entities[E]) decode(body string) (E, error) {
	v := e.spec.alloc()
	if err := json.Unmarshal([]byte(body), v); err != nil {
		var zero E
		return zero, fmt.Errorf("decode %s: %w", e.spec.table, err)
	}
	return v, nil
}

// Get implements repository.EntityStore.
func (e *entities[E]) Get(ctx context.Context, id string) (out E, err error) {
	defer e.observe("get", &err)()
	return e.get(ctx, e.store.db, id)
}

func (e *entities[E]) get(ctx context.Context, q queryer, id string) (E, error) {
	var body string
	err := q.QueryRowContext(ctx, "SELECT body FROM "+e.spec.table+" WHERE id = ?", id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		var zero E
		return zero, fmt.Errorf("%s %q: %w", e.spec.table, id, repository.ErrNotFound)
	}
	if err != nil {
		var zero E
		return zero, fmt.Errorf("get %s %q: %w", e.spec.table, id, err)
	}
	return e.decode(body)
}

// Put implements repository.EntityStore.
func (e *entities[E]) Put(ctx context.Context, v E) (err error) {
	defer e.observe("put", &err)()
	if e.spec.id(v) == "" {
		return fmt.Errorf("%s without id: %w", e.spec.table, repository.ErrInvalidEntity)
	}
	return e.store.withTx(ctx, func(tx *sql.Tx) error {
		return e.upsert(ctx, tx, v)
	})
}

func (e *entities[E]) upsert(ctx context.Context, tx *sql.Tx, v E) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.spec.table, err)
	}

	cols := append([]string{"id"}, e.spec.columns...)
	cols = append(cols, "body", "updated_at")
	args := append([]any{e.spec.id(v)}, e.spec.values(v)...)
	args = append(args, string(body), formatTime(e.spec.updated(v)))

	sets := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		sets = append(sets, c+" = excluded."+c)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		e.spec.table,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(sets, ", "),
	)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", e.spec.table, err)
	}
	return nil
}

// Update implements repository.EntityStore.
func (e *entities[E]) Update(ctx context.Context, id string, patch func(E) error) (out E, err error) {
	defer e.observe("update", &err)()
	err = e.store.withTx(ctx, func(tx *sql.Tx) error {
		v, err := e.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := patch(v); err != nil {
			return err
		}
		if e.spec.id(v) != id {
			return fmt.Errorf("%s %q: patch changed id: %w", e.spec.table, id, repository.ErrInvalidEntity)
		}
		out = v
		return e.upsert(ctx, tx, v)
	})
	if err != nil {
		var zero E
		return zero, err
	}
	return out, nil
}

// QueryByField implements repository.EntityStore.
func (e *entities[E]) QueryByField(ctx context.Context, field, value string, limit int) (out []E, err error) {
	defer e.observe("query_field", &err)()
	col, ok := e.spec.fields[field]
	if !ok {
		return nil, fmt.Errorf("%s field %q: %w", e.spec.table, field, repository.ErrUnknownField)
	}
	query := "SELECT body FROM " + e.spec.table + " WHERE " + col + " = ? ORDER BY id LIMIT ?"
	return e.list(ctx, query, value, sqlLimit(limit))
}

// QueryTopByMetric implements repository.EntityStore.
func (e *entities[E]) QueryTopByMetric(ctx context.Context, metric string, limit int) (out []E, err error) {
	defer e.observe("query_top", &err)()
	col, ok := e.spec.metrics[metric]
	if !ok {
		return nil, fmt.Errorf("%s metric %q: %w", e.spec.table, metric, repository.ErrUnknownField)
	}
	query := "SELECT body FROM " + e.spec.table + " ORDER BY " + col + " DESC, id ASC LIMIT ?"
	return e.list(ctx, query, sqlLimit(limit))
}

// Count implements repository.EntityStore.
func (e *entities[E]) Count(ctx context.Context) (int, error) {
	var n int
	if err := e.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+e.spec.table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", e.spec.table, err)
	}
	return n, nil
}

func (e *entities[E]) list(ctx context.Context, query string, args ...any) ([]E, error) {
	rows, err := e.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", e.spec.table, err)
	}
	defer rows.Close()

	var out []E
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", e.spec.table, err)
		}
		v, err := e.decode(body)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// sqlLimit maps "no limit" onto SQLite's -1.
func sqlLimit(limit int) int {
	if limit < 1 {
		return -1
	}
	return limit
}
