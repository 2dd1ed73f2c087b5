package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cassation-api/internal/domain"
	"cassation-api/internal/repository"
)

const createDecisionsTable = `
CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	title TEXT NULL,
	formation TEXT NULL,
	content TEXT NULL
);
`

const createFormationIndex = `CREATE INDEX IF NOT EXISTS idx_decisions_formation ON decisions (formation)`

// existence checks are split so a batch never exceeds the bound variable limit
const idChunkSize = 500

type DecisionRepository struct {
	db *sql.DB
}

func NewDecisionRepository(db *sql.DB) repository.DecisionRepository {
	return &DecisionRepository{db: db}
}

func (r *DecisionRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createDecisionsTable); err != nil {
		return fmt.Errorf("create decisions table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createFormationIndex); err != nil {
		return fmt.Errorf("create formation index: %w", err)
	}
	return nil
}

func (r *DecisionRepository) InsertNew(ctx context.Context, decisions []domain.Decision) (int, error) {
	if len(decisions) == 0 {
		return 0, nil
	}

	inserted := 0
	err := withTx(ctx, r.db, func(ctx context.Context, tx dbtx) error {
		ids := make([]string, len(decisions))
		for i := range decisions {
			ids[i] = decisions[i].ID
		}
		existing, err := existingIDs(ctx, tx, ids)
		if err != nil {
			return err
		}

		for _, d := range decisions {
			if _, ok := existing[d.ID]; ok {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO decisions (id, title, formation, content)
VALUES (?, ?, ?, ?)`,
				d.ID,
				d.Title,
				d.Formation,
				d.Content,
			); err != nil {
				return classify(fmt.Errorf("insert decision %s: %w", d.ID, err))
			}
			// later duplicates within the same batch are skipped as well
			existing[d.ID] = struct{}{}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *DecisionRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	return existingIDs(ctx, r.db, ids)
}

func existingIDs(ctx context.Context, q dbtx, ids []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})
	for start := 0; start < len(ids); start += idChunkSize {
		end := min(start+idChunkSize, len(ids))
		chunk := ids[start:end]

		placeholders := make([]string, len(chunk))
		args := make([]any, len(chunk))
		for i, id := range chunk {
			placeholders[i] = "?"
			args[i] = id
		}

		query := fmt.Sprintf(`SELECT id FROM decisions WHERE id IN (%s)`, strings.Join(placeholders, ","))
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, classify(fmt.Errorf("query existing decision ids: %w", err))
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan decision id: %w", err)
			}
			found[id] = struct{}{}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterate decision ids: %w", err)
		}
	}
	return found, nil
}

func (r *DecisionRepository) Get(ctx context.Context, id string) (*domain.Decision, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, formation, content
FROM decisions
WHERE id = ?`,
		id,
	)

	d, err := scanDecision(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrDecisionNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *DecisionRepository) List(ctx context.Context, filter repository.DecisionFilter, page domain.PageRequest) ([]domain.DecisionSummary, int, error) {
	where := ""
	var args []any
	if filter.Formation != "" {
		where = "WHERE formation = ?"
		args = append(args, filter.Formation)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decisions `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count decisions: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, formation
FROM decisions
`+where+`
ORDER BY id ASC
LIMIT ? OFFSET ?`,
		append(args, page.PerPage, page.Offset())...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	summaries := []domain.DecisionSummary{}
	for rows.Next() {
		var (
			s         domain.DecisionSummary
			title     sql.NullString
			formation sql.NullString
		)
		if err := rows.Scan(&s.ID, &title, &formation); err != nil {
			return nil, 0, fmt.Errorf("scan decision summary: %w", err)
		}
		s.Title = title.String
		s.Formation = formation.String
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate decisions: %w", err)
	}

	return summaries, total, nil
}

func (r *DecisionRepository) Search(ctx context.Context, query string, page domain.PageRequest) ([]domain.Decision, int, error) {
	pattern := "%" + escapeLike(query) + "%"
	const where = `WHERE title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\'`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decisions `+where, pattern, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count search matches: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, formation, content
FROM decisions
`+where+`
ORDER BY id ASC
LIMIT ? OFFSET ?`,
		pattern,
		pattern,
		page.PerPage,
		page.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search decisions: %w", err)
	}
	defer rows.Close()

	decisions := []domain.Decision{}
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, 0, err
		}
		decisions = append(decisions, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate search matches: %w", err)
	}

	return decisions, total, nil
}

func (r *DecisionRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decisions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count decisions: %w", err)
	}
	return n, nil
}

func scanDecision(scanner interface {
	Scan(dest ...any) error
}) (*domain.Decision, error) {
	var (
		d         domain.Decision
		title     sql.NullString
		formation sql.NullString
		content   sql.NullString
	)
	if err := scanner.Scan(&d.ID, &title, &formation, &content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan decision: %w", err)
	}
	d.Title = title.String
	d.Formation = formation.String
	d.Content = content.String
	return &d, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
