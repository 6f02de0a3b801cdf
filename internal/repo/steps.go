package repo

import (
	"context"
	"database/sql"

	"github.com/Atlasdesignstudio/templo-atelier/internal/domain"
)

const stepCols = `id,project_id,state,step_type,agent,title,body,options_json,chosen_option,status,phase,sort_order,created_at,resolved_at`

func scanStep(row interface{ Scan(...any) error }) (domain.WorkflowStep, error) {
	var (
		s        domain.WorkflowStep
		chosen   sql.NullString
		resolved sql.NullString
	)
	err := row.Scan(&s.ID, &s.ProjectID, &s.State, &s.StepType, &s.Agent, &s.Title, &s.Body,
		&s.OptionsJSON, &chosen, &s.Status, &s.Phase, &s.SortOrder, &s.CreatedAt, &resolved)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if chosen.Valid {
		s.ChosenOption = &chosen.String
	}
	if resolved.Valid {
		s.ResolvedAt = &resolved.String
	}
	return s, nil
}

func (r Repo) InsertStepTx(ctx context.Context, tx *sql.Tx, s domain.WorkflowStep) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO workflow_steps(project_id,state,step_type,agent,title,body,
options_json,chosen_option,status,phase,sort_order,created_at,resolved_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ProjectID, s.State, s.StepType, s.Agent, s.Title, s.Body,
		s.OptionsJSON, nullableStringPtr(s.ChosenOption), s.Status, s.Phase, s.SortOrder, s.CreatedAt,
		nullableStringPtr(s.ResolvedAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetStep(ctx context.Context, id int64) (domain.WorkflowStep, error) {
	return scanStep(r.DB.QueryRowContext(ctx, `SELECT `+stepCols+` FROM workflow_steps WHERE id=?`, id))
}

func (r Repo) GetStepTx(ctx context.Context, tx *sql.Tx, id int64) (domain.WorkflowStep, error) {
	return scanStep(tx.QueryRowContext(ctx, `SELECT `+stepCols+` FROM workflow_steps WHERE id=?`, id))
}

func (r Repo) ListSteps(ctx context.Context, projectID int64) ([]domain.WorkflowStep, error) {
	return r.listSteps(ctx, r.DB.QueryContext, projectID)
}

func (r Repo) ListStepsTx(ctx context.Context, tx *sql.Tx, projectID int64) ([]domain.WorkflowStep, error) {
	return r.listSteps(ctx, tx.QueryContext, projectID)
}

type queryFn func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

func (r Repo) listSteps(ctx context.Context, query queryFn, projectID int64) ([]domain.WorkflowStep, error) {
	rows, err := query(ctx, `SELECT `+stepCols+` FROM workflow_steps WHERE project_id=? ORDER BY sort_order, id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WorkflowStep
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// CountStepsTx reports how many steps a project has, any status.
func (r Repo) CountStepsTx(ctx context.Context, tx *sql.Tx, projectID int64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM workflow_steps WHERE project_id=?`, projectID).Scan(&n)
	return n, err
}

// MaxSortOrderTx returns the highest sort_order for a project, 0 when none.
func (r Repo) MaxSortOrderTx(ctx context.Context, tx *sql.Tx, projectID int64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order),0) FROM workflow_steps WHERE project_id=?`, projectID).Scan(&n)
	return n, err
}

// ResolveStepTx marks a step resolved. The step row is otherwise immutable.
func (r Repo) ResolveStepTx(ctx context.Context, tx *sql.Tx, id int64, chosenOption, resolvedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE workflow_steps SET status='resolved', chosen_option=?, resolved_at=?
WHERE id=? AND status='active'`, nullable(chosenOption), resolvedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
