package repo

import (
	"context"
	"database/sql"

	"github.com/Atlasdesignstudio/templo-atelier/internal/domain"
)

func scanAgentLog(row interface{ Scan(...any) error }) (domain.AgentLog, error) {
	var (
		l   domain.AgentLog
		pid sql.NullInt64
	)
	err := row.Scan(&l.ID, &pid, &l.Agent, &l.Message, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return l, ErrNotFound
	}
	if err != nil {
		return l, err
	}
	if pid.Valid {
		l.ProjectID = &pid.Int64
	}
	return l, nil
}

func (r Repo) ListAgentLogs(ctx context.Context, projectID int64, limit int) ([]domain.AgentLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,agent,message,created_at FROM agent_logs
WHERE project_id=? ORDER BY id DESC LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AgentLog
	for rows.Next() {
		l, err := scanAgentLog(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

func (r Repo) ListRecentAgentLogs(ctx context.Context, limit int) ([]domain.AgentLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,agent,message,created_at FROM agent_logs
ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AgentLog
	for rows.Next() {
		l, err := scanAgentLog(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}
