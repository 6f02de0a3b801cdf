package agentlog

import (
	"context"
	"database/sql"
	"time"
)

// Writer appends activity lines produced by studio agents. Entries written
// inside a workflow transaction commit or roll back with it.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, projectID int64, agent, message string) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	var pid any
	if projectID != 0 {
		pid = projectID
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO agent_logs(project_id,agent,message,created_at) VALUES (?,?,?,?)`,
		pid, agent, message, ts)
	return err
}

// AppendGlobal writes a studio-wide entry outside any transaction.
func (w Writer) AppendGlobal(ctx context.Context, agent, message string) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	_, err := w.DB.ExecContext(ctx, `INSERT INTO agent_logs(project_id,agent,message,created_at) VALUES (NULL,?,?,?)`,
		agent, message, ts)
	return err
}
