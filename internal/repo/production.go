package repo

import (
	"context"
	"database/sql"

	"github.com/Atlasdesignstudio/templo-atelier/internal/domain"
)

func scanDeliverable(row interface{ Scan(...any) error }) (domain.Deliverable, error) {
	var (
		d   domain.Deliverable
		due sql.NullString
	)
	err := row.Scan(&d.ID, &d.ProjectID, &d.Title, &d.Status, &d.Owner, &due)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	if due.Valid {
		d.DueDate = &due.String
	}
	return d, nil
}

func (r Repo) InsertDeliverableTx(ctx context.Context, tx *sql.Tx, d domain.Deliverable) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO deliverables(project_id,title,status,owner,due_date) VALUES (?,?,?,?,?)`,
		d.ProjectID, d.Title, d.Status, d.Owner, nullableStringPtr(d.DueDate))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) ListDeliverables(ctx context.Context, projectID int64) ([]domain.Deliverable, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,title,status,owner,due_date FROM deliverables WHERE project_id=? ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Deliverable
	for rows.Next() {
		d, err := scanDeliverable(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func scanTask(row interface{ Scan(...any) error }) (domain.Task, error) {
	var (
		t   domain.Task
		pid sql.NullInt64
	)
	err := row.Scan(&t.ID, &pid, &t.Title, &t.Priority, &t.Status, &t.DueDate, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if pid.Valid {
		t.ProjectID = &pid.Int64
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, t domain.Task) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO tasks(project_id,title,priority,status,due_date,created_at) VALUES (?,?,?,?,?,?)`,
		nullableInt64Ptr(t.ProjectID), t.Title, t.Priority, t.Status, t.DueDate, t.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	return scanTask(r.DB.QueryRowContext(ctx, `SELECT id,project_id,title,priority,status,due_date,created_at FROM tasks WHERE id=?`, id))
}

// TaskFilter narrows ListTasks; zero value lists everything.
type TaskFilter struct {
	ProjectID *int64
	Status    string
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilter) ([]domain.Task, error) {
	q := `SELECT id,project_id,title,priority,status,due_date,created_at FROM tasks WHERE 1=1`
	var args []any
	if f.ProjectID != nil {
		q += ` AND project_id=?`
		args = append(args, *f.ProjectID)
	}
	if f.Status != "" {
		q += ` AND status=?`
		args = append(args, f.Status)
	}
	q += ` ORDER BY due_date, id`
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) UpdateTaskStatus(ctx context.Context, id int64, status string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE tasks SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteTask(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRisk(row interface{ Scan(...any) error }) (domain.Risk, error) {
	var k domain.Risk
	err := row.Scan(&k.ID, &k.ProjectID, &k.Description, &k.Severity, &k.Category, &k.Status)
	if err == sql.ErrNoRows {
		return k, ErrNotFound
	}
	return k, err
}

func (r Repo) InsertRiskTx(ctx context.Context, tx *sql.Tx, k domain.Risk) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO risks(project_id,description,severity,category,status) VALUES (?,?,?,?,?)`,
		k.ProjectID, k.Description, k.Severity, k.Category, k.Status)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) ListRisks(ctx context.Context, projectID int64) ([]domain.Risk, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,description,severity,category,status FROM risks WHERE project_id=? ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Risk
	for rows.Next() {
		k, err := scanRisk(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, k)
	}
	return res, rows.Err()
}

func (r Repo) ListActiveRisks(ctx context.Context) ([]domain.Risk, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,description,severity,category,status FROM risks WHERE status='Active' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Risk
	for rows.Next() {
		k, err := scanRisk(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, k)
	}
	return res, rows.Err()
}

func scanInvoice(row interface{ Scan(...any) error }) (domain.Invoice, error) {
	var (
		v   domain.Invoice
		due sql.NullString
	)
	err := row.Scan(&v.ID, &v.ProjectID, &v.Amount, &v.Status, &due)
	if err == sql.ErrNoRows {
		return v, ErrNotFound
	}
	if err != nil {
		return v, err
	}
	if due.Valid {
		v.DueDate = &due.String
	}
	return v, nil
}

func (r Repo) InsertInvoiceTx(ctx context.Context, tx *sql.Tx, v domain.Invoice) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO invoices(project_id,amount,status,due_date) VALUES (?,?,?,?)`,
		v.ProjectID, v.Amount, v.Status, nullableStringPtr(v.DueDate))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) ListInvoices(ctx context.Context, projectID int64) ([]domain.Invoice, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,amount,status,due_date FROM invoices WHERE project_id=? ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Invoice
	for rows.Next() {
		v, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

func (r Repo) ListAllInvoices(ctx context.Context) ([]domain.Invoice, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,amount,status,due_date FROM invoices ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Invoice
	for rows.Next() {
		v, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, rows.Err()
}
