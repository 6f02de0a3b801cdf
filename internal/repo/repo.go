package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Atlasdesignstudio/templo-atelier/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const projectCols = `id,name,category,COALESCE(client,'') AS client,status,stage,review_status,
COALESCE(client_brief,'') AS client_brief,budget_cap,invoiced_total,internal_cost,projected_revenue,
health_score,is_lead,COALESCE(executive_summary,'') AS executive_summary,
COALESCE(strategic_tensions,'') AS strategic_tensions,COALESCE(design_principles,'') AS design_principles,created_at`

func scanProject(row interface{ Scan(...any) error }) (domain.Project, error) {
	var p domain.Project
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Client, &p.Status, &p.Stage, &p.ReviewStatus,
		&p.ClientBrief, &p.BudgetCap, &p.InvoicedTotal, &p.InternalCost, &p.ProjectedRevenue,
		&p.HealthScore, &p.IsLead, &p.ExecutiveSummary, &p.StrategicTensions, &p.DesignPrinciples, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO projects(name,category,client,status,stage,review_status,client_brief,
budget_cap,invoiced_total,internal_cost,projected_revenue,health_score,is_lead,
executive_summary,strategic_tensions,design_principles,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.Name, p.Category, nullable(p.Client), p.Status, p.Stage, p.ReviewStatus, nullable(p.ClientBrief),
		p.BudgetCap, p.InvoicedTotal, p.InternalCost, p.ProjectedRevenue, p.HealthScore, p.IsLead,
		nullable(p.ExecutiveSummary), nullable(p.StrategicTensions), nullable(p.DesignPrinciples), p.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetProject(ctx context.Context, id int64) (domain.Project, error) {
	return scanProject(r.DB.QueryRowContext(ctx, `SELECT `+projectCols+` FROM projects WHERE id=?`, id))
}

func (r Repo) GetProjectTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Project, error) {
	return scanProject(tx.QueryRowContext(ctx, `SELECT `+projectCols+` FROM projects WHERE id=?`, id))
}

func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectCols+` FROM projects ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// ProjectPatch holds optional field updates; nil means leave unchanged.
type ProjectPatch struct {
	ClientBrief       *string
	ExecutiveSummary  *string
	StrategicTensions *string
	DesignPrinciples  *string
	BudgetCap         *float64
	Stage             *string
	Status            *string
	ReviewStatus      *string
}

func (r Repo) UpdateProject(ctx context.Context, id int64, patch ProjectPatch) error {
	var (
		fields []string
		args   []any
	)
	set := func(col string, v any) {
		fields = append(fields, col+"=?")
		args = append(args, v)
	}
	if patch.ClientBrief != nil {
		set("client_brief", nullable(*patch.ClientBrief))
	}
	if patch.ExecutiveSummary != nil {
		set("executive_summary", nullable(*patch.ExecutiveSummary))
	}
	if patch.StrategicTensions != nil {
		set("strategic_tensions", nullable(*patch.StrategicTensions))
	}
	if patch.DesignPrinciples != nil {
		set("design_principles", nullable(*patch.DesignPrinciples))
	}
	if patch.BudgetCap != nil {
		set("budget_cap", *patch.BudgetCap)
	}
	if patch.Stage != nil {
		set("stage", *patch.Stage)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.ReviewStatus != nil {
		set("review_status", *patch.ReviewStatus)
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE projects SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateProjectTx(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	_, err := tx.ExecContext(ctx, `UPDATE projects SET name=?, category=?, client=?, status=?, stage=?, review_status=?,
client_brief=?, budget_cap=?, invoiced_total=?, internal_cost=?, projected_revenue=?, health_score=?, is_lead=?,
executive_summary=?, strategic_tensions=?, design_principles=? WHERE id=?`,
		p.Name, p.Category, nullable(p.Client), p.Status, p.Stage, p.ReviewStatus,
		nullable(p.ClientBrief), p.BudgetCap, p.InvoicedTotal, p.InternalCost, p.ProjectedRevenue, p.HealthScore, p.IsLead,
		nullable(p.ExecutiveSummary), nullable(p.StrategicTensions), nullable(p.DesignPrinciples), p.ID)
	return err
}

// DeleteProject removes a project and, via foreign keys, all dependent rows.
func (r Repo) DeleteProject(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func nullableInt64Ptr(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
