package repo

import (
	"context"
	"database/sql"

	"github.com/Atlasdesignstudio/templo-atelier/internal/domain"
)

const documentCols = `id,project_id,name,category,doc_type,COALESCE(content,'') AS content,version,updated_at`

func scanDocument(row interface{ Scan(...any) error }) (domain.Document, error) {
	var d domain.Document
	err := row.Scan(&d.ID, &d.ProjectID, &d.Name, &d.Category, &d.DocType, &d.Content, &d.Version, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	return d, err
}

func (r Repo) InsertDocumentTx(ctx context.Context, tx *sql.Tx, d domain.Document) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO documents(project_id,name,category,doc_type,content,version,updated_at)
VALUES (?,?,?,?,?,?,?)`, d.ProjectID, d.Name, d.Category, d.DocType, nullable(d.Content), d.Version, d.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetDocument(ctx context.Context, id int64) (domain.Document, error) {
	return scanDocument(r.DB.QueryRowContext(ctx, `SELECT `+documentCols+` FROM documents WHERE id=?`, id))
}

func (r Repo) ListDocuments(ctx context.Context, projectID int64) ([]domain.Document, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+documentCols+` FROM documents WHERE project_id=? ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// UpdateDocumentContent replaces content and bumps the version counter.
func (r Repo) UpdateDocumentContent(ctx context.Context, id int64, content, updatedAt string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE documents SET content=?, version=version+1, updated_at=? WHERE id=?`,
		nullable(content), updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
