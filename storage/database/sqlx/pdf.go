package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/gnarlyhq/gnarly/core/pdf"
)

type pdfRepository struct {
	db *sqlx.DB
}

var _ pdf.Repository = (*pdfRepository)(nil) // interface compliance check

func NewPDFRepository(db *sqlx.DB) *pdfRepository {
	return &pdfRepository{db: db}
}

type dbPDF struct {
	ID           int       `db:"id"`
	UserID       int       `db:"user_id"`
	OriginalName string    `db:"original_name"`
	StoredName   string    `db:"stored_name"`
	SizeBytes    int64     `db:"size_bytes"`
	MimeType     string    `db:"mime_type"`
	UploadedAt   time.Time `db:"uploaded_at"`
}

const pdfColumns = "id, user_id, original_name, stored_name, size_bytes, mime_type, uploaded_at"

func (p dbPDF) unmarshal() pdf.PDF {
	return pdf.PDF{
		ID:           p.ID,
		UserID:       p.UserID,
		OriginalName: p.OriginalName,
		StoredName:   p.StoredName,
		SizeBytes:    p.SizeBytes,
		MimeType:     p.MimeType,
		UploadedAt:   p.UploadedAt.UTC(),
	}
}

func unmarshalPDFs(rows []dbPDF) []pdf.PDF {
	recs := make([]pdf.PDF, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.unmarshal())
	}
	return recs
}

func (repo pdfRepository) CreatePDF(ctx context.Context, rec pdf.PDF) (pdf.PDF, error) {
	res, err := repo.db.ExecContext(ctx,
		"INSERT INTO pdfs (user_id, original_name, stored_name, size_bytes, mime_type, uploaded_at) VALUES (?, ?, ?, ?, ?, ?)",
		rec.UserID, rec.OriginalName, rec.StoredName, rec.SizeBytes, rec.MimeType, rec.UploadedAt.UTC(),
	)
	if err != nil {
		return pdf.PDF{}, errors.Wrap(err, "inserting pdf")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return pdf.PDF{}, errors.Wrap(err, "getting inserted pdf id")
	}
	return repo.GetPDFByID(ctx, int(id))
}

func (repo pdfRepository) QueryAllPDFs(ctx context.Context) ([]pdf.PDF, error) {
	var rows []dbPDF
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+pdfColumns+" FROM pdfs ORDER BY "+newestFirst.String())
	if err != nil {
		return nil, errors.Wrap(err, "querying pdfs")
	}
	return unmarshalPDFs(rows), nil
}

func (repo pdfRepository) QueryPDFsByUserID(ctx context.Context, userID int) ([]pdf.PDF, error) {
	var rows []dbPDF
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+pdfColumns+" FROM pdfs WHERE user_id = ? ORDER BY "+newestFirst.String(), userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying pdfs by user")
	}
	return unmarshalPDFs(rows), nil
}

func (repo pdfRepository) GetPDFByID(ctx context.Context, id int) (pdf.PDF, error) {
	var row dbPDF
	err := repo.db.GetContext(ctx, &row, "SELECT "+pdfColumns+" FROM pdfs WHERE id = ?", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return pdf.PDF{}, pdf.ErrNotFound
		}
		return pdf.PDF{}, errors.Wrap(err, "finding pdf by ID")
	}
	return row.unmarshal(), nil
}

func (repo pdfRepository) DeletePDFByID(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM pdfs WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting pdf")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting deleted pdfs")
	}
	if cnt == 0 {
		return pdf.ErrNotFound
	}
	return nil
}
