package store

import (
	"context"
	"database/sql"

	"github.com/TIANLI0/TissueKit/model"
)

type ImageRepo struct{ DB *sql.DB }

func NewImageRepo(db *sql.DB) *ImageRepo { return &ImageRepo{DB: db} }

// Insert stores an analyzed upload and fills in its id.
func (r *ImageRepo) Insert(ctx context.Context, img *model.ImageRecord) error {
	const q = `
insert into images (
  case_id, filename, content_type, height, width, data, uploaded_at, uploaded_by,
  compressed_analysis_results
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
returning id`
	return r.DB.QueryRowContext(ctx, q,
		img.CaseID, img.Filename, img.ContentType, img.Height, img.Width, img.Data,
		img.UploadedAt, img.UploadedBy, string(img.Bundle),
	).Scan(&img.ID)
}

const imageColumns = `id, case_id, filename, content_type, height, width, data, uploaded_at, uploaded_by, compressed_analysis_results`

func scanImage(scan func(dest ...any) error) (*model.ImageRecord, error) {
	var (
		img    model.ImageRecord
		bundle string
	)
	if err := scan(&img.ID, &img.CaseID, &img.Filename, &img.ContentType, &img.Height, &img.Width,
		&img.Data, &img.UploadedAt, &img.UploadedBy, &bundle); err != nil {
		return nil, err
	}
	img.Bundle = model.CompressedBundle(bundle)
	return &img, nil
}

// Get returns ErrNotFound when the image does not exist.
func (r *ImageRepo) Get(ctx context.Context, id int64) (*model.ImageRecord, error) {
	return scanImage(r.DB.QueryRowContext(ctx,
		`select `+imageColumns+` from images where id = $1`, id).Scan)
}

// ListByCase returns every image of a case in upload order.
func (r *ImageRepo) ListByCase(ctx context.Context, caseID int64) ([]model.ImageRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		`select `+imageColumns+` from images where case_id = $1 order by id`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := make([]model.ImageRecord, 0)
	for rows.Next() {
		img, err := scanImage(rows.Scan)
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}
	return images, rows.Err()
}
