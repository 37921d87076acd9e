package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/TIANLI0/TissueKit/model"
)

type CaseRepo struct{ DB *sql.DB }

func NewCaseRepo(db *sql.DB) *CaseRepo { return &CaseRepo{DB: db} }

// FindByName loads a case with the ids of its images in upload order.
func (r *CaseRepo) FindByName(ctx context.Context, name string) (*model.Case, error) {
	var c model.Case
	err := r.DB.QueryRowContext(ctx,
		`select id, case_name, created_at from cases where case_name = $1`, name).
		Scan(&c.ID, &c.CaseName, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, `select id from images where case_id = $1 order by id`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c.ImageIDs = make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		c.ImageIDs = append(c.ImageIDs, id)
	}
	return &c, rows.Err()
}

// Create inserts a new case; ok is false when the name is already used.
func (r *CaseRepo) Create(ctx context.Context, name string) (c *model.Case, ok bool, err error) {
	c = &model.Case{CaseName: name, ImageIDs: []int64{}}
	err = r.DB.QueryRowContext(ctx, `
insert into cases (case_name) values ($1)
on conflict (case_name) do nothing
returning id, created_at`, name).Scan(&c.ID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// GetOrCreate returns the case named name, creating it when missing.
func (r *CaseRepo) GetOrCreate(ctx context.Context, name string) (*model.Case, error) {
	c, created, err := r.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	if created {
		return c, nil
	}
	return r.FindByName(ctx, name)
}
