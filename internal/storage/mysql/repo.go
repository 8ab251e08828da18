package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"travel_booking/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// valJSON marshals v, storing nil slices and maps as empty JSON values.
func valJSON(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertProduct(ctx context.Context, p domain.Product, position int) error {
	slots, err := valJSON(p.Slots, "[]")
	if err != nil {
		return fmt.Errorf("encode slots: %w", err)
	}
	opts, err := valJSON(p.Options, "[]")
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	attrs, err := valJSON(p.Attributes, "{}")
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	amen, err := valJSON(p.Amenities, "[]")
	if err != nil {
		return fmt.Errorf("encode amenities: %w", err)
	}
	_, err = r.db.ExecContext(ctx, upsertProductSQL,
		p.ID,
		position,
		string(p.Kind),
		p.Name,
		valStr(p.Description),
		valStr(p.Location),
		p.Currency,
		p.BaseUnitPrice,
		p.Rating,
		string(p.Schedule),
		p.FixedNights,
		p.Capacity.Min,
		p.Capacity.Max,
		p.DefaultPartySize,
		slots,
		opts,
		attrs,
		amen,
		valStr(p.Image),
	)
	return err
}

func (r *Repo) LogMiss(ctx context.Context, id string, status int, reason string) error {
	if len(reason) > 512 {
		reason = reason[:512]
	}
	_, err := r.db.ExecContext(ctx, insertMissSQL, id, status, reason)
	return err
}

func (r *Repo) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, getProductSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return p, err
}

// ListProducts returns every stored product in catalog order.
func (r *Repo) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, listProductsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (domain.Product, error) {
	var p domain.Product
	var kind, schedule string
	var desc, loc, image sql.NullString
	var slots, opts, attrs, amen []byte

	if err := s.Scan(
		&p.ID, &kind, &p.Name, &desc, &loc, &p.Currency, &p.BaseUnitPrice, &p.Rating,
		&schedule, &p.FixedNights, &p.Capacity.Min, &p.Capacity.Max, &p.DefaultPartySize,
		&slots, &opts, &attrs, &amen, &image,
	); err != nil {
		return domain.Product{}, err
	}
	p.Kind = domain.Kind(kind)
	p.Schedule = domain.ScheduleModel(schedule)
	p.Description = desc.String
	p.Location = loc.String
	p.Image = image.String

	for _, col := range []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"slots", slots, &p.Slots},
		{"options", opts, &p.Options},
		{"attributes", attrs, &p.Attributes},
		{"amenities", amen, &p.Amenities},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return domain.Product{}, fmt.Errorf("product %s: decode %s: %w", p.ID, col.name, err)
		}
	}
	return p, nil
}
