package outbox

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct{ DB *pgxpool.Pool }

var _ Store = (*PGStore)(nil)

func (s *PGStore) Add(ctx context.Context, destination string, payload []byte) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO outbox(id, destination, payload, status, attempts)
		VALUES ($1, $2, $3, $4, 0)`,
		uuid.NewString(), destination, payload, StatusPending)
	return err
}

func (s *PGStore) Pending(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, destination, payload, status, attempts, created_at
		FROM outbox WHERE status = $1
		ORDER BY created_at LIMIT $2`, StatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Destination, &e.Payload, &e.Status, &e.Attempts, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PGStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.DB.Exec(ctx, `UPDATE outbox SET status = $2 WHERE id = $1`, id, StatusSent)
	return err
}

func (s *PGStore) MarkFailed(ctx context.Context, id string) error {
	_, err := s.DB.Exec(ctx, `UPDATE outbox SET attempts = attempts + 1 WHERE id = $1`, id)
	return err
}
