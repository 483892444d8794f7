package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/huscsoft/event-core-go/internal/event/entity"
	"github.com/huscsoft/event-core-go/pkg/utilities"
)

var ErrNotFound = errors.New("event not found")

// EventRepo provides data access for the events table using sqlx.
type EventRepo struct {
	db *sqlx.DB
}

func NewEventRepo(db *sqlx.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `event_id, name, day_start, start_period, end_period, number_of_student,
	status, school_name, max_user_joined, max_instructor, max_teaching_assistant,
	is_locked, created_at, updated_at`

// Create inserts a new event row. The ID is generated app-side.
func (r *EventRepo) Create(ctx context.Context, e *entity.Event) (int64, error) {
	if e.ID == 0 {
		e.ID = utilities.NewID()
	}
	const q = `INSERT INTO events
		(event_id, name, day_start, start_period, end_period, number_of_student,
		 status, school_name, max_user_joined, max_instructor, max_teaching_assistant, is_locked)
		VALUES (:event_id, :name, :day_start, :start_period, :end_period, :number_of_student,
		 :status, :school_name, :max_user_joined, :max_instructor, :max_teaching_assistant, :is_locked)`
	if _, err := r.db.NamedExecContext(ctx, q, e); err != nil {
		return 0, err
	}
	return e.ID, nil
}

// GetByID returns an event by primary key, deleted or not.
func (r *EventRepo) GetByID(ctx context.Context, id int64) (*entity.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE event_id=$1`
	var e entity.Event
	if err := r.db.GetContext(ctx, &e, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// GetForUpdate loads an event inside tx with a row lock, serializing
// concurrent membership writes against the same event.
func (r *EventRepo) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*entity.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE event_id=$1 FOR UPDATE`
	var e entity.Event
	if err := tx.GetContext(ctx, &e, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// List returns non-deleted events, newest day first, paginated.
func (r *EventRepo) List(ctx context.Context, limit, offset int) ([]*entity.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events
		WHERE status <> $1 ORDER BY day_start DESC, event_id LIMIT $2 OFFSET $3`
	out := []*entity.Event{}
	if err := r.db.SelectContext(ctx, &out, q, entity.StatusDeleted, limit, offset); err != nil {
		return nil, err
	}
	return out, nil
}

// Update persists the mutable columns of an event.
func (r *EventRepo) Update(ctx context.Context, e *entity.Event) error {
	const q = `UPDATE events SET name=:name, day_start=:day_start, start_period=:start_period,
		end_period=:end_period, number_of_student=:number_of_student, status=:status,
		school_name=:school_name, max_user_joined=:max_user_joined, max_instructor=:max_instructor,
		max_teaching_assistant=:max_teaching_assistant, updated_at=NOW()
		WHERE event_id=:event_id AND status <> '` + entity.StatusDeleted + `'`
	res, err := r.db.NamedExecContext(ctx, q, e)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetLocked flips the lock flag.
func (r *EventRepo) SetLocked(ctx context.Context, id int64, locked bool) error {
	const q = `UPDATE events SET is_locked=$2, updated_at=NOW()
		WHERE event_id=$1 AND status <> $3`
	res, err := r.db.ExecContext(ctx, q, id, locked, entity.StatusDeleted)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SoftDelete marks the event deleted. Participant rows are kept for
// history.
func (r *EventRepo) SoftDelete(ctx context.Context, id int64) error {
	const q = `UPDATE events SET status=$2, updated_at=NOW()
		WHERE event_id=$1 AND status <> $2`
	res, err := r.db.ExecContext(ctx, q, id, entity.StatusDeleted)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
