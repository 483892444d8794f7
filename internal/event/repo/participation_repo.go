package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/huscsoft/event-core-go/internal/event/entity"
)

// ParticipationRepo provides data access for the event_participants
// table. The mutating methods take a transaction: membership writes
// always run under the event row lock taken by EventRepo.GetForUpdate.
type ParticipationRepo struct {
	db *sqlx.DB
}

func NewParticipationRepo(db *sqlx.DB) *ParticipationRepo { return &ParticipationRepo{db: db} }

const participantColumns = `event_id, account_id, role, status, joined_at`

// ListByEvent returns the full roster of an event.
func (r *ParticipationRepo) ListByEvent(ctx context.Context, eventID int64) ([]entity.Participant, error) {
	const q = `SELECT ` + participantColumns + ` FROM event_participants
		WHERE event_id=$1 ORDER BY joined_at, account_id`
	out := []entity.Participant{}
	if err := r.db.SelectContext(ctx, &out, q, eventID); err != nil {
		return nil, err
	}
	return out, nil
}

// RosterTx reloads the roster inside tx, after the event lock is held,
// so capacity decisions see the committed membership.
func (r *ParticipationRepo) RosterTx(ctx context.Context, tx *sqlx.Tx, eventID int64) ([]entity.Participant, error) {
	const q = `SELECT ` + participantColumns + ` FROM event_participants WHERE event_id=$1`
	out := []entity.Participant{}
	if err := tx.SelectContext(ctx, &out, q, eventID); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertTx adds a registration row inside tx. The composite primary key
// backstops the already-joined guard.
func (r *ParticipationRepo) InsertTx(ctx context.Context, tx *sqlx.Tx, eventID, accountID int64, role string) error {
	const q = `INSERT INTO event_participants (event_id, account_id, role, status)
		VALUES ($1, $2, $3, $4)`
	_, err := tx.ExecContext(ctx, q, eventID, accountID, role, entity.ParticipantRegistered)
	return err
}

// DeleteTx removes a registration row inside tx.
func (r *ParticipationRepo) DeleteTx(ctx context.Context, tx *sqlx.Tx, eventID, accountID int64) error {
	const q = `DELETE FROM event_participants WHERE event_id=$1 AND account_id=$2`
	_, err := tx.ExecContext(ctx, q, eventID, accountID)
	return err
}

// MarkAttendedTx flips a registration to attended inside tx. A zero
// row count means the membership vanished and surfaces as an error
// instead of a silent success.
func (r *ParticipationRepo) MarkAttendedTx(ctx context.Context, tx *sqlx.Tx, eventID, accountID int64) error {
	const q = `UPDATE event_participants SET status=$3
		WHERE event_id=$1 AND account_id=$2`
	res, err := tx.ExecContext(ctx, q, eventID, accountID, entity.ParticipantAttended)
	if err != nil {
		return err
	}
	return requireRow(res)
}
