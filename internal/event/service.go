package event

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/huscsoft/event-core-go/internal/event/entity"
	"github.com/huscsoft/event-core-go/internal/event/repo"
	"github.com/huscsoft/event-core-go/internal/schedule"
)

// Validation rejections for event create/update payloads.
var (
	ErrBadName     = errors.New("event name is required")
	ErrBadPeriod   = errors.New("periods must be between 1 and 12")
	ErrPeriodOrder = errors.New("end period must not precede start period")
	ErrBadCaps     = errors.New("max_user_joined must equal max_instructor plus max_teaching_assistant")
	ErrBadStatus   = errors.New("status must be ongoing or finished")
)

// ErrNotFound is re-exported so handlers need not import the repo.
var ErrNotFound = repo.ErrNotFound

// CreateInput carries the admin-supplied event fields.
type CreateInput struct {
	Name                 string    `json:"name"`
	DayStart             time.Time `json:"day_start"`
	StartPeriod          int       `json:"start_period"`
	EndPeriod            int       `json:"end_period"`
	NumberOfStudent      int       `json:"number_of_student"`
	SchoolName           *string   `json:"school_name"`
	MaxInstructor        int       `json:"max_instructor"`
	MaxTeachingAssistant int       `json:"max_teaching_assistant"`
}

// Detail is an event together with its resolved wall-clock window and
// roster occupancy.
type Detail struct {
	entity.Event
	StartsAt          time.Time `json:"starts_at"`
	EndsAt            time.Time `json:"ends_at"`
	Joined            int       `json:"joined"`
	JoinedInstructors int       `json:"joined_instructors"`
	JoinedAssistants  int       `json:"joined_assistants"`
}

// Service implements event lifecycle, membership and attendance on top
// of the repos. Membership writes run in a transaction holding the
// event row lock, so capacity checks and the insert are atomic.
type Service struct {
	db        *sqlx.DB
	events    *repo.EventRepo
	parts     *repo.ParticipationRepo
	timetable schedule.Timetable
	now       func() time.Time
	logger    *zap.SugaredLogger
}

func NewService(db *sqlx.DB, events *repo.EventRepo, parts *repo.ParticipationRepo, tt schedule.Timetable, logger *zap.SugaredLogger) *Service {
	return &Service{
		db:        db,
		events:    events,
		parts:     parts,
		timetable: tt,
		now:       time.Now,
		logger:    logger,
	}
}

func validate(e *entity.Event) error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrBadName
	}
	if !schedule.ValidPeriod(e.StartPeriod) || !schedule.ValidPeriod(e.EndPeriod) {
		return ErrBadPeriod
	}
	if e.EndPeriod < e.StartPeriod {
		return ErrPeriodOrder
	}
	if e.MaxInstructor < 0 || e.MaxTeachingAssistant < 0 ||
		e.MaxUserJoined != e.MaxInstructor+e.MaxTeachingAssistant {
		return ErrBadCaps
	}
	if e.Status != entity.StatusOngoing && e.Status != entity.StatusFinished {
		return ErrBadStatus
	}
	return nil
}

// Create validates and inserts a new event. The aggregate cap is
// derived from the role caps.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Event, error) {
	e := &entity.Event{
		Name:                 strings.TrimSpace(in.Name),
		DayStart:             in.DayStart,
		StartPeriod:          in.StartPeriod,
		EndPeriod:            in.EndPeriod,
		NumberOfStudent:      in.NumberOfStudent,
		Status:               entity.StatusOngoing,
		SchoolName:           in.SchoolName,
		MaxUserJoined:        in.MaxInstructor + in.MaxTeachingAssistant,
		MaxInstructor:        in.MaxInstructor,
		MaxTeachingAssistant: in.MaxTeachingAssistant,
	}
	if err := validate(e); err != nil {
		return nil, err
	}
	if _, err := s.events.Create(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Infow("event created", "event_id", e.ID, "name", e.Name)
	return e, nil
}

// Get returns one event with its resolved window and occupancy.
// Deleted events surface as not found.
func (s *Service) Get(ctx context.Context, id int64) (*Detail, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.IsDeleted() {
		return nil, ErrNotFound
	}
	roster, err := s.parts.ListByEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(e, roster), nil
}

func (s *Service) detail(e *entity.Event, roster []entity.Participant) *Detail {
	d := &Detail{Event: *e, Joined: len(roster)}
	d.StartsAt, d.EndsAt = s.timetable.EventWindow(e.DayStart, e.StartPeriod, e.EndPeriod)
	for _, p := range roster {
		switch p.Role {
		case entity.RoleInstructor:
			d.JoinedInstructors++
		case entity.RoleTeachingAssistant:
			d.JoinedAssistants++
		}
	}
	return d
}

// List returns non-deleted events with their resolved windows.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Detail, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	events, err := s.events.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*Detail, 0, len(events))
	for _, e := range events {
		roster, err := s.parts.ListByEvent(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, s.detail(e, roster))
	}
	return out, nil
}

// Update validates and persists admin edits. Deleted events cannot be
// edited.
func (s *Service) Update(ctx context.Context, id int64, in CreateInput, status string) (*entity.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.IsDeleted() {
		return nil, ErrNotFound
	}
	e.Name = strings.TrimSpace(in.Name)
	e.DayStart = in.DayStart
	e.StartPeriod = in.StartPeriod
	e.EndPeriod = in.EndPeriod
	e.NumberOfStudent = in.NumberOfStudent
	e.SchoolName = in.SchoolName
	e.MaxInstructor = in.MaxInstructor
	e.MaxTeachingAssistant = in.MaxTeachingAssistant
	e.MaxUserJoined = in.MaxInstructor + in.MaxTeachingAssistant
	if status != "" {
		e.Status = status
	}
	if err := validate(e); err != nil {
		return nil, err
	}
	if err := s.events.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete soft-deletes an event. Registrations stay on record.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.events.SoftDelete(ctx, id)
}

// SetLocked locks or unlocks membership changes on an event.
func (s *Service) SetLocked(ctx context.Context, id int64, locked bool) error {
	return s.events.SetLocked(ctx, id, locked)
}

// Roster returns the full membership of an event.
func (s *Service) Roster(ctx context.Context, id int64) ([]entity.Participant, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.IsDeleted() {
		return nil, ErrNotFound
	}
	return s.parts.ListByEvent(ctx, id)
}

// Join registers an account for an event under a role. The capacity
// decision and the insert share one transaction with the event row
// locked, so two concurrent joins for the last slot cannot both pass.
func (s *Service) Join(ctx context.Context, eventID, accountID int64, role string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	e, err := s.events.GetForUpdate(ctx, tx, eventID)
	if err != nil {
		return err
	}
	roster, err := s.parts.RosterTx(ctx, tx, eventID)
	if err != nil {
		return err
	}
	if err := CanJoin(e, roster, accountID, role); err != nil {
		return err
	}
	if err := s.parts.InsertTx(ctx, tx, eventID, accountID, role); err != nil {
		return err
	}
	return tx.Commit()
}

// Leave withdraws an account's registration.
func (s *Service) Leave(ctx context.Context, eventID, accountID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	e, err := s.events.GetForUpdate(ctx, tx, eventID)
	if err != nil {
		return err
	}
	roster, err := s.parts.RosterTx(ctx, tx, eventID)
	if err != nil {
		return err
	}
	var reg *entity.Participant
	for i := range roster {
		if roster[i].AccountID == accountID {
			reg = &roster[i]
			break
		}
	}
	if err := CanLeave(e, reg); err != nil {
		return err
	}
	if err := s.parts.DeleteTx(ctx, tx, eventID, accountID); err != nil {
		return err
	}
	return tx.Commit()
}

// Attend marks the caller's attendance once the event's last period has
// ended. Locked events still accept attendance, and repeating the call
// after success changes nothing. Attend serializes on the same event
// row lock as Join and Leave, so a withdrawal can never interleave
// between the guard check and the status write.
func (s *Service) Attend(ctx context.Context, eventID, accountID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	e, err := s.events.GetForUpdate(ctx, tx, eventID)
	if err != nil {
		return err
	}
	roster, err := s.parts.RosterTx(ctx, tx, eventID)
	if err != nil {
		return err
	}
	var reg *entity.Participant
	for i := range roster {
		if roster[i].AccountID == accountID {
			reg = &roster[i]
			break
		}
	}
	end := s.timetable.EndAt(e.DayStart, e.EndPeriod)
	if err := CanAttend(e, reg, s.now(), end); err != nil {
		return err
	}
	if reg.Attended() {
		return tx.Commit()
	}
	if err := s.parts.MarkAttendedTx(ctx, tx, eventID, accountID); err != nil {
		return err
	}
	return tx.Commit()
}
