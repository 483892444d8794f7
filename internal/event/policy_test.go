package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huscsoft/event-core-go/internal/event/entity"
	"github.com/huscsoft/event-core-go/internal/schedule"
)

func sampleEvent() *entity.Event {
	return &entity.Event{
		ID:                   100,
		Name:                 "Intro Workshop",
		DayStart:             time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		StartPeriod:          1,
		EndPeriod:            2,
		Status:               entity.StatusOngoing,
		MaxUserJoined:        3,
		MaxInstructor:        1,
		MaxTeachingAssistant: 2,
	}
}

func joined(eventID, accountID int64, role string) entity.Participant {
	return entity.Participant{
		EventID:   eventID,
		AccountID: accountID,
		Role:      role,
		Status:    entity.ParticipantRegistered,
	}
}

func TestJoinRoleCaps(t *testing.T) {
	e := sampleEvent()

	// Instructor A takes the single instructor slot.
	require.NoError(t, CanJoin(e, nil, 1, entity.RoleInstructor))
	roster := []entity.Participant{joined(e.ID, 1, entity.RoleInstructor)}

	// Instructor B is refused on the role cap even though two aggregate
	// slots remain.
	err := CanJoin(e, roster, 2, entity.RoleInstructor)
	assert.ErrorIs(t, err, ErrRoleAtCapacity)

	// B can still join as teaching assistant.
	require.NoError(t, CanJoin(e, roster, 2, entity.RoleTeachingAssistant))
	roster = append(roster, joined(e.ID, 2, entity.RoleTeachingAssistant))

	require.NoError(t, CanJoin(e, roster, 3, entity.RoleTeachingAssistant))
	roster = append(roster, joined(e.ID, 3, entity.RoleTeachingAssistant))

	// Third teaching assistant hits the role cap.
	err = CanJoin(e, roster, 4, entity.RoleTeachingAssistant)
	assert.ErrorIs(t, err, ErrRoleAtCapacity)
}

func TestJoinAggregateCap(t *testing.T) {
	// A misconfigured aggregate below the role sum still binds.
	e := sampleEvent()
	e.MaxUserJoined = 1
	roster := []entity.Participant{joined(e.ID, 1, entity.RoleInstructor)}

	err := CanJoin(e, roster, 2, entity.RoleTeachingAssistant)
	assert.ErrorIs(t, err, ErrEventFull)
}

func TestJoinGuards(t *testing.T) {
	e := sampleEvent()
	roster := []entity.Participant{joined(e.ID, 1, entity.RoleTeachingAssistant)}

	assert.ErrorIs(t, CanJoin(e, roster, 1, entity.RoleTeachingAssistant), ErrAlreadyJoined)
	assert.ErrorIs(t, CanJoin(e, roster, 2, "student"), ErrBadEventRole)

	e.IsLocked = true
	assert.ErrorIs(t, CanJoin(e, roster, 2, entity.RoleTeachingAssistant), ErrEventLocked)

	e.IsLocked = false
	e.Status = entity.StatusDeleted
	assert.ErrorIs(t, CanJoin(e, roster, 2, entity.RoleTeachingAssistant), ErrEventDeleted)
}

func TestLeaveGuards(t *testing.T) {
	e := sampleEvent()
	p := joined(e.ID, 1, entity.RoleInstructor)

	assert.NoError(t, CanLeave(e, &p))
	assert.ErrorIs(t, CanLeave(e, nil), ErrNotJoined)

	attended := p
	attended.Status = entity.ParticipantAttended
	assert.ErrorIs(t, CanLeave(e, &attended), ErrAlreadyAttended)

	e.IsLocked = true
	assert.ErrorIs(t, CanLeave(e, &p), ErrEventLocked)

	e.IsLocked = false
	e.Status = entity.StatusDeleted
	assert.ErrorIs(t, CanLeave(e, &p), ErrEventDeleted)
}

func TestAttendTimeGate(t *testing.T) {
	tt := schedule.NewTimetable(time.UTC)
	e := sampleEvent()
	p := joined(e.ID, 1, entity.RoleInstructor)

	// Periods 1..2 on 2025-01-10 end at 09:00.
	end := tt.EndAt(e.DayStart, e.EndPeriod)
	require.Equal(t, time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), end)

	before := time.Date(2025, 1, 10, 8, 59, 0, 0, time.UTC)
	assert.ErrorIs(t, CanAttend(e, &p, before, end), ErrNotEnded)

	after := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	assert.NoError(t, CanAttend(e, &p, after, end))

	// Locking never blocks attendance.
	e.IsLocked = true
	assert.NoError(t, CanAttend(e, &p, after, end))

	// Marking again is admissible; the write layer keeps it a no-op.
	p.Status = entity.ParticipantAttended
	assert.NoError(t, CanAttend(e, &p, after, end))

	assert.ErrorIs(t, CanAttend(e, nil, after, end), ErrNotJoined)

	e.IsLocked = false
	e.Status = entity.StatusDeleted
	assert.ErrorIs(t, CanAttend(e, &p, after, end), ErrEventDeleted)
}
