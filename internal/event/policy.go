package event

import (
	"errors"
	"time"

	"github.com/huscsoft/event-core-go/internal/event/entity"
)

// Admission and transition rejections. Each one maps to a distinct
// client-facing message so callers know which rule fired.
var (
	ErrEventDeleted    = errors.New("event has been deleted")
	ErrEventLocked     = errors.New("event is locked")
	ErrAlreadyJoined   = errors.New("already joined this event")
	ErrRoleAtCapacity  = errors.New("no slots left for this role")
	ErrEventFull       = errors.New("event is full")
	ErrNotJoined       = errors.New("not registered for this event")
	ErrAlreadyAttended = errors.New("attendance already recorded, cannot leave")
	ErrNotEnded        = errors.New("event has not ended yet")
	ErrBadEventRole    = errors.New("role must be instructor or teaching_assistant")
)

// ValidEventRole reports whether role is one of the event-scoped roles.
func ValidEventRole(role string) bool {
	return role == entity.RoleInstructor || role == entity.RoleTeachingAssistant
}

// CanJoin decides whether an account may register for an event under
// the given role. The roster must be the event's full current
// membership. Both the per-role cap and the aggregate cap have to hold.
func CanJoin(e *entity.Event, roster []entity.Participant, accountID int64, role string) error {
	if !ValidEventRole(role) {
		return ErrBadEventRole
	}
	if e.IsDeleted() {
		return ErrEventDeleted
	}
	if e.IsLocked {
		return ErrEventLocked
	}
	var inRole int
	for _, p := range roster {
		if p.AccountID == accountID {
			return ErrAlreadyJoined
		}
		if p.Role == role {
			inRole++
		}
	}
	if inRole >= e.RoleCap(role) {
		return ErrRoleAtCapacity
	}
	if len(roster) >= e.MaxUserJoined {
		return ErrEventFull
	}
	return nil
}

// CanLeave decides whether a participant may withdraw. p is the
// caller's registration row, nil when there is none. A recorded
// attendance is permanent, so leaving after it is refused.
func CanLeave(e *entity.Event, p *entity.Participant) error {
	if e.IsDeleted() {
		return ErrEventDeleted
	}
	if e.IsLocked {
		return ErrEventLocked
	}
	if p == nil {
		return ErrNotJoined
	}
	if p.Attended() {
		return ErrAlreadyAttended
	}
	return nil
}

// CanAttend decides whether attendance may be marked at time now for
// an event ending at end. Locking does not block attendance, and
// re-marking an already-attended row is allowed (the write is a no-op).
func CanAttend(e *entity.Event, p *entity.Participant, now, end time.Time) error {
	if e.IsDeleted() {
		return ErrEventDeleted
	}
	if p == nil {
		return ErrNotJoined
	}
	if now.Before(end) {
		return ErrNotEnded
	}
	return nil
}
