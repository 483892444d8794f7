package event

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/huscsoft/event-core-go/internal/event/entity"
)

func TestEventValidation(t *testing.T) {
	base := func() *entity.Event {
		e := sampleEvent()
		return e
	}

	cases := []struct {
		name   string
		mutate func(*entity.Event)
		want   error
	}{
		{"valid", func(e *entity.Event) {}, nil},
		{"blank name", func(e *entity.Event) { e.Name = "  " }, ErrBadName},
		{"period zero", func(e *entity.Event) { e.StartPeriod = 0 }, ErrBadPeriod},
		{"period thirteen", func(e *entity.Event) { e.EndPeriod = 13 }, ErrBadPeriod},
		{"end before start", func(e *entity.Event) { e.StartPeriod = 5; e.EndPeriod = 3 }, ErrPeriodOrder},
		{"negative role cap", func(e *entity.Event) { e.MaxInstructor = -1; e.MaxUserJoined = 1 }, ErrBadCaps},
		{"aggregate mismatch", func(e *entity.Event) { e.MaxUserJoined = 5 }, ErrBadCaps},
		{"deleted status", func(e *entity.Event) { e.Status = entity.StatusDeleted }, ErrBadStatus},
		{"unknown status", func(e *entity.Event) { e.Status = "archived" }, ErrBadStatus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := base()
			tc.mutate(e)
			err := validate(e)
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
}
