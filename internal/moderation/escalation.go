package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/xaenox/brawl-guard/internal/directory"
)

// RestrictionWindow is how long a repeat offender stays muted.
const RestrictionWindow = 45 * time.Minute

// State is a user's position in the warning escalation. It only moves forward.
type State int

const (
	StateClean State = iota
	StateWarned
	StateRestricted
)

// StateFor maps a warning count onto its escalation state.
func StateFor(warnings int) State {
	switch {
	case warnings <= 0:
		return StateClean
	case warnings == 1:
		return StateWarned
	default:
		return StateRestricted
	}
}

func (s State) String() string {
	switch s {
	case StateWarned:
		return "warned"
	case StateRestricted:
		return "restricted"
	default:
		return "clean"
	}
}

// Offense is the outcome of recording one detected insult.
type Offense struct {
	Warnings int
	State    State
	// Until is the end of the restriction window; zero unless State is StateRestricted.
	Until   time.Time
	Effects Effects
}

// Escalator turns detected insults into warnings and timed restrictions.
// The warning counter is never reset here.
type Escalator struct {
	dir *directory.Directory
	now func() time.Time
}

func NewEscalator(dir *directory.Directory, now func() time.Time) *Escalator {
	if now == nil {
		now = time.Now
	}
	return &Escalator{dir: dir, now: now}
}

// RecordOffense increments the user's warning count and decides the reaction.
// The count is committed before any transport action is attempted, so a failed
// restriction still leaves the user warned, and the "restricted" notice is sent anyway.
func (e *Escalator) RecordOffense(ctx context.Context, chatID int64, user User) (Offense, error) {
	count, err := e.dir.IncrementWarning(ctx, user.ID)
	if err != nil {
		return Offense{}, fmt.Errorf("increment warning for user %d: %w", user.ID, err)
	}

	o := Offense{Warnings: count, State: StateFor(count)}
	switch o.State {
	case StateWarned:
		o.Effects.Add(SendHTML(chatID, firstWarningText(user)))
	case StateRestricted:
		o.Until = e.now().UTC().Add(RestrictionWindow)
		o.Effects.Add(
			Restrict(chatID, user.ID, o.Until),
			SendHTML(chatID, restrictedText(user)),
		)
	}

	offenseCount.WithLabelValues(o.State.String()).Inc()
	return o, nil
}
