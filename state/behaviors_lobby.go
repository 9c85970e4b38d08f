// state/behaviors_lobby.go
package state

import (
	"fmt"
	"time"

	"github.com/wfunc/triviashow/models"
)

// NotStartedBehavior is the unique initial phase. It is never entered by a
// transition and never broadcast.
type NotStartedBehavior struct {
	behaviorBase
}

func NewNotStartedBehavior() *NotStartedBehavior {
	return &NotStartedBehavior{behaviorBase{PhaseNotStarted}}
}

func (b *NotStartedBehavior) Successors() []Phase {
	return []Phase{PhaseWaitingForPlayers}
}

func (b *NotStartedBehavior) AllowedNext(ctx Context) []Phase {
	return []Phase{PhaseWaitingForPlayers}
}

func (b *NotStartedBehavior) OnEnter(ctx Context) EnterResult {
	return EnterResult{}
}

// WaitingForPlayersBehavior is the lobby. It has no deadline: the session
// leaves it only once enough terminals are connected.
type WaitingForPlayersBehavior struct {
	behaviorBase
}

func NewWaitingForPlayersBehavior() *WaitingForPlayersBehavior {
	return &WaitingForPlayersBehavior{behaviorBase{PhaseWaitingForPlayers}}
}

func (b *WaitingForPlayersBehavior) Successors() []Phase {
	return []Phase{PhaseMedia, PhaseRound}
}

func (b *WaitingForPlayersBehavior) AllowedNext(ctx Context) []Phase {
	if ctx.ConnectedPlayers() < ctx.Config().MinPlayers {
		return nil
	}
	if ctx.Scenario().IntroMediaURL != "" {
		return []Phase{PhaseMedia}
	}
	return []Phase{PhaseRound}
}

func (b *WaitingForPlayersBehavior) OnEnter(ctx Context) EnterResult {
	return EnterResult{
		Payload: models.LobbyPayload{
			ScenarioTitle: ctx.Scenario().Title,
			Players:       ctx.Scoreboard(),
			MinPlayers:    ctx.Config().MinPlayers,
		},
	}
}

// MediaBehavior shows the scenario intro media for a fixed time.
type MediaBehavior struct {
	behaviorBase
}

func NewMediaBehavior() *MediaBehavior {
	return &MediaBehavior{behaviorBase{PhaseMedia}}
}

func (b *MediaBehavior) Successors() []Phase {
	return []Phase{PhaseRound}
}

func (b *MediaBehavior) AllowedNext(ctx Context) []Phase {
	return []Phase{PhaseRound}
}

func (b *MediaBehavior) OnEnter(ctx Context) EnterResult {
	return EnterResult{
		Payload:  models.MediaPayload{URL: ctx.Scenario().IntroMediaURL},
		Deadline: ctx.Config().MediaDuration,
	}
}

// PauseBehavior freezes the game. The machine bookmarks the paused-from
// phase; resuming is driven by the lifecycle service, not by AllowedNext.
type PauseBehavior struct {
	behaviorBase
}

func NewPauseBehavior() *PauseBehavior {
	return &PauseBehavior{behaviorBase{PhasePause}}
}

func (b *PauseBehavior) Successors() []Phase {
	// The configurator grants Pause an edge back to every non-terminal
	// phase; the bookmark picks the actual one.
	return nil
}

func (b *PauseBehavior) AllowedNext(ctx Context) []Phase {
	return nil
}

func (b *PauseBehavior) OnEnter(ctx Context) EnterResult {
	return EnterResult{Payload: models.PausePayload{}}
}

// FinishBehavior is the terminal phase: final scoreboard, no way out.
type FinishBehavior struct {
	behaviorBase
}

func NewFinishBehavior() *FinishBehavior {
	return &FinishBehavior{behaviorBase{PhaseFinish}}
}

func (b *FinishBehavior) Successors() []Phase {
	return nil
}

func (b *FinishBehavior) AllowedNext(ctx Context) []Phase {
	return nil
}

func (b *FinishBehavior) OnEnter(ctx Context) EnterResult {
	board := ctx.Scoreboard()
	winner := ""
	best := 0
	for _, p := range board {
		if p.Score > best {
			best = p.Score
			winner = p.Nickname
		}
	}
	return EnterResult{
		Payload: models.FinishPayload{
			Scoreboard: board,
			Winner:     winner,
			DurationMS: time.Since(ctx.StartedAt()).Milliseconds(),
		},
	}
}

// guardConnected is the shared "at least one player at the table"
// precondition.
func guardConnected(ctx Context) error {
	if ctx.ConnectedPlayers() < 1 {
		return fmt.Errorf("%w: no connected players", ErrPreconditionFailed)
	}
	return nil
}
