// state/behaviors_round.go
package state

import (
	"fmt"
	"time"

	"github.com/wfunc/triviashow/models"
	"github.com/wfunc/triviashow/scenario"
)

// RoundBehavior announces the upcoming round, then hands over to the
// auction (auction rounds) or straight to the first question.
type RoundBehavior struct {
	behaviorBase
}

func NewRoundBehavior() *RoundBehavior {
	return &RoundBehavior{behaviorBase{PhaseRound}}
}

func (b *RoundBehavior) Successors() []Phase {
	return []Phase{PhaseAuction, PhaseQuestion}
}

func (b *RoundBehavior) AllowedNext(ctx Context) []Phase {
	round := ctx.Scenario().CurrentRound(ctx.Cursor())
	if round != nil && round.Kind == scenario.RoundAuction {
		return []Phase{PhaseAuction}
	}
	return []Phase{PhaseQuestion}
}

func (b *RoundBehavior) Validate(ctx Context) error {
	return guardConnected(ctx)
}

func (b *RoundBehavior) OnEnter(ctx Context) EnterResult {
	scn := ctx.Scenario()
	cursor := ctx.Cursor()
	round := scn.CurrentRound(cursor)
	return EnterResult{
		Payload: models.RoundPayload{
			RoundNumber: cursor.RoundIndex + 1,
			RoundCount:  len(scn.Rounds),
			Title:       round.Title,
			Kind:        string(round.Kind),
		},
		Deadline: ctx.Config().DefaultRoundQuestionDelay,
	}
}

// AuctionBehavior sells the right to answer first. The window closes on
// its deadline; the highest bid is escrowed from the winner win-or-lose,
// and a correct answer from the winner scores double.
type AuctionBehavior struct {
	behaviorBase
}

// AuctionMinBid is the lowest accepted auction bid. Advertised in the
// auction entry payload and enforced when a bid is recorded.
const AuctionMinBid = 10

func NewAuctionBehavior() *AuctionBehavior {
	return &AuctionBehavior{behaviorBase{PhaseAuction}}
}

func (b *AuctionBehavior) Successors() []Phase {
	return []Phase{PhaseQuestion}
}

func (b *AuctionBehavior) AllowedNext(ctx Context) []Phase {
	return []Phase{PhaseQuestion}
}

func (b *AuctionBehavior) OnEnter(ctx Context) EnterResult {
	return EnterResult{
		Payload: models.AuctionPayload{
			RoundNumber: ctx.Cursor().RoundIndex + 1,
			MinBid:      AuctionMinBid,
			Prize:       "first answer, double points",
		},
		Deadline: ctx.Config().DefaultRoundQuestionDelay,
	}
}

func (b *AuctionBehavior) OnExit(ctx Context) {
	scratch := ctx.Scratch()
	winner, bid := "", 0
	for playerID, amount := range scratch.Bids {
		if amount > bid {
			winner, bid = playerID, amount
		}
	}
	scratch.AuctionWinner = winner
	scratch.AuctionBid = bid
	winnerNick := ""
	if winner != "" {
		// The bid is spent regardless of the answer's outcome.
		ctx.AwardPoints(winner, -bid)
		winnerNick = ctx.Nickname(winner)
	}
	scratch.LastAuction = &models.AuctionResultPayload{Winner: winnerNick, Bid: bid}
}

// QuestionBehavior displays the current question. It closes on its time
// limit or as soon as every connected player has answered; scoring is
// settled in OnExit so the reveal phase only reads the result.
type QuestionBehavior struct {
	behaviorBase
}

func NewQuestionBehavior() *QuestionBehavior {
	return &QuestionBehavior{behaviorBase{PhaseQuestion}}
}

func (b *QuestionBehavior) Successors() []Phase {
	return []Phase{PhaseReveal}
}

func (b *QuestionBehavior) AllowedNext(ctx Context) []Phase {
	return []Phase{PhaseReveal}
}

func (b *QuestionBehavior) Validate(ctx Context) error {
	if !ctx.Scenario().QuestionsRemain(ctx.Cursor()) {
		return fmt.Errorf("%w: question queue exhausted", ErrPreconditionFailed)
	}
	return nil
}

func (b *QuestionBehavior) OnEnter(ctx Context) EnterResult {
	scn := ctx.Scenario()
	cursor := ctx.Cursor()
	q := scn.CurrentQuestion(cursor)
	scratch := ctx.Scratch()
	scratch.ResetQuestion()

	deadline := ctx.Config().DefaultRoundQuestionDelay
	if q.TimeLimitMS > 0 {
		deadline = time.Duration(q.TimeLimitMS) * time.Millisecond
	}

	priority := ""
	if scratch.AuctionWinner != "" {
		priority = ctx.Nickname(scratch.AuctionWinner)
	}

	return EnterResult{
		Payload: models.QuestionPayload{
			RoundNumber:    cursor.RoundIndex + 1,
			QuestionNumber: cursor.QuestionIndex + 1,
			Text:           q.Text,
			Options:        q.Options,
			Points:         q.Points,
			TimeLimitMS:    deadline.Milliseconds(),
			PriorityPlayer: priority,
		},
		Deadline: deadline,
	}
}

func (b *QuestionBehavior) OnExit(ctx Context) {
	scn := ctx.Scenario()
	q := scn.CurrentQuestion(ctx.Cursor())
	scratch := ctx.Scratch()

	awarded := make(map[string]int)
	correct := 0
	speedWinner := ""
	var speedAt time.Time

	for playerID, answer := range scratch.Answers {
		if answer.Option != q.Answer {
			continue
		}
		correct++
		points := q.Points
		if playerID == scratch.AuctionWinner {
			points *= 2
		}
		awarded[ctx.Nickname(playerID)] = points
		ctx.AwardPoints(playerID, points)
		if speedWinner == "" || answer.At.Before(speedAt) {
			speedWinner, speedAt = playerID, answer.At
		}
	}

	if speedWinner != "" {
		bonus := q.Points / 2
		awarded[ctx.Nickname(speedWinner)] += bonus
		ctx.AwardPoints(speedWinner, bonus)
	}

	speedNick := ""
	if speedWinner != "" {
		speedNick = ctx.Nickname(speedWinner)
	}
	scratch.LastReveal = &models.RevealPayload{
		Answer:        q.Answer,
		AnswerText:    q.Options[q.Answer],
		SpeedWinner:   speedNick,
		CorrectCount:  correct,
		AwardedPoints: awarded,
	}
	scratch.ResetAuction()
}

// RevealBehavior shows the correct answer and the speed winner, then loops
// back to the next question or closes the round with a stats screen.
type RevealBehavior struct {
	behaviorBase
}

func NewRevealBehavior() *RevealBehavior {
	return &RevealBehavior{behaviorBase{PhaseReveal}}
}

func (b *RevealBehavior) Successors() []Phase {
	return []Phase{PhaseQuestion, PhaseStats}
}

func (b *RevealBehavior) AllowedNext(ctx Context) []Phase {
	if ctx.Scenario().QuestionsRemain(ctx.Cursor().NextQuestion()) {
		return []Phase{PhaseQuestion}
	}
	return []Phase{PhaseStats}
}

func (b *RevealBehavior) OnEnter(ctx Context) EnterResult {
	payload := ctx.Scratch().LastReveal
	if payload == nil {
		payload = &models.RevealPayload{}
	}
	return EnterResult{
		Payload:  *payload,
		Deadline: ctx.Config().SpeedWinnerShowTime,
	}
}

func (b *RevealBehavior) OnExit(ctx Context) {
	ctx.Scratch().LastReveal = nil
	ctx.AdvanceQuestion()
}
