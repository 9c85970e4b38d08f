// state/behaviors_intermission.go
package state

import (
	"github.com/wfunc/triviashow/models"
)

// StatsBehavior shows the scoreboard between rounds and decides where the
// show goes next: an intermission, the next round, or the finale.
type StatsBehavior struct {
	behaviorBase
}

func NewStatsBehavior() *StatsBehavior {
	return &StatsBehavior{behaviorBase{PhaseStats}}
}

func (b *StatsBehavior) Successors() []Phase {
	return []Phase{PhaseVoting, PhaseShop, PhaseRound, PhaseFinish}
}

func (b *StatsBehavior) AllowedNext(ctx Context) []Phase {
	scn := ctx.Scenario()
	cursor := ctx.Cursor()
	if !scn.RoundsRemain(cursor) {
		return []Phase{PhaseFinish}
	}
	round := scn.CurrentRound(cursor)
	if round != nil {
		if round.VotingAfter {
			return []Phase{PhaseVoting}
		}
		if round.ShopAfter {
			return []Phase{PhaseShop}
		}
	}
	return []Phase{PhaseRound}
}

func (b *StatsBehavior) OnEnter(ctx Context) EnterResult {
	scn := ctx.Scenario()
	cursor := ctx.Cursor()
	return EnterResult{
		Payload: models.StatsPayload{
			RoundNumber: cursor.RoundIndex + 1,
			Scoreboard:  ctx.Scoreboard(),
			FinalRound:  !scn.RoundsRemain(cursor),
		},
		Deadline: ctx.Config().StatsShowTime,
	}
}

func (b *StatsBehavior) OnExit(ctx Context) {
	scn := ctx.Scenario()
	cursor := ctx.Cursor()
	if !scn.RoundsRemain(cursor) {
		return
	}
	round := scn.CurrentRound(cursor)
	if round != nil {
		// A voting intermission needs to know whether a shop window
		// follows it once the cursor has moved on.
		ctx.Scratch().PendingShop = round.VotingAfter && round.ShopAfter
	}
	ctx.AdvanceRound()
}

// VotingBehavior lets players pick an audience favorite; the favorite gets
// a flat bonus when the window closes.
type VotingBehavior struct {
	behaviorBase
}

const favoriteBonus = 25

func NewVotingBehavior() *VotingBehavior {
	return &VotingBehavior{behaviorBase{PhaseVoting}}
}

func (b *VotingBehavior) Successors() []Phase {
	return []Phase{PhaseShop, PhaseRound}
}

func (b *VotingBehavior) AllowedNext(ctx Context) []Phase {
	if ctx.Scratch().PendingShop {
		return []Phase{PhaseShop}
	}
	return []Phase{PhaseRound}
}

func (b *VotingBehavior) OnEnter(ctx Context) EnterResult {
	choices := make([]string, 0, ctx.TotalPlayers())
	for _, p := range ctx.Scoreboard() {
		choices = append(choices, p.Nickname)
	}
	return EnterResult{
		Payload: models.VotingPayload{
			Prompt:  "audience favorite",
			Choices: choices,
		},
		Deadline: ctx.Config().VotingDuration,
	}
}

func (b *VotingBehavior) OnExit(ctx Context) {
	scratch := ctx.Scratch()
	tally := make(map[string]int)
	for _, choice := range scratch.Votes {
		tally[choice]++
	}
	winner, best := "", 0
	for nickname, votes := range tally {
		if votes > best {
			winner, best = nickname, votes
		}
	}
	if winner != "" {
		if playerID := ctx.PlayerIDByNickname(winner); playerID != "" {
			ctx.AwardPoints(playerID, favoriteBonus)
		}
	}
	scratch.LastVote = &models.VotingResultPayload{Winner: winner, Tally: tally}
	scratch.Votes = make(map[string]string)
	scratch.PendingShop = false
}

// ShopBehavior opens a purchase window for round modifiers.
type ShopBehavior struct {
	behaviorBase
}

func NewShopBehavior() *ShopBehavior {
	return &ShopBehavior{behaviorBase{PhaseShop}}
}

func (b *ShopBehavior) Successors() []Phase {
	return []Phase{PhaseModifiers, PhaseRound}
}

func (b *ShopBehavior) AllowedNext(ctx Context) []Phase {
	if len(ctx.Scratch().Purchases) > 0 {
		return []Phase{PhaseModifiers}
	}
	return []Phase{PhaseRound}
}

func (b *ShopBehavior) OnEnter(ctx Context) EnterResult {
	items := ctx.Scenario().ShopItems
	infos := make([]models.ShopItemInfo, 0, len(items))
	for _, item := range items {
		infos = append(infos, models.ShopItemInfo{ID: item.ID, Name: item.Name, Price: item.Price})
	}
	return EnterResult{
		Payload:  models.ShopPayload{Items: infos},
		Deadline: ctx.Config().DefaultShopDuration,
	}
}

// ModifiersBehavior shows which purchased modifiers apply to the next
// round, then clears them.
type ModifiersBehavior struct {
	behaviorBase
}

func NewModifiersBehavior() *ModifiersBehavior {
	return &ModifiersBehavior{behaviorBase{PhaseModifiers}}
}

func (b *ModifiersBehavior) Successors() []Phase {
	return []Phase{PhaseRound}
}

func (b *ModifiersBehavior) AllowedNext(ctx Context) []Phase {
	return []Phase{PhaseRound}
}

func (b *ModifiersBehavior) OnEnter(ctx Context) EnterResult {
	applied := make(map[string][]string)
	for playerID, items := range ctx.Scratch().Purchases {
		applied[ctx.Nickname(playerID)] = items
	}
	return EnterResult{
		Payload:  models.ModifiersPayload{Applied: applied},
		Deadline: ctx.Config().ModifiersShowTime,
	}
}

func (b *ModifiersBehavior) OnExit(ctx Context) {
	ctx.Scratch().Purchases = make(map[string][]string)
}
