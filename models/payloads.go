// models/payloads.go
package models

// Payloads pushed to player terminals on phase entry and on in-phase events.
// Question payloads never carry the answer index; it travels only in the
// reveal payload after the question closes.

type PlayerInfo struct {
	Nickname  string `json:"nickname"`
	RackID    string `json:"rack_id"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
}

type LobbyPayload struct {
	ScenarioTitle string       `json:"scenario_title"`
	Players       []PlayerInfo `json:"players"`
	MinPlayers    int          `json:"min_players"`
}

type MediaPayload struct {
	URL string `json:"url"`
}

type RoundPayload struct {
	RoundNumber int    `json:"round_number"`
	RoundCount  int    `json:"round_count"`
	Title       string `json:"title"`
	Kind        string `json:"kind"`
}

type QuestionPayload struct {
	RoundNumber    int      `json:"round_number"`
	QuestionNumber int      `json:"question_number"`
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	Points         int      `json:"points"`
	TimeLimitMS    int64    `json:"time_limit_ms"`
	// Nickname of the auction winner who answers first, if any.
	PriorityPlayer string `json:"priority_player,omitempty"`
}

type RevealPayload struct {
	Answer        int            `json:"answer"`
	AnswerText    string         `json:"answer_text"`
	SpeedWinner   string         `json:"speed_winner,omitempty"`
	CorrectCount  int            `json:"correct_count"`
	AwardedPoints map[string]int `json:"awarded_points"`
}

type AuctionPayload struct {
	RoundNumber int    `json:"round_number"`
	MinBid      int    `json:"min_bid"`
	Prize       string `json:"prize"`
}

type AuctionResultPayload struct {
	Winner string `json:"winner,omitempty"`
	Bid    int    `json:"bid"`
}

type StatsPayload struct {
	RoundNumber int          `json:"round_number"`
	Scoreboard  []PlayerInfo `json:"scoreboard"`
	FinalRound  bool         `json:"final_round"`
}

type VotingPayload struct {
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices"`
}

type VotingResultPayload struct {
	Winner string         `json:"winner"`
	Tally  map[string]int `json:"tally"`
}

type ShopPayload struct {
	Items []ShopItemInfo `json:"items"`
}

type ShopItemInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"`
}

type ModifiersPayload struct {
	// nickname -> purchased item names applied for the next round
	Applied map[string][]string `json:"applied"`
}

type FinishPayload struct {
	Scoreboard []PlayerInfo `json:"scoreboard"`
	Winner     string       `json:"winner,omitempty"`
	DurationMS int64        `json:"duration_ms"`
}

type PausePayload struct {
	PausedFrom string `json:"paused_from"`
}

// Event payloads (in-phase, after the phase-entered push).

type PlayerAnsweredEvent struct {
	Nickname string `json:"nickname"`
	// How many connected players have answered so far.
	Answered int `json:"answered"`
	Expected int `json:"expected"`
}

type BidPlacedEvent struct {
	Nickname string `json:"nickname"`
	Bid      int    `json:"bid"`
}

type PurchaseEvent struct {
	Nickname string `json:"nickname"`
	ItemName string `json:"item_name"`
}

type PlayerConnectionEvent struct {
	Nickname  string `json:"nickname"`
	Connected bool   `json:"connected"`
}
