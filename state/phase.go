package state

// Phase identifies a stage of the game show. The set is closed; every tag
// must have exactly one Behavior bound at boot.
type Phase string

const (
	PhaseNotStarted        Phase = "not_started"
	PhasePause             Phase = "pause"
	PhaseWaitingForPlayers Phase = "waiting_for_players"
	PhaseMedia             Phase = "media"
	PhaseRound             Phase = "round"
	PhaseQuestion          Phase = "question"
	PhaseReveal            Phase = "reveal"
	PhaseAuction           Phase = "auction"
	PhaseStats             Phase = "stats"
	PhaseVoting            Phase = "voting"
	PhaseShop              Phase = "shop"
	PhaseModifiers         Phase = "modifiers"
	PhaseFinish            Phase = "finish"
)

// AllPhases lists every tag. Order matters only for deterministic
// validation output.
var AllPhases = []Phase{
	PhaseNotStarted,
	PhasePause,
	PhaseWaitingForPlayers,
	PhaseMedia,
	PhaseRound,
	PhaseQuestion,
	PhaseReveal,
	PhaseAuction,
	PhaseStats,
	PhaseVoting,
	PhaseShop,
	PhaseModifiers,
	PhaseFinish,
}

func (p Phase) String() string {
	return string(p)
}

// Terminal reports whether the phase has no successors.
func (p Phase) Terminal() bool {
	return p == PhaseFinish
}
