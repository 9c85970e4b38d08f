// lifecycle/context.go
package lifecycle

import (
	"time"

	"github.com/wfunc/triviashow/config"
	"github.com/wfunc/triviashow/game"
	"github.com/wfunc/triviashow/logger"
	"github.com/wfunc/triviashow/models"
	"github.com/wfunc/triviashow/scenario"
	"github.com/wfunc/triviashow/state"
)

// behaviorContext is the state.Context given to phase behaviors. Every
// mutation routes through the session service, which keeps the "behaviors
// never write session data directly" invariant honest.
type behaviorContext struct {
	cfg      config.GameConfig
	sessions *game.Service
	sess     *game.Session
}

func (s *Service) contextFor(sess *game.Session) state.Context {
	return &behaviorContext{cfg: s.cfg, sessions: s.sessions, sess: sess}
}

func (c *behaviorContext) SessionID() string            { return c.sess.ID }
func (c *behaviorContext) Config() config.GameConfig    { return c.cfg }
func (c *behaviorContext) Scenario() *scenario.Scenario { return c.sess.Scenario }
func (c *behaviorContext) Cursor() scenario.Cursor      { return c.sess.Cursor }
func (c *behaviorContext) ConnectedPlayers() int        { return c.sess.ConnectedCount() }
func (c *behaviorContext) TotalPlayers() int            { return c.sess.PlayerCount() }
func (c *behaviorContext) Scratch() *state.Scratch      { return c.sess.Scratch }
func (c *behaviorContext) StartedAt() time.Time         { return c.sess.StartedAt }

func (c *behaviorContext) Scoreboard() []models.PlayerInfo {
	return c.sess.Snapshot()
}

func (c *behaviorContext) Nickname(playerID string) string {
	if p, exists := c.sess.Player(playerID); exists {
		return p.Nickname
	}
	return playerID
}

func (c *behaviorContext) PlayerIDByNickname(nickname string) string {
	if p, exists := c.sess.PlayerByNickname(nickname); exists {
		return p.ID
	}
	return ""
}

func (c *behaviorContext) AdvanceQuestion() {
	if err := c.sessions.AdvanceQuestion(c.sess.ID); err != nil {
		logger.Log.Errorf("Session %s cursor advance failed: %v", c.sess.ID, err)
	}
}

func (c *behaviorContext) AdvanceRound() {
	if err := c.sessions.AdvanceRound(c.sess.ID); err != nil {
		logger.Log.Errorf("Session %s round advance failed: %v", c.sess.ID, err)
	}
}

func (c *behaviorContext) AwardPoints(playerID string, delta int) {
	if err := c.sessions.AddScore(c.sess.ID, playerID, delta); err != nil {
		logger.Log.Warnf("Session %s award of %d to %s rejected: %v", c.sess.ID, delta, playerID, err)
	}
}
