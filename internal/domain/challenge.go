package domain

import "time"

// MaxTags is the maximum number of tags a challenge can carry.
const MaxTags = 5

// Challenge represents one problem within a CTF, backed by its own
// dedicated channel.
type Challenge struct {
	ChannelID    string            `json:"channel_id"`
	CTFChannelID string            `json:"ctf_channel_id"`
	Name         string            `json:"name"`
	Category     string            `json:"category"`
	Players      map[string]Player `json:"players"`
	IsSolved     bool              `json:"is_solved"`
	Solver       []string          `json:"solver"`
	SolveDate    int64             `json:"solve_date"`
	Tags         []string          `json:"tags"`
}

// NewChallenge creates an unsolved challenge bound to its CTF channel.
func NewChallenge(channelID, ctfChannelID, name, category string) *Challenge {
	return &Challenge{
		ChannelID:    channelID,
		CTFChannelID: ctfChannelID,
		Name:         name,
		Category:     category,
		Players:      make(map[string]Player),
	}
}

// MarkSolved marks the challenge as solved by the given display names.
// A zero solveDate means "now". Callers are expected to check IsSolved
// first to avoid re-announcing a solve.
func (c *Challenge) MarkSolved(solvers []string, solveDate int64) {
	c.IsSolved = true
	c.Solver = solvers
	if solveDate == 0 {
		solveDate = time.Now().Unix()
	}
	c.SolveDate = solveDate
}

// UnmarkSolved reverts a solve. SolveDate is deliberately left in place
// as a historical artifact.
func (c *Challenge) UnmarkSolved() {
	c.IsSolved = false
	c.Solver = []string{}
}

// AddTag adds a tag and reports whether the challenge was modified.
// Duplicate tags and tags beyond MaxTags are refused without error.
func (c *Challenge) AddTag(tag string) bool {
	if len(c.Tags) >= MaxTags {
		return false
	}
	for _, t := range c.Tags {
		if t == tag {
			return false
		}
	}
	c.Tags = append(c.Tags, tag)
	return true
}

// RemoveTag removes a tag and reports whether the challenge was modified.
func (c *Challenge) RemoveTag(tag string) bool {
	for i, t := range c.Tags {
		if t == tag {
			c.Tags = append(c.Tags[:i], c.Tags[i+1:]...)
			return true
		}
	}
	return false
}

// AddPlayer records a player as working on this challenge. Adding the
// same player twice is a no-op.
func (c *Challenge) AddPlayer(p Player) {
	if c.Players == nil {
		c.Players = make(map[string]Player)
	}
	c.Players[p.UserID] = p
}

// RemovePlayer removes a player by user id, ignoring absent players.
func (c *Challenge) RemovePlayer(userID string) {
	delete(c.Players, userID)
}
