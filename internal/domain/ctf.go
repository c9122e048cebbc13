package domain

// CTF represents one competition. The channel id doubles as the
// document id in the store; challenges are embedded, never stored on
// their own.
type CTF struct {
	ChannelID  string      `json:"channel_id"`
	Name       string      `json:"name"`
	LongName   string      `json:"long_name"`
	Challenges []Challenge `json:"challenges"`
	CredUser   string      `json:"cred_user"`
	CredPW     string      `json:"cred_pw"`
	Finished   bool        `json:"finished"`
	FinishedOn int64       `json:"finished_on"`
}

// NewCTF creates a running CTF with no challenges.
func NewCTF(channelID, name, longName string) *CTF {
	return &CTF{
		ChannelID: channelID,
		Name:      name,
		LongName:  longName,
	}
}

// AddChallenge upserts a challenge by channel id: a challenge whose
// channel id is already present replaces the prior entry, everything
// else is appended.
func (c *CTF) AddChallenge(ch Challenge) {
	for i := range c.Challenges {
		if c.Challenges[i].ChannelID == ch.ChannelID {
			c.Challenges[i] = ch
			return
		}
	}
	c.Challenges = append(c.Challenges, ch)
}

// Challenge returns the embedded challenge with the given channel id,
// or nil.
func (c *CTF) Challenge(channelID string) *Challenge {
	for i := range c.Challenges {
		if c.Challenges[i].ChannelID == channelID {
			return &c.Challenges[i]
		}
	}
	return nil
}

// ChallengeByName returns the embedded challenge with the given name,
// or nil.
func (c *CTF) ChallengeByName(name string) *Challenge {
	for i := range c.Challenges {
		if c.Challenges[i].Name == name {
			return &c.Challenges[i]
		}
	}
	return nil
}

// RemoveChallenge drops the challenge with the given channel id from
// the embedded list.
func (c *CTF) RemoveChallenge(channelID string) {
	for i := range c.Challenges {
		if c.Challenges[i].ChannelID == channelID {
			c.Challenges = append(c.Challenges[:i], c.Challenges[i+1:]...)
			return
		}
	}
}

// SolvedCount returns the number of solved challenges.
func (c *CTF) SolvedCount() int {
	n := 0
	for i := range c.Challenges {
		if c.Challenges[i].IsSolved {
			n++
		}
	}
	return n
}
