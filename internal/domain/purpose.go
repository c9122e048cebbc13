package domain

import (
	"encoding/json"
	"strings"
)

// Channel purposes are the durable recovery record for a channel's CTF
// or challenge identity. The JSON shapes here are the on-wire contract:
// the reconciliation path must be able to rebuild the full domain state
// from nothing but these blobs plus channel membership.

const (
	// PurposeMarker identifies purposes written by this bot.
	PurposeMarker = "CTFBOT"

	// PurposeTypeCTF marks a channel as a CTF channel.
	PurposeTypeCTF = "CTF"

	// PurposeTypeChallenge marks a channel as a challenge channel.
	PurposeTypeChallenge = "CHALLENGE"
)

// CTFPurpose is the purpose blob attached to a CTF channel.
type CTFPurpose struct {
	Bot        string `json:"ctf_bot"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	CredUser   string `json:"cred_user"`
	CredPW     string `json:"cred_pw"`
	LongName   string `json:"long_name"`
	Finished   bool   `json:"finished"`
	FinishedOn int64  `json:"finished_on"`
}

// NewCTFPurpose builds the purpose blob for a CTF.
func NewCTFPurpose(ctf *CTF) *CTFPurpose {
	return &CTFPurpose{
		Bot:        PurposeMarker,
		Name:       ctf.Name,
		Type:       PurposeTypeCTF,
		CredUser:   ctf.CredUser,
		CredPW:     ctf.CredPW,
		LongName:   ctf.LongName,
		Finished:   ctf.Finished,
		FinishedOn: ctf.FinishedOn,
	}
}

// Encode returns the JSON form to be stored as the channel purpose.
func (p *CTFPurpose) Encode() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}

// ChallengePurpose is the purpose blob attached to a challenge channel.
// Solved carries the solver list rendered as a string; its presence is
// what marks the challenge solved during reconciliation.
type ChallengePurpose struct {
	Bot       string `json:"ctf_bot"`
	CTFID     string `json:"ctf_id"`
	Name      string `json:"name"`
	Solved    string `json:"solved"`
	Category  string `json:"category"`
	Type      string `json:"type"`
	SolveDate string `json:"solve_date,omitempty"`
}

// NewChallengePurpose builds the unsolved purpose blob for a challenge.
func NewChallengePurpose(ch *Challenge) *ChallengePurpose {
	return &ChallengePurpose{
		Bot:      PurposeMarker,
		CTFID:    ch.CTFChannelID,
		Name:     ch.Name,
		Category: ch.Category,
		Type:     PurposeTypeChallenge,
	}
}

// Encode returns the JSON form to be stored as the channel purpose.
func (p *ChallengePurpose) Encode() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}

// ParseCTFPurpose parses a channel purpose as a CTF record. Unknown
// fields are ignored; the result is only valid when the marker and type
// discriminator check out.
func ParseCTFPurpose(raw string) (*CTFPurpose, bool) {
	var p CTFPurpose
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false
	}
	if p.Bot != PurposeMarker || p.Type != PurposeTypeCTF || p.Name == "" {
		return nil, false
	}
	return &p, true
}

// ParseChallengePurpose parses a channel purpose as a challenge record.
func ParseChallengePurpose(raw string) (*ChallengePurpose, bool) {
	var p ChallengePurpose
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false
	}
	if p.Bot != PurposeMarker || p.Type != PurposeTypeChallenge || p.Name == "" || p.CTFID == "" {
		return nil, false
	}
	return &p, true
}

// FormatSolverList renders a solver list the way it is stored in the
// purpose's solved field, e.g. ['alice', 'bob'].
func FormatSolverList(solvers []string) string {
	if len(solvers) == 0 {
		return ""
	}
	quoted := make([]string, len(solvers))
	for i, s := range solvers {
		quoted[i] = "'" + s + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// ParseSolverList is the inverse of FormatSolverList. It accepts both
// the bracketed list form and a bare comma-separated string, returning
// nil for an empty value.
func ParseSolverList(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	solvers := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(strings.TrimSpace(part), "'\"")
		if part != "" {
			solvers = append(solvers, part)
		}
	}
	if len(solvers) == 0 {
		return nil
	}
	return solvers
}
