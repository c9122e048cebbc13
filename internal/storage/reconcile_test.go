package storage

import (
	"context"
	"testing"

	"github.com/ernie/ctfbot/internal/chat"
	"github.com/ernie/ctfbot/internal/domain"
)

// fakeTransport serves canned channel listings and memberships for
// reconciliation tests. The write-side methods are never reached here.
type fakeTransport struct {
	botID   string
	private []chat.Channel
	public  []chat.Channel
	members map[string][]string
}

func (f *fakeTransport) BotUserID() string { return f.botID }

func (f *fakeTransport) PrivateChannels(ctx context.Context) ([]chat.Channel, error) {
	return f.private, nil
}

func (f *fakeTransport) PublicChannels(ctx context.Context) ([]chat.Channel, error) {
	return f.public, nil
}

func (f *fakeTransport) ChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	return f.members[channelID], nil
}

func (f *fakeTransport) PostMessage(ctx context.Context, channelID, text string, opts chat.PostOptions) error {
	return nil
}
func (f *fakeTransport) InviteUsers(ctx context.Context, userIDs []string, channelID string) error {
	return nil
}
func (f *fakeTransport) CreateChannel(ctx context.Context, name string, private bool) (*chat.Channel, error) {
	return nil, nil
}
func (f *fakeTransport) RenameChannel(ctx context.Context, channelID, name string) error { return nil }
func (f *fakeTransport) ArchiveChannel(ctx context.Context, channelID string) error      { return nil }
func (f *fakeTransport) SetPurpose(ctx context.Context, channelID, purpose string) error { return nil }
func (f *fakeTransport) SetTopic(ctx context.Context, channelID, topic string) error     { return nil }
func (f *fakeTransport) ChannelByName(ctx context.Context, name string) (*chat.Channel, error) {
	return nil, nil
}
func (f *fakeTransport) Member(ctx context.Context, userID string) (*chat.Member, error) {
	return nil, nil
}
func (f *fakeTransport) Members(ctx context.Context) ([]chat.Member, error) { return nil, nil }
func (f *fakeTransport) AddReminder(ctx context.Context, userID, text string, hoursOffset int) error {
	return nil
}
func (f *fakeTransport) RemoveRemindersByText(ctx context.Context, text string) error { return nil }

func ctfChannel(id, name string, archived bool) chat.Channel {
	ctf := domain.NewCTF(id, name, name)
	return chat.Channel{
		ID:         id,
		Name:       name,
		IsArchived: archived,
		Purpose:    chat.Topic{Value: domain.NewCTFPurpose(ctf).Encode()},
	}
}

func challengeChannel(id, ctfID, name, solved, solveDate string) chat.Channel {
	ch := domain.NewChallenge(id, ctfID, name, "pwn")
	purpose := domain.NewChallengePurpose(ch)
	purpose.Solved = solved
	purpose.SolveDate = solveDate
	return chat.Channel{
		ID:      id,
		Name:    name,
		Purpose: chat.Topic{Value: purpose.Encode()},
	}
}

func TestReconcile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newTestCoordinator(t)

	transport := &fakeTransport{
		botID: "UBOT",
		private: []chat.Channel{
			ctfChannel("T1", "sums", false),
			challengeChannel("C1", "T1", "pwn1", "['alice', 'bob']", "1700000000"),
			challengeChannel("C2", "T1", "web1", "", ""),
			challengeChannel("C9", "TGONE", "orphan", "", ""),
			{ID: "X1", Name: "general", Purpose: chat.Topic{Value: "say hi"}},
		},
		public: []chat.Channel{
			ctfChannel("T2", "pub", false),
			ctfChannel("T3", "old", true),
		},
		members: map[string][]string{
			"C1": {"U1", "UBOT"},
			"C2": {"U1", "U2", "UBOT"},
		},
	}

	if err := c.Reconcile(ctx, transport); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	ctfs, err := c.GetCTFs(ctx)
	if err != nil {
		t.Fatalf("GetCTFs: %v", err)
	}
	if len(ctfs) != 2 {
		t.Fatalf("recovered %d ctfs, want 2 (archived and unmarked skipped)", len(ctfs))
	}

	ctf, _ := c.GetCTF(ctx, "T1", "")
	if ctf == nil || len(ctf.Challenges) != 2 {
		t.Fatalf("ctf T1 = %+v, want 2 challenges", ctf)
	}

	solved := ctf.Challenge("C1")
	if !solved.IsSolved || solved.SolveDate != 1700000000 {
		t.Errorf("C1 = %+v, want solved at 1700000000", solved)
	}
	if len(solved.Solver) != 2 || solved.Solver[0] != "alice" {
		t.Errorf("C1 solvers = %v", solved.Solver)
	}
	if _, ok := solved.Players["UBOT"]; ok {
		t.Error("bot recovered as a player")
	}
	if _, ok := solved.Players["U1"]; !ok {
		t.Error("U1 not recovered as a player")
	}

	unsolved := ctf.Challenge("C2")
	if unsolved.IsSolved {
		t.Error("C2 recovered as solved")
	}
	if len(unsolved.Players) != 2 {
		t.Errorf("C2 players = %v, want 2", unsolved.Players)
	}

	// The orphan challenge had no owning CTF channel.
	if ch, _ := c.GetChallenge(ctx, "C9", "", ""); ch != nil {
		t.Error("orphan challenge was recovered")
	}
}
