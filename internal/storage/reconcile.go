package storage

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/ernie/ctfbot/internal/chat"
	"github.com/ernie/ctfbot/internal/domain"
)

// Reconcile rebuilds the CTF documents from channel purpose metadata.
// CTF records are recovered from public and private channels, challenge
// records from private channels only, and player lists from live
// channel membership. Channels without valid bot metadata are skipped.
func (c *Coordinator) Reconcile(ctx context.Context, transport chat.Transport) error {
	private, err := transport.PrivateChannels(ctx)
	if err != nil {
		return fmt.Errorf("listing private channels: %w", err)
	}
	public, err := transport.PublicChannels(ctx)
	if err != nil {
		return fmt.Errorf("listing public channels: %w", err)
	}

	ctfs := make(map[string]*domain.CTF)
	for _, channel := range append(append([]chat.Channel{}, private...), public...) {
		if channel.IsArchived {
			continue
		}
		purpose, ok := domain.ParseCTFPurpose(channel.Purpose.Value)
		if !ok {
			continue
		}
		ctf := domain.NewCTF(channel.ID, purpose.Name, purpose.LongName)
		ctf.CredUser = purpose.CredUser
		ctf.CredPW = purpose.CredPW
		ctf.Finished = purpose.Finished
		ctf.FinishedOn = purpose.FinishedOn
		ctfs[ctf.ChannelID] = ctf
	}

	// Challenges are only ever private channels.
	for _, channel := range private {
		if channel.IsArchived {
			continue
		}
		purpose, ok := domain.ParseChallengePurpose(channel.Purpose.Value)
		if !ok {
			continue
		}
		ctf, ok := ctfs[purpose.CTFID]
		if !ok {
			continue
		}

		challenge := domain.NewChallenge(channel.ID, purpose.CTFID, purpose.Name, purpose.Category)
		if solvers := domain.ParseSolverList(purpose.Solved); len(solvers) > 0 {
			solveDate, _ := strconv.ParseInt(purpose.SolveDate, 10, 64)
			challenge.MarkSolved(solvers, solveDate)
		}

		members, err := transport.ChannelMembers(ctx, channel.ID)
		if err != nil {
			log.Printf("Skipping member recovery for channel %s: %v", channel.ID, err)
			continue
		}
		for _, memberID := range members {
			if memberID != transport.BotUserID() {
				challenge.AddPlayer(domain.Player{UserID: memberID})
			}
		}
		ctf.AddChallenge(*challenge)
	}

	for _, ctf := range ctfs {
		if err := c.AddCTF(ctx, ctf); err != nil {
			return fmt.Errorf("persisting ctf %q: %w", ctf.Name, err)
		}
	}
	return nil
}
