package handlers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/ernie/ctfbot/internal/chat"
	"github.com/ernie/ctfbot/internal/dispatch"
	"github.com/ernie/ctfbot/internal/domain"
)

// challengePurpose builds the purpose blob for a challenge, carrying
// the solve state when there is one.
func challengePurpose(ch *domain.Challenge) *domain.ChallengePurpose {
	p := domain.NewChallengePurpose(ch)
	if ch.IsSolved {
		p.Solved = domain.FormatSolverList(ch.Solver)
		p.SolveDate = strconv.FormatInt(ch.SolveDate, 10)
	}
	return p
}

// addChallengeCommand creates a private channel for a new challenge
// and attaches it to the current CTF.
type addChallengeCommand struct{}

func (addChallengeCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	name := strings.ToLower(inv.Args[0])
	category := ""
	if len(inv.Args) > 1 {
		category = inv.Args[1]
	}

	ctf, err := inv.Storage.GetCTF(ctx, inv.ChannelID, "")
	if err != nil {
		return err
	}
	if ctf == nil {
		return dispatch.Errorf("Add challenge failed: You are not in a CTF channel.")
	}
	if len(name) > maxChannelNameLength-len(ctf.Name)-1 {
		return dispatch.Errorf("Add challenge failed: Challenge name must be <= %d characters.", maxChannelNameLength-len(ctf.Name)-1)
	}
	if !isValidName(name) {
		return dispatch.Errorf("Command failed: Invalid characters for challenge name found.")
	}
	if ctf.Finished && !inv.IsAdmin {
		return dispatch.Errorf("Add challenge failed: CTF *%s* is over...", ctf.Name)
	}

	channelName := ctf.Name + "-" + name
	channel, err := inv.Transport.CreateChannel(ctx, channelName, true)
	if err != nil {
		return dispatch.Errorf("\"%s\" channel creation failed:\nError : %s", channelName, chat.APIErrorReason(err))
	}

	challenge := domain.NewChallenge(channel.ID, ctf.ChannelID, name, category)
	if err := inv.Transport.SetPurpose(ctx, channel.ID, challengePurpose(challenge).Encode()); err != nil {
		return err
	}

	for _, autoInvite := range inv.Options.AutoInvite() {
		if err := inv.Transport.InviteUsers(ctx, []string{autoInvite}, channel.ID); err != nil {
			log.Printf("Auto-inviting %s into %s failed: %v", autoInvite, channelName, err)
		}
	}

	if err := inv.Storage.AddChallenge(ctx, challenge, ctf.ChannelID); err != nil {
		return err
	}

	return inv.Reply(ctx, fmt.Sprintf("New challenge *%[1]s* created in private channel (type `/ctf workon %[1]s` to join).", name))
}

// removeChallengeCommand archives a challenge channel and detaches the
// challenge from its CTF.
type removeChallengeCommand struct{}

func (removeChallengeCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	ctf, err := inv.Storage.GetCTF(ctx, inv.ChannelID, "")
	if err != nil {
		return err
	}
	if ctf == nil {
		return dispatch.Errorf("Remove challenge failed: You are not in a CTF channel.")
	}

	var challenge *domain.Challenge
	if len(inv.Args) > 0 {
		challenge, err = inv.Storage.GetChallenge(ctx, "", strings.ToLower(inv.Args[0]), inv.ChannelID)
		if err != nil {
			return err
		}
	}
	if challenge == nil {
		return dispatch.Errorf("This challenge does not exist.")
	}

	if err := inv.Transport.ArchiveChannel(ctx, challenge.ChannelID); err != nil {
		return err
	}
	if err := inv.Storage.RemoveChallenge(ctx, challenge.ChannelID, ctf.ChannelID); err != nil {
		return err
	}

	name := displayName(ctx, inv.Transport, inv.UserID)
	return inv.Transport.PostMessage(ctx, ctf.ChannelID,
		fmt.Sprintf("Challenge *%s* was removed by *%s*.", challenge.Name, name), chat.PostOptions{})
}

// renameChallengeCommand renames a challenge and its channel within
// the current CTF.
type renameChallengeCommand struct{}

func (renameChallengeCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	oldName := strings.ToLower(inv.Args[0])
	newName := strings.ToLower(inv.Args[1])

	ctf, err := inv.Storage.GetCTF(ctx, inv.ChannelID, "")
	if err != nil {
		return err
	}
	if ctf == nil {
		return dispatch.Errorf("Rename challenge failed: You are not in a CTF channel.")
	}
	if len(newName) > maxChannelNameLength-len(ctf.Name)-1 {
		return dispatch.Errorf("Rename challenge failed: Challenge name must be <= %d characters.", maxChannelNameLength-len(ctf.Name)-1)
	}
	if !isValidName(newName) {
		return dispatch.Errorf("Command failed: Invalid characters for challenge name found.")
	}

	oldChannelName := ctf.Name + "-" + oldName
	newChannelName := ctf.Name + "-" + newName

	challenge, err := inv.Storage.GetChallenge(ctx, "", oldName, ctf.ChannelID)
	if err != nil {
		return err
	}
	if challenge == nil {
		return dispatch.Errorf("Rename challenge failed: Challenge '%s' not found.", oldName)
	}

	if err := inv.Transport.RenameChannel(ctx, challenge.ChannelID, newChannelName); err != nil {
		return dispatch.Errorf("\"%s\" channel rename failed:\nError: %s", oldChannelName, chat.APIErrorReason(err))
	}

	renamed := *challenge
	renamed.Name = newName
	if err := inv.Transport.SetPurpose(ctx, challenge.ChannelID, challengePurpose(&renamed).Encode()); err != nil {
		return err
	}
	if err := inv.Storage.UpdateChallengeName(ctx, challenge.ChannelID, newName); err != nil {
		return err
	}

	return inv.Reply(ctx, fmt.Sprintf("Challenge `%s` renamed to `%s` (#%s)", oldName, newName, newChannelName))
}

// workonCommand joins the caller to a challenge channel and records
// them as a player.
type workonCommand struct{}

func (workonCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	name := ""
	if len(inv.Args) > 0 {
		name = strings.Trim(strings.ToLower(inv.Args[0]), "*")
	}

	ctf, err := inv.Storage.GetCTF(ctx, inv.ChannelID, "")
	if err != nil {
		return err
	}
	if ctf == nil {
		return dispatch.Errorf("Workon failed: You are not in a CTF channel.")
	}

	var challenge *domain.Challenge
	if name != "" {
		challenge, err = inv.Storage.GetChallenge(ctx, "", name, ctf.ChannelID)
	} else {
		challenge, err = inv.Storage.GetChallenge(ctx, inv.ChannelID, "", "")
	}
	if err != nil {
		return err
	}
	if challenge == nil {
		return dispatch.Errorf("This challenge does not exist.")
	}
	if challenge.IsSolved && !ctf.Finished && !inv.IsAdmin {
		return dispatch.Errorf("This challenge is already solved.")
	}

	if err := inv.Transport.InviteUsers(ctx, []string{inv.UserID}, challenge.ChannelID); err != nil {
		return err
	}

	challenge.AddPlayer(domain.Player{UserID: inv.UserID})
	return inv.Storage.AddChallenge(ctx, challenge, challenge.CTFChannelID)
}

// resolveSolveTarget finds the challenge a solve or unsolve refers to:
// the named challenge in the current CTF first, then the current
// channel itself. It also returns the arguments left over for
// supporting solvers.
func resolveSolveTarget(ctx context.Context, inv *dispatch.Invocation) (*domain.Challenge, []string, error) {
	if len(inv.Args) == 0 {
		challenge, err := inv.Storage.GetChallenge(ctx, inv.ChannelID, "", "")
		return challenge, nil, err
	}

	name := strings.Trim(strings.ToLower(inv.Args[0]), "*")
	challenge, err := inv.Storage.GetChallenge(ctx, "", name, inv.ChannelID)
	if err != nil {
		return nil, nil, err
	}
	if challenge == nil {
		challenge, err = inv.Storage.GetChallenge(ctx, inv.ChannelID, "", "")
		return challenge, inv.Args, err
	}
	return challenge, inv.Args[1:], nil
}

// solveCommand marks a challenge as solved and announces it. Solving
// an already-solved challenge does nothing.
type solveCommand struct{}

func (solveCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	challenge, supportArgs, err := resolveSolveTarget(ctx, inv)
	if err != nil {
		return err
	}
	if challenge == nil {
		return dispatch.Errorf("This challenge does not exist.")
	}
	if challenge.IsSolved {
		return nil
	}

	ctf, err := inv.Storage.GetCTF(ctx, challenge.CTFChannelID, "")
	if err != nil {
		return err
	}
	if ctf == nil {
		return dispatch.Errorf("This challenge does not exist.")
	}
	if ctf.Finished && !inv.IsAdmin {
		return dispatch.Errorf("Solve challenge failed: CTF *%s* is over...", ctf.Name)
	}

	solver := displayName(ctx, inv.Transport, inv.UserID)
	solverList := []string{solver}
	var additionalSolver []string
	for _, raw := range supportArgs {
		name := raw
		if member, err := resolveMember(ctx, inv.Transport, raw); err == nil && member != nil {
			name = member.DisplayName()
		}
		if !contains(solverList, name) {
			solverList = append(solverList, name)
			additionalSolver = append(additionalSolver, name)
		}
	}

	challenge.MarkSolved(solverList, 0)
	ctf.AddChallenge(*challenge)
	if err := inv.Storage.AddCTF(ctx, ctf); err != nil {
		return err
	}
	if err := inv.Transport.SetPurpose(ctx, challenge.ChannelID, challengePurpose(challenge).Encode()); err != nil {
		return err
	}

	helpMembers := ""
	if len(additionalSolver) > 0 {
		helpMembers = "(together with " + strings.Join(additionalSolver, ", ") + ")"
	}
	message := fmt.Sprintf("@here *%s* : %s has solved the \"%s\" challenge %s.",
		challenge.Name, solver, challenge.Name, helpMembers)
	return inv.Transport.PostMessage(ctx, ctf.ChannelID, message, chat.PostOptions{})
}

// unsolveCommand reverts a solve and announces the reset.
type unsolveCommand struct{}

func (unsolveCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	challenge, _, err := resolveSolveTarget(ctx, inv)
	if err != nil {
		return err
	}
	if challenge == nil {
		return dispatch.Errorf("This challenge does not exist.")
	}
	if !challenge.IsSolved {
		return dispatch.Errorf("This challenge isn't marked as solve.")
	}

	challenge.UnmarkSolved()

	ctf, err := inv.Storage.GetCTF(ctx, challenge.CTFChannelID, "")
	if err != nil {
		return err
	}
	if ctf == nil {
		return dispatch.Errorf("This challenge does not exist.")
	}
	ctf.AddChallenge(*challenge)
	if err := inv.Storage.AddCTF(ctx, ctf); err != nil {
		return err
	}
	if err := inv.Transport.SetPurpose(ctx, challenge.ChannelID, domain.NewChallengePurpose(challenge).Encode()); err != nil {
		return err
	}

	name := displayName(ctx, inv.Transport, inv.UserID)
	message := fmt.Sprintf("@here *%s* : %s has reset the solve on the \"%s\" challenge.",
		challenge.Name, name, challenge.Name)
	return inv.Transport.PostMessage(ctx, ctf.ChannelID, message, chat.PostOptions{})
}

// resolveTagTarget finds the challenge a tag command refers to and the
// tag arguments that apply to it.
func resolveTagTarget(ctx context.Context, inv *dispatch.Invocation) (*domain.Challenge, []string, error) {
	challenge, err := inv.Storage.GetChallengeFromArgsOrChannel(ctx, inv.Args, inv.ChannelID)
	if err != nil {
		return nil, nil, err
	}
	if challenge == nil {
		return nil, nil, dispatch.Errorf("This challenge does not exist.")
	}

	switch inv.ChannelID {
	case challenge.ChannelID:
		return challenge, inv.Args, nil
	case challenge.CTFChannelID:
		if len(inv.Args) > 1 {
			return challenge, inv.Args[1:], nil
		}
		return challenge, nil, nil
	default:
		return nil, nil, dispatch.Errorf("You must be in a CTF or Challenge channel to use this command.")
	}
}

type addTagCommand struct{}

func (addTagCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	challenge, tags, err := resolveTagTarget(ctx, inv)
	if err != nil {
		return err
	}

	dirty := false
	for _, tag := range tags {
		dirty = challenge.AddTag(tag) || dirty
	}
	if !dirty {
		return nil
	}
	return inv.Storage.AddChallenge(ctx, challenge, challenge.CTFChannelID)
}

type removeTagCommand struct{}

func (removeTagCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	challenge, tags, err := resolveTagTarget(ctx, inv)
	if err != nil {
		return err
	}

	dirty := false
	for _, tag := range tags {
		dirty = challenge.RemoveTag(tag) || dirty
	}
	if !dirty {
		return nil
	}
	return inv.Storage.AddChallenge(ctx, challenge, challenge.CTFChannelID)
}

func contains(list []string, item string) bool {
	for _, entry := range list {
		if entry == item {
			return true
		}
	}
	return false
}
