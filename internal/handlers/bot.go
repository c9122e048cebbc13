package handlers

import (
	"context"
	"os/exec"
	"strings"

	"github.com/ernie/ctfbot/internal/chat"
	"github.com/ernie/ctfbot/internal/dispatch"
)

// Version is stamped at build time.
var Version = "dev"

type pingCommand struct{}

func (pingCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	return inv.Reply(ctx, "Pong!")
}

type introCommand struct{}

func (introCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	message := inv.Options.IntroMessage()
	if message == "" {
		message = "No introduction message configured."
	}
	return inv.Reply(ctx, message)
}

type versionCommand struct{}

func (versionCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	return inv.Reply(ctx, "Running ctfbot "+Version)
}

// inviteCommand invites the mentioned members to the current channel,
// skipping anyone already present.
type inviteCommand struct{}

func (inviteCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	current, err := inv.Transport.ChannelMembers(ctx, inv.ChannelID)
	if err != nil {
		return err
	}

	var invited []string
	for _, raw := range inv.Args {
		invited = append(invited, stripMention(raw))
	}

	var failed []string
	for _, member := range subtract(invited, current) {
		if err := inv.Transport.InviteUsers(ctx, []string{member}, inv.ChannelID); err != nil {
			failed = append(failed, member)
		}
	}
	if len(failed) > 0 {
		return dispatch.Errorf("Sorry, couldn't invite the following members to the channel: %s", strings.Join(failed, " "))
	}
	return nil
}

// sysinfoCommand reports host load and disk usage to the caller as a
// direct message.
type sysinfoCommand struct{}

func (sysinfoCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	top, err := exec.CommandContext(ctx, "top", "-bn1").Output()
	if err != nil {
		return dispatch.Errorf("Sorry, couldn't gather system information.")
	}
	lines := strings.Split(string(top), "\n")
	if len(lines) > 20 {
		lines = lines[:20]
	}

	disk, err := exec.CommandContext(ctx, "df", "-h").Output()
	if err != nil {
		return dispatch.Errorf("Sorry, couldn't gather system information.")
	}

	result := "```\n" + strings.Join(lines, "\n") + "\n\n" + string(disk) + "```\n"
	return inv.Transport.PostMessage(ctx, inv.UserID, result, chat.PostOptions{})
}

// BotGroup assembles the generic bot commands.
func BotGroup() *dispatch.Group {
	g := dispatch.NewGroup("bot")
	g.Register("ping", &dispatch.Descriptor{
		Command:     pingCommand{},
		Description: "Ping the bot",
	})
	g.Register("intro", &dispatch.Descriptor{
		Command:     introCommand{},
		Description: "Show an introduction message for new members",
	})
	g.Register("version", &dispatch.Descriptor{
		Command:     versionCommand{},
		Description: "Show the running version of the bot",
	})
	g.Register("invite", &dispatch.Descriptor{
		Command:     inviteCommand{},
		Description: "Invite a list of members (using @username) to the current channel",
		Arguments:   []string{"user_list"},
	})
	g.Register("sysinfo", &dispatch.Descriptor{
		Command:     sysinfoCommand{},
		Description: "Show system information",
		IsAdminCmd:  true,
	})
	return g
}
