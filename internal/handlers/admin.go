package handlers

import (
	"context"
	"strings"

	"github.com/ernie/ctfbot/internal/chat"
	"github.com/ernie/ctfbot/internal/dispatch"
	"github.com/ernie/ctfbot/internal/domain"
)

type showAdminsCommand struct{}

func (showAdminsCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	admins := inv.Options.AdminUsers()
	if len(admins) == 0 {
		return inv.Reply(ctx, "No admin_users group found. Please check your configuration.")
	}

	response := "Administrators\n"
	response += "===================================\n"
	for _, adminID := range admins {
		member, err := inv.Transport.Member(ctx, adminID)
		if err != nil || member == nil {
			continue
		}
		response += "*" + member.DisplayName() + "* (" + adminID + ")\n"
	}
	response += "==================================="
	return inv.Reply(ctx, response)
}

type addAdminCommand struct{}

func (addAdminCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	member, err := resolveMember(ctx, inv.Transport, inv.Args[0])
	if err != nil || member == nil {
		return inv.Reply(ctx, "User *"+inv.Args[0]+"* not found. You must provide the user id, not the username.")
	}

	added, err := inv.Options.AddAdmin(member.ID)
	if err != nil {
		return err
	}
	if !added {
		return inv.Reply(ctx, "User *"+member.Name+"* is already in the admin group.")
	}
	return inv.Reply(ctx, "User *"+member.Name+"* added to the admin group.")
}

type removeAdminCommand struct{}

func (removeAdminCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	userID := parseUserID(inv.Args[0])

	removed, err := inv.Options.RemoveAdmin(userID)
	if err != nil {
		return err
	}
	if !removed {
		return inv.Reply(ctx, "User *"+userID+"* doesn't exist in the admin group")
	}
	return inv.Reply(ctx, "User *"+userID+"* removed from the admin group.")
}

// asCommand re-enters the dispatcher as another user while keeping the
// caller's admin privileges.
type asCommand struct{}

func (asCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	destUser := strings.ToLower(inv.Args[0])
	destCommand := strings.TrimPrefix(strings.ToLower(inv.Args[1]), "/")
	destArgs := inv.Args[2:]

	member, err := resolveMember(ctx, inv.Transport, destUser)
	if err != nil || member == nil {
		return dispatch.Errorf("You have to specify a valid user (use @-notation).")
	}

	inv.Registry.ProcessCommand(ctx, destCommand, destArgs, inv.Timestamp, inv.ChannelID, member.ID, inv.IsAdmin)
	return nil
}

type maintenanceCommand struct{}

func (maintenanceCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	enabled, err := inv.Options.ToggleMaintenanceMode()
	if err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	return inv.Reply(ctx, "Maintenance mode "+state)
}

// debugCommand toggles verbose command logging. It only works during
// maintenance, matching how invasive diagnostics are meant to be used.
type debugCommand struct{}

func (debugCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	if !inv.Options.MaintenanceMode() {
		return dispatch.Errorf("Must be in maintenance mode to toggle debug logging.")
	}
	enabled, err := inv.Options.ToggleDebugLogging()
	if err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	return inv.Reply(ctx, "Debug logging "+state)
}

type joinChannelCommand struct{}

func (joinChannelCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	channel, err := inv.Transport.ChannelByName(ctx, inv.Args[0])
	if err != nil {
		return err
	}
	if channel == nil {
		return inv.Transport.PostMessage(ctx, inv.UserID, "No such channel", chat.PostOptions{})
	}
	return inv.Transport.InviteUsers(ctx, []string{inv.UserID}, channel.ID)
}

// makeCTFCommand stamps a CTF purpose onto the current channel, so a
// manually created channel can be adopted with a reload.
type makeCTFCommand struct{}

func (makeCTFCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	ctf := domain.NewCTF(inv.ChannelID, inv.Args[0], inv.Args[0])
	return inv.Transport.SetPurpose(ctx, inv.ChannelID, domain.NewCTFPurpose(ctf).Encode())
}

// AdminGroup assembles the administrative commands.
func AdminGroup() *dispatch.Group {
	g := dispatch.NewGroup("admin")
	g.Register("show_admins", &dispatch.Descriptor{
		Command:     showAdminsCommand{},
		Description: "Show a list of current admin users",
		IsAdminCmd:  true,
	})
	g.Register("add_admin", &dispatch.Descriptor{
		Command:     addAdminCommand{},
		Description: "Add a user to the admin user group",
		Arguments:   []string{"user_id"},
		IsAdminCmd:  true,
	})
	g.Register("remove_admin", &dispatch.Descriptor{
		Command:     removeAdminCommand{},
		Description: "Remove a user from the admin user group",
		Arguments:   []string{"user_id"},
		IsAdminCmd:  true,
	})
	g.Register("as", &dispatch.Descriptor{
		Command:     asCommand{},
		Description: "Execute a command as another user",
		Arguments:   []string{"@user", "command"},
		IsAdminCmd:  true,
	})
	g.Register("maintenance", &dispatch.Descriptor{
		Command:     maintenanceCommand{},
		Description: "Toggle maintenance mode",
		IsAdminCmd:  true,
	})
	g.Register("debug", &dispatch.Descriptor{
		Command:     debugCommand{},
		Description: "Toggle debug logging (maintenance mode only)",
		IsAdminCmd:  true,
	})
	g.Register("join", &dispatch.Descriptor{
		Command:     joinChannelCommand{},
		Description: "Join a channel",
		Arguments:   []string{"channel_name"},
		IsAdminCmd:  true,
	})
	g.Register("makectf", &dispatch.Descriptor{
		Command:     makeCTFCommand{},
		Description: "Turn the current channel into a CTF channel by setting the purpose. Requires reload to take effect",
		Arguments:   []string{"ctf_name"},
		IsAdminCmd:  true,
	})
	return g
}
