package handlers

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/ernie/ctfbot/internal/chat"
	"github.com/ernie/ctfbot/internal/dispatch"
	"github.com/ernie/ctfbot/internal/domain"
)

// updateCTFPurpose rewrites the CTF channel purpose from the current
// domain state.
func updateCTFPurpose(ctx context.Context, transport chat.Transport, ctf *domain.CTF) error {
	return transport.SetPurpose(ctx, ctf.ChannelID, domain.NewCTFPurpose(ctf).Encode())
}

// addCTFCommand creates the channel for a new CTF and starts tracking
// it.
type addCTFCommand struct{}

func (addCTFCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	name := strings.ToLower(inv.Args[0])
	longName := strings.Join(inv.Args[1:], " ")

	// A pasted link means the long name got mangled by the platform.
	if strings.Contains(longName, "<http") {
		return dispatch.Errorf("Add CTF failed: Long name interpreted as link, try avoid using `.` in it.")
	}
	if len(name) > maxCTFNameLength {
		return dispatch.Errorf("Add CTF failed: CTF name must be <= %d characters.", maxCTFNameLength)
	}
	if !isValidName(name) {
		return dispatch.Errorf("Add CTF failed: Invalid characters for CTF name found.")
	}

	channel, err := inv.Transport.CreateChannel(ctx, name, inv.Options.PrivateCTFs())
	if err != nil {
		return dispatch.Errorf("\"%s\" channel creation failed:\nError : %s", name, chat.APIErrorReason(err))
	}

	ctf := domain.NewCTF(channel.ID, name, longName)
	if err := inv.Storage.AddCTF(ctx, ctf); err != nil {
		return err
	}
	if err := updateCTFPurpose(ctx, inv.Transport, ctf); err != nil {
		return err
	}

	if err := inv.Transport.InviteUsers(ctx, []string{inv.UserID}, channel.ID); err != nil {
		log.Printf("Inviting creator into %s failed: %v", channel.Name, err)
	}
	for _, autoInvite := range inv.Options.AutoInvite() {
		if err := inv.Transport.InviteUsers(ctx, []string{autoInvite}, channel.ID); err != nil {
			log.Printf("Auto-inviting %s into %s failed: %v", autoInvite, channel.Name, err)
		}
	}

	return inv.Reply(ctx, "Created channel #"+channel.Name)
}

// renameCTFCommand renames a CTF and cascades the rename to every
// challenge channel. Nothing is renamed unless every resulting channel
// name fits.
type renameCTFCommand struct{}

func (renameCTFCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	oldName := strings.ToLower(inv.Args[0])
	newName := strings.ToLower(inv.Args[1])

	ctf, err := inv.Storage.GetCTF(ctx, "", oldName)
	if err != nil {
		return err
	}
	if ctf == nil {
		return dispatch.Errorf("Rename CTF failed: CTF '%s' not found.", oldName)
	}

	// Pre-check every challenge before touching anything.
	for _, challenge := range ctf.Challenges {
		if len(challenge.Name)+len(newName) > maxChannelNameLength-1 {
			return dispatch.Errorf("Rename CTF failed: Challenge %s would break channel name length restriction.", challenge.Name)
		}
	}
	if len(newName) > maxCTFNameLength {
		return dispatch.Errorf("Rename CTF failed: CTF name must be <= %d characters.", maxCTFNameLength)
	}
	if !isValidName(newName) {
		return dispatch.Errorf("Rename CTF failed: Invalid characters for CTF name found.")
	}

	if err := inv.Transport.PostMessage(ctx, ctf.ChannelID, "Renaming the CTF might take some time depending on active channels...", chat.PostOptions{}); err != nil {
		log.Printf("Posting rename notice failed: %v", err)
	}

	if err := inv.Transport.RenameChannel(ctx, ctf.ChannelID, newName); err != nil {
		return dispatch.Errorf("\"%s\" channel rename failed:\nError : %s", oldName, chat.APIErrorReason(err))
	}

	ctf.Name = newName
	if err := updateCTFPurpose(ctx, inv.Transport, ctf); err != nil {
		return err
	}
	if err := inv.Storage.UpdateCTFName(ctx, ctf.ChannelID, newName); err != nil {
		return err
	}

	// Re-run the challenge rename for every challenge so channel names
	// pick up the new prefix.
	for _, challenge := range ctf.Challenges {
		challengeInv := *inv
		challengeInv.Args = []string{challenge.Name, challenge.Name}
		challengeInv.ChannelID = ctf.ChannelID
		if err := (renameChallengeCommand{}).Execute(ctx, &challengeInv); err != nil {
			return err
		}
	}

	return inv.Transport.PostMessage(ctx, ctf.ChannelID,
		fmt.Sprintf("CTF `%s` renamed to `%s` (#%s)", oldName, newName, newName), chat.PostOptions{})
}

// archiveCTFCommand archives every challenge channel of the CTF and
// stops tracking it.
type archiveCTFCommand struct{}

func (archiveCTFCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	ctf, err := inv.Storage.GetCTF(ctx, inv.ChannelID, "")
	if err != nil {
		return err
	}
	if ctf == nil || ctf.ChannelID != inv.ChannelID {
		return dispatch.Errorf("Archive CTF failed: You are not in a CTF channel.")
	}

	challenges, err := inv.Storage.GetChallenges(ctx, inv.ChannelID)
	if err != nil {
		return err
	}

	message := "Archived the following channels :\n"
	for _, challenge := range challenges {
		message += fmt.Sprintf("- #%s-%s\n", ctf.Name, challenge.Name)
		if err := inv.Transport.ArchiveChannel(ctx, challenge.ChannelID); err != nil {
			log.Printf("Archiving channel %s failed: %v", challenge.ChannelID, err)
		}
		if err := inv.Storage.RemoveChallenge(ctx, challenge.ChannelID, ctf.ChannelID); err != nil {
			return err
		}
	}

	if err := cleanupReminders(ctx, inv, ctf); err != nil {
		log.Printf("Cleaning up reminders failed: %v", err)
	}

	// Stop tracking the main CTF channel.
	if err := inv.Transport.SetPurpose(ctx, inv.ChannelID, ""); err != nil {
		return err
	}
	if err := inv.Storage.RemoveCTF(ctx, ctf.ChannelID); err != nil {
		return err
	}

	if err := inv.Reply(ctx, message); err != nil {
		return err
	}

	if inv.Options.ArchiveEverything() {
		return inv.Transport.ArchiveChannel(ctx, inv.ChannelID)
	}
	return nil
}

// endCTFCommand marks the CTF as finished without archiving anything.
type endCTFCommand struct{}

func (endCTFCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	ctf, err := inv.Storage.GetCTF(ctx, inv.ChannelID, "")
	if err != nil {
		return err
	}
	if ctf == nil {
		return dispatch.Errorf("End CTF failed: You are not in a CTF channel.")
	}
	if ctf.Finished {
		return dispatch.Errorf("CTF is already marked as finished...")
	}

	ctf, err = inv.Storage.UpdateCTF(ctx, ctf.ChannelID, func(ctf *domain.CTF) {
		ctf.Finished = true
		ctf.FinishedOn = time.Now().Unix()
	})
	if err != nil || ctf == nil {
		return err
	}

	if err := updateCTFPurpose(ctx, inv.Transport, ctf); err != nil {
		return err
	}
	scheduleArchiveReminder(ctx, inv, ctf)
	return inv.Reply(ctx, "CTF *"+ctf.Name+"* finished...")
}

// scheduleArchiveReminder reminds every admin to archive the CTF after
// the configured delay.
func scheduleArchiveReminder(ctx context.Context, inv *dispatch.Invocation, ctf *domain.CTF) {
	offset := inv.Options.ArchiveCTFReminderOffset()
	if offset == 0 {
		return
	}
	msg := fmt.Sprintf("%s%s (#%s) should be archived.", reminderPrefix(ctf), ctf.LongName, ctf.Name)
	for _, admin := range inv.Options.AdminUsers() {
		if err := inv.Transport.AddReminder(ctx, admin, msg, offset); err != nil {
			log.Printf("Scheduling archive reminder for %s failed: %v", admin, err)
		}
	}
}

// reloadCommand rebuilds the stored state from channel metadata.
type reloadCommand struct{}

func (reloadCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	if err := inv.Reply(ctx, "Updating CTFs and challenges..."); err != nil {
		return err
	}
	if err := inv.Storage.Reconcile(ctx, inv.Transport); err != nil {
		return err
	}
	return inv.Reply(ctx, "Update finished...")
}

// addCredsCommand stores the shared credentials for the current CTF.
type addCredsCommand struct{}

func (addCredsCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	current, err := inv.Storage.GetCTF(ctx, inv.ChannelID, "")
	if err != nil {
		return err
	}
	if current == nil {
		return dispatch.Errorf("Add Creds failed: You are not in a CTF channel.")
	}

	ctf, err := inv.Storage.UpdateCTF(ctx, current.ChannelID, func(ctf *domain.CTF) {
		ctf.CredUser = inv.Args[0]
		ctf.CredPW = inv.Args[1]
	})
	if err != nil || ctf == nil {
		return err
	}

	if err := updateCTFPurpose(ctx, inv.Transport, ctf); err != nil {
		return err
	}
	if len(inv.Args) > 2 {
		if err := inv.Transport.SetTopic(ctx, inv.ChannelID, inv.Args[2]); err != nil {
			return err
		}
	}
	return inv.Reply(ctx, "Credentials for CTF *"+ctf.Name+"* updated...")
}

// showCredsCommand posts the stored credentials for the current CTF.
type showCredsCommand struct{}

func (showCredsCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	ctf, err := inv.Storage.GetCTF(ctx, inv.ChannelID, "")
	if err != nil {
		return err
	}
	if ctf == nil {
		return dispatch.Errorf("Show creds failed: You are not in a CTF channel.")
	}

	if ctf.CredUser == "" || ctf.CredPW == "" {
		return inv.Reply(ctx, "No credentials provided for CTF *"+ctf.Name+"*.")
	}

	message := "Credentials for CTF *" + ctf.Name + "*\n"
	message += "```"
	message += "Username : " + ctf.CredUser + "\n"
	message += "Password : " + ctf.CredPW + "\n"
	message += "```"
	return inv.Reply(ctx, message)
}

// signupCommand lets a user invite themselves into a CTF and all of
// its challenge channels.
type signupCommand struct{}

func (signupCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	if len(inv.Args) == 0 {
		return dispatch.Errorf("No CTF by that name")
	}

	ctf, err := inv.Storage.GetCTF(ctx, "", inv.Args[0])
	if err != nil {
		return err
	}
	if !inv.Options.AllowSignup() || ctf == nil {
		return dispatch.Errorf("No CTF by that name")
	}
	if ctf.Finished {
		return dispatch.Errorf("That CTF has already concluded")
	}

	inviteMissing(ctx, inv.Transport, []string{inv.UserID}, ctf.ChannelID)
	challenges, err := inv.Storage.GetChallenges(ctx, ctf.ChannelID)
	if err != nil {
		return err
	}
	for _, challenge := range challenges {
		inviteMissing(ctx, inv.Transport, []string{inv.UserID}, challenge.ChannelID)
	}
	return nil
}

// populateCommand invites a list of members into the CTF and all of
// its challenge channels.
type populateCommand struct{}

func (populateCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	ctf, err := inv.Storage.GetCTF(ctx, inv.ChannelID, "")
	if err != nil {
		return err
	}
	if ctf == nil {
		return dispatch.Errorf("You must be in a CTF or Challenge channel to use this command.")
	}

	var members []string
	for _, raw := range inv.Args {
		members = append(members, stripMention(raw))
	}

	inviteMissing(ctx, inv.Transport, members, ctf.ChannelID)
	challenges, err := inv.Storage.GetChallenges(ctx, ctf.ChannelID)
	if err != nil {
		return err
	}
	for _, challenge := range challenges {
		inviteMissing(ctx, inv.Transport, members, challenge.ChannelID)
	}
	return nil
}

// inviteMissing invites whoever from members is not yet in the
// channel. Invitation failures don't matter here.
func inviteMissing(ctx context.Context, transport chat.Transport, members []string, channelID string) {
	current, err := transport.ChannelMembers(ctx, channelID)
	if err != nil {
		log.Printf("Listing members of %s failed: %v", channelID, err)
		return
	}
	missing := subtract(members, current)
	if len(missing) == 0 {
		return
	}
	if err := transport.InviteUsers(ctx, missing, channelID); err != nil {
		log.Printf("Inviting into %s failed: %v", channelID, err)
	}
}

type rollCommand struct{}

func (rollCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	val := rand.Intn(101)
	name := displayName(ctx, inv.Transport, inv.UserID)
	return inv.Transport.PostMessage(ctx, inv.ChannelID,
		fmt.Sprintf("*%s* rolled the dice... *%d*", name, val), chat.PostOptions{})
}

// CTFGroup assembles the CTF coordination commands.
func CTFGroup() *dispatch.Group {
	g := dispatch.NewGroup("ctf")
	g.Register("addctf", &dispatch.Descriptor{
		Command:     addCTFCommand{},
		Description: "Adds a new ctf",
		Arguments:   []string{"ctf_name", "long_name"},
	})
	g.Register("addchallenge", &dispatch.Descriptor{
		Command:     addChallengeCommand{},
		Description: "Adds a new challenge for current ctf",
		Arguments:   []string{"challenge_name"},
		OptArgs:     []string{"challenge_category"},
	})
	g.Register("workon", &dispatch.Descriptor{
		Command:     workonCommand{},
		Description: "Show that you're working on a challenge",
		OptArgs:     []string{"challenge_name"},
	})
	g.Register("status", &dispatch.Descriptor{
		Command:     statusCommand{},
		Description: "Show the status for all ongoing ctf's",
		OptArgs:     []string{"category"},
	})
	g.Register("signup", &dispatch.Descriptor{
		Command:     signupCommand{},
		Description: "Join a CTF",
		OptArgs:     []string{"ctf_name"},
	})
	g.Register("solve", &dispatch.Descriptor{
		Command:     solveCommand{},
		Description: "Mark a challenge as solved",
		OptArgs:     []string{"challenge_name", "support_member"},
	})
	g.Register("renamechallenge", &dispatch.Descriptor{
		Command:     renameChallengeCommand{},
		Description: "Renames a challenge",
		Arguments:   []string{"old_challenge_name", "new_challenge_name"},
	})
	g.Register("renamectf", &dispatch.Descriptor{
		Command:     renameCTFCommand{},
		Description: "Renames a ctf",
		Arguments:   []string{"old_ctf_name", "new_ctf_name"},
	})
	g.Register("reload", &dispatch.Descriptor{
		Command:     reloadCommand{},
		Description: "Reload ctf information from the channel metadata",
		IsAdminCmd:  true,
	})
	g.Register("archivectf", &dispatch.Descriptor{
		Command:     archiveCTFCommand{},
		Description: "Archive the challenges of a ctf",
		OptArgs:     []string{"nopost"},
		IsAdminCmd:  true,
	})
	g.Register("endctf", &dispatch.Descriptor{
		Command:     endCTFCommand{},
		Description: "Mark a ctf as ended, but not archive it directly",
		IsAdminCmd:  true,
	})
	g.Register("addcreds", &dispatch.Descriptor{
		Command:     addCredsCommand{},
		Description: "Add credentials for current ctf",
		Arguments:   []string{"ctf_user", "ctf_pw"},
		OptArgs:     []string{"ctf_url"},
	})
	g.Register("showcreds", &dispatch.Descriptor{
		Command:     showCredsCommand{},
		Description: "Show credentials for current ctf",
	})
	g.Register("tag", &dispatch.Descriptor{
		Command:     addTagCommand{},
		Description: "Add tag(s) to a challenge",
		Arguments:   []string{"challenge_tag/name"},
		OptArgs:     []string{"[..challenge_tag(s)]"},
	})
	g.Register("unsolve", &dispatch.Descriptor{
		Command:     unsolveCommand{},
		Description: "Remove solve of a challenge",
		OptArgs:     []string{"challenge_name"},
	})
	g.Register("removechallenge", &dispatch.Descriptor{
		Command:     removeChallengeCommand{},
		Description: "Remove challenge",
		OptArgs:     []string{"challenge_name"},
		IsAdminCmd:  true,
	})
	g.Register("removetag", &dispatch.Descriptor{
		Command:     removeTagCommand{},
		Description: "Remove tag(s) from a challenge",
		Arguments:   []string{"challenge_tag/name"},
		OptArgs:     []string{"[..challenge_tag(s)]"},
	})
	g.Register("populate", &dispatch.Descriptor{
		Command:     populateCommand{},
		Description: "Invite all non-present members of the CTF challenge into the challenge channel",
	})
	g.Register("roll", &dispatch.Descriptor{
		Command:     rollCommand{},
		Description: "Roll the dice",
	})

	g.Alias("finishctf", "endctf")
	g.Alias("addchall", "addchallenge")
	g.Alias("add", "addchallenge")
	g.Alias("archive", "archivectf")
	g.Alias("gather", "populate")
	g.Alias("summon", "populate")
	return g
}
