package handlers

import (
	"context"
	"regexp"
	"strings"

	"github.com/ernie/ctfbot/internal/chat"
	"github.com/ernie/ctfbot/internal/dispatch"
	"github.com/ernie/ctfbot/internal/domain"
)

const (
	maxChannelNameLength = 80
	maxCTFNameLength     = 40
)

var validName = regexp.MustCompile(`^[\w\-_]+$`)

// isValidName reports whether a name is safe to use in a channel name.
func isValidName(name string) bool {
	return validName.MatchString(name)
}

var confusables = map[rune]rune{
	'a': 'ɑ',
	'A': 'А',
	'e': 'е',
	'E': 'Е',
	'i': 'і',
	'I': 'І',
	'o': 'о',
	'O': 'О',
	'u': 'υ',
	'U': 'υ',
}

// transliterate swaps vowels for unicode confusables, so posting a
// member's name back into a channel doesn't ping them again.
func transliterate(s string) string {
	return strings.Map(func(r rune) rune {
		if repl, ok := confusables[r]; ok {
			return repl
		}
		return r
	}, s)
}

// parseUserID strips the <@...> mention notation and uppercases the id.
func parseUserID(raw string) string {
	if strings.HasPrefix(raw, "<@") && strings.HasSuffix(raw, ">") {
		raw = raw[2 : len(raw)-1]
	}
	return strings.ToUpper(raw)
}

// resolveMember looks up a member by raw user id or @-mention.
func resolveMember(ctx context.Context, transport chat.Transport, raw string) (*chat.Member, error) {
	return transport.Member(ctx, parseUserID(raw))
}

// displayName resolves a user id to its best readable name, falling
// back to the raw id when the lookup fails.
func displayName(ctx context.Context, transport chat.Transport, userID string) string {
	member, err := transport.Member(ctx, userID)
	if err != nil || member == nil {
		return userID
	}
	return member.DisplayName()
}

// reminderPrefix is the search key for a CTF's archive reminders.
func reminderPrefix(ctf *domain.CTF) string {
	return "CTF " + ctf.Name + " - "
}

// cleanupReminders removes any pending archive reminders for the CTF.
// A zero reminder offset means reminder handling is off entirely.
func cleanupReminders(ctx context.Context, inv *dispatch.Invocation, ctf *domain.CTF) error {
	if inv.Options.ArchiveCTFReminderOffset() == 0 {
		return nil
	}
	return inv.Transport.RemoveRemindersByText(ctx, reminderPrefix(ctf))
}

// stripMention removes mention decoration from a raw argument,
// including the optional |display-name suffix.
func stripMention(raw string) string {
	raw = strings.Trim(raw, "<>@")
	raw, _, _ = strings.Cut(raw, "|")
	return raw
}

// subtract returns the members of want that are not in have.
func subtract(want, have []string) []string {
	present := make(map[string]struct{}, len(have))
	for _, id := range have {
		present[id] = struct{}{}
	}
	var missing []string
	for _, id := range want {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
