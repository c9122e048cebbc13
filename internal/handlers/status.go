package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ernie/ctfbot/internal/chat"
	"github.com/ernie/ctfbot/internal/dispatch"
	"github.com/ernie/ctfbot/internal/domain"
)

// relativeAge renders how long ago a unix timestamp was, in coarse
// human units. Anything under an hour collapses into one bucket.
func relativeAge(finishedOn int64, now time.Time) string {
	timespan := now.Unix() - finishedOn
	if timespan < 3600 {
		return "less than an hour"
	}

	units := []struct {
		name    string
		seconds int64
	}{
		{"year", 365 * 24 * 3600},
		{"month", 30 * 24 * 3600},
		{"day", 24 * 3600},
		{"hour", 3600},
	}

	var parts []string
	for _, unit := range units {
		count := timespan / unit.seconds
		timespan -= count * unit.seconds
		if count == 0 {
			continue
		}
		name := unit.name
		if count > 1 {
			name += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", count, name))
	}
	return strings.Join(parts, ", ")
}

// buildShortStatus renders the one-line-per-CTF overview, running CTFs
// first.
func buildShortStatus(ctfs []*domain.CTF, now time.Time) string {
	ctfLine := func(ctf *domain.CTF, append string) string {
		return fmt.Sprintf("*#%s : _%s_ [%d solved / %d total] %s*\n",
			ctf.Name, ctf.LongName, ctf.SolvedCount(), len(ctf.Challenges), append)
	}

	var running, finished string
	for _, ctf := range ctfs {
		if ctf.Finished {
			finishInfo := "(finished)"
			if ctf.FinishedOn != 0 {
				finishInfo = fmt.Sprintf("(finished %s ago)", relativeAge(ctf.FinishedOn, now))
			}
			finished += ctfLine(ctf, finishInfo)
		} else {
			running += ctfLine(ctf, "")
		}
	}

	running = strings.TrimSpace(running)
	finished = strings.TrimSpace(finished)

	var sections []string
	if running != "" {
		sections = append(sections, "*Current CTFs:*\n"+running)
	}
	if finished != "" {
		sections = append(sections, "*Finished CTFs:*\n"+finished)
	}
	if len(sections) == 0 {
		return "*There are currently no running CTFs*"
	}
	return strings.Join(sections, "\n\n")
}

// buildVerboseStatus renders the per-challenge listing, optionally
// filtered to one category.
func buildVerboseStatus(ctx context.Context, transport chat.Transport, ctfs []*domain.CTF, checkForFinish bool, category string, now time.Time) (string, error) {
	memberList, err := transport.Members(ctx)
	if err != nil {
		return "", dispatch.Errorf("Status failed. Could not refresh member list...")
	}
	names := make(map[string]string, len(memberList))
	for i := range memberList {
		names[memberList[i].ID] = memberList[i].DisplayName()
	}

	var response string
	for _, ctf := range ctfs {
		var solved, unsolved []domain.Challenge
		for _, challenge := range ctf.Challenges {
			if category != "" && challenge.Category != category {
				continue
			}
			if challenge.IsSolved {
				solved = append(solved, challenge)
			} else {
				unsolved = append(unsolved, challenge)
			}
		}
		sort.SliceStable(solved, func(i, j int) bool {
			return solved[i].SolveDate < solved[j].SolveDate
		})

		// Hide CTFs without a matching challenge when filtering.
		if category != "" && len(solved) == 0 && len(unsolved) == 0 {
			continue
		}

		finishedTag := ""
		if ctf.Finished {
			finishedTag = "(finished) "
		}
		categoryTag := ""
		if category != "" {
			categoryTag = "[" + category + "] "
		}
		response += fmt.Sprintf("*============= #%s %s%s=============*\n", ctf.Name, finishedTag, categoryTag)

		if ctf.Finished && ctf.FinishedOn != 0 {
			response += fmt.Sprintf("* > Finished %s ago*\n", relativeAge(ctf.FinishedOn, now))
		}

		if checkForFinish && ctf.Finished && len(solved) == 0 {
			response += "*[ No challenges solved ]*\n"
			continue
		}
		if len(solved) == 0 && len(unsolved) == 0 {
			response += "*[ No challenges available yet ]*\n"
			continue
		}

		if len(solved) > 0 {
			response += "* > Solved*\n"
		}
		for _, challenge := range solved {
			categoryInfo := ""
			if challenge.Category != "" {
				categoryInfo = " (" + challenge.Category + ")"
			}
			response += fmt.Sprintf(":tada: *%s*%s (Solved by : %s)\n",
				challenge.Name, categoryInfo, transliterate(strings.Join(challenge.Solver, ", ")))
		}

		if !checkForFinish || !ctf.Finished {
			if len(unsolved) > 0 {
				response += "* > Unsolved*\n"
			} else {
				response += "\n"
			}
			for _, challenge := range unsolved {
				active := 0
				for playerID := range challenge.Players {
					if _, ok := names[playerID]; ok {
						active++
					}
				}
				tagInfo := ""
				if len(challenge.Tags) > 0 {
					tagInfo = "[" + strings.Join(challenge.Tags, ", ") + "]"
				}
				categoryInfo := ""
				if challenge.Category != "" {
					categoryInfo = "(" + challenge.Category + ")"
				}
				response += fmt.Sprintf("[%d active] *%s* %s: %s\n", active, challenge.Name, tagInfo, categoryInfo)
			}
		}
	}

	response = strings.TrimSpace(response)
	if response == "" {
		return "*There are currently no running CTFs*", nil
	}
	return response, nil
}

// statusCommand reports the state of running CTFs. Inside a CTF
// channel the report covers only that CTF, always verbosely.
type statusCommand struct{}

func (statusCommand) Execute(ctx context.Context, inv *dispatch.Invocation) error {
	verbose := len(inv.Args) > 0 && inv.Args[0] == "-v"

	category := ""
	if verbose && len(inv.Args) > 1 {
		category = inv.Args[1]
	} else if !verbose && len(inv.Args) > 0 {
		category = inv.Args[0]
	}

	current, err := inv.Storage.GetCTF(ctx, inv.ChannelID, "")
	if err != nil {
		return err
	}

	var ctfs []*domain.CTF
	checkForFinish := true
	if current != nil {
		ctfs = []*domain.CTF{current}
		checkForFinish = false
		verbose = true
	} else {
		if ctfs, err = inv.Storage.GetCTFs(ctx); err != nil {
			return err
		}
	}

	var response string
	if verbose {
		if response, err = buildVerboseStatus(ctx, inv.Transport, ctfs, checkForFinish, category, time.Now()); err != nil {
			return err
		}
	} else {
		response = buildShortStatus(ctfs, time.Now())
	}
	return inv.Reply(ctx, response)
}
