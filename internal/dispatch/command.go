package dispatch

import (
	"context"

	"github.com/ernie/ctfbot/internal/chat"
	"github.com/ernie/ctfbot/internal/config"
	"github.com/ernie/ctfbot/internal/storage"
)

// Invocation carries everything a command needs to run: the shared
// services plus the per-message arguments and caller identity.
type Invocation struct {
	Transport chat.Transport
	Storage   *storage.Coordinator
	Options   *config.Options
	Registry  *Registry

	Args      []string
	Timestamp string
	ChannelID string
	UserID    string
	IsAdmin   bool
}

// Reply posts text to the invoking channel, threaded onto the
// triggering message, falling back to a direct message to the caller.
func (inv *Invocation) Reply(ctx context.Context, text string) error {
	return inv.Transport.PostMessage(ctx, inv.ChannelID, text, chat.PostOptions{
		ThreadTS:       inv.Timestamp,
		FallbackUserID: inv.UserID,
	})
}

// Command is one executable bot command.
type Command interface {
	Execute(ctx context.Context, inv *Invocation) error
}

// Descriptor binds a command implementation to its user-facing shape:
// description, declared arguments and the admin restriction.
type Descriptor struct {
	Command     Command
	Description string
	Arguments   []string
	OptArgs     []string
	IsAdminCmd  bool
}

// Group is a named set of commands sharing one slash-command prefix.
type Group struct {
	name     string
	order    []string
	commands map[string]*Descriptor
	aliases  map[string]string
}

// NewGroup creates an empty command group.
func NewGroup(name string) *Group {
	return &Group{
		name:     name,
		commands: make(map[string]*Descriptor),
		aliases:  make(map[string]string),
	}
}

// Name returns the group's slash-command name.
func (g *Group) Name() string {
	return g.name
}

// Register adds a command under its canonical name. Registration
// order is kept for help output.
func (g *Group) Register(name string, d *Descriptor) {
	if _, exists := g.commands[name]; !exists {
		g.order = append(g.order, name)
	}
	g.commands[name] = d
}

// Alias maps an alternative spelling onto a canonical command name.
func (g *Group) Alias(alias, canonical string) {
	g.aliases[alias] = canonical
}

// resolve returns the descriptor for a command or alias.
func (g *Group) resolve(name string) (*Descriptor, bool) {
	if canonical, ok := g.aliases[name]; ok {
		name = canonical
	}
	d, ok := g.commands[name]
	return d, ok
}

// commandUsage renders the usage line for one command.
func (g *Group) commandUsage(name string, d *Descriptor) string {
	msg := "Usage: `/" + g.name + " " + name
	for _, arg := range d.Arguments {
		msg += " <" + arg + ">"
	}
	for _, arg := range d.OptArgs {
		msg += " [" + arg + "]"
	}
	if d.Description != "" {
		msg += "\t(" + d.Description + ")"
	}
	return msg + "`"
}

// usage renders the overview of every command in the group, in
// registration order.
func (g *Group) usage() string {
	msg := "```"
	for _, name := range g.order {
		d := g.commands[name]
		msg += "/" + g.name + " " + name
		for _, arg := range d.Arguments {
			msg += " <" + arg + ">"
		}
		for _, arg := range d.OptArgs {
			msg += " [" + arg + "]"
		}
		msg += "\n"
	}
	return msg + "```\n"
}
