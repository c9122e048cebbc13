package dispatch

import (
	"context"
	"log"
	"strings"

	"github.com/ernie/ctfbot/internal/chat"
	"github.com/ernie/ctfbot/internal/config"
	"github.com/ernie/ctfbot/internal/storage"
)

// Registry owns the command groups and runs the dispatch pipeline:
// group resolution, tokenizing, alias resolution, permission and
// arity checks, execution, and the error boundary. No failure inside
// a command ever escapes the registry.
type Registry struct {
	transport chat.Transport
	storage   *storage.Coordinator
	options   *config.Options
	groups    map[string]*Group
	order     []string
}

// NewRegistry creates a registry over the shared services.
func NewRegistry(transport chat.Transport, storage *storage.Coordinator, options *config.Options) *Registry {
	return &Registry{
		transport: transport,
		storage:   storage,
		options:   options,
		groups:    make(map[string]*Group),
	}
}

// AddGroup registers a command group under its name.
func (r *Registry) AddGroup(g *Group) {
	if _, exists := r.groups[g.name]; !exists {
		r.order = append(r.order, g.name)
	}
	r.groups[g.name] = g
}

// Process handles one inbound slash command: group name plus the raw
// argument text the user typed.
func (r *Registry) Process(ctx context.Context, group, text, timestamp, channelID, userID string) {
	isAdmin := r.options.IsAdmin(userID)

	if r.options.DebugLogging() {
		log.Printf("Received command: /%s %s (channel=%s user=%s)", group, text, channelID, userID)
	}

	if r.options.MaintenanceMode() && !isAdmin {
		r.post(ctx, channelID, timestamp, userID, "The bot is in maintenance, please try again later.")
		return
	}

	g, ok := r.groups[group]
	if !ok {
		r.post(ctx, channelID, timestamp, userID, "Unknown command group: "+group)
		return
	}

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		r.post(ctx, channelID, timestamp, userID, g.usage())
		return
	}

	name := strings.ToLower(tokens[0])
	d, ok := g.resolve(name)
	if !ok {
		r.post(ctx, channelID, timestamp, userID, g.usage())
		return
	}

	r.run(ctx, g, name, d, tokens[1:], timestamp, channelID, userID, isAdmin)
}

// ProcessCommand dispatches a command by bare name, searching every
// group. The admin redirect command uses this to re-enter the pipeline
// as another user while keeping the original caller's privileges.
func (r *Registry) ProcessCommand(ctx context.Context, name string, args []string, timestamp, channelID, userID string, isAdmin bool) {
	name = strings.ToLower(name)
	for _, groupName := range r.order {
		g := r.groups[groupName]
		if d, ok := g.resolve(name); ok {
			r.run(ctx, g, name, d, args, timestamp, channelID, userID, isAdmin)
			return
		}
	}
	r.post(ctx, channelID, timestamp, userID, "Unknown command: "+name)
}

// run applies the permission and arity gates, then executes the
// command behind the error boundary.
func (r *Registry) run(ctx context.Context, g *Group, name string, d *Descriptor, args []string, timestamp, channelID, userID string, isAdmin bool) {
	if d.IsAdminCmd && !isAdmin {
		r.post(ctx, channelID, timestamp, userID, "Permission denied. You need admin rights to use this command.")
		return
	}
	if len(args) < len(d.Arguments) {
		r.post(ctx, channelID, timestamp, userID, g.commandUsage(name, d))
		return
	}

	inv := &Invocation{
		Transport: r.transport,
		Storage:   r.storage,
		Options:   r.options,
		Registry:  r,
		Args:      args,
		Timestamp: timestamp,
		ChannelID: channelID,
		UserID:    userID,
		IsAdmin:   isAdmin,
	}

	err := r.execute(ctx, d.Command, inv)
	if err == nil {
		return
	}
	if msg := UserMessage(err); msg != "" {
		r.post(ctx, channelID, timestamp, userID, msg)
		return
	}
	log.Printf("Command /%s %s failed: %v", g.name, name, err)
	r.post(ctx, channelID, timestamp, userID, "An error occurred while processing your command.")
}

// execute runs the command, converting a panic into an error so one
// misbehaving command cannot take the bot down.
func (r *Registry) execute(ctx context.Context, cmd Command, inv *Invocation) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = Errorf("An error occurred while processing your command.")
			log.Printf("Command panicked: %v", rec)
		}
	}()
	return cmd.Execute(ctx, inv)
}

func (r *Registry) post(ctx context.Context, channelID, timestamp, userID, text string) {
	err := r.transport.PostMessage(ctx, channelID, text, chat.PostOptions{
		ThreadTS:       timestamp,
		FallbackUserID: userID,
	})
	if err != nil {
		log.Printf("Posting dispatch reply to %s failed: %v", channelID, err)
	}
}
