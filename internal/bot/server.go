package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/ernie/ctfbot/internal/chat"
	"github.com/ernie/ctfbot/internal/config"
	"github.com/ernie/ctfbot/internal/dispatch"
	"github.com/ernie/ctfbot/internal/docstore"
	"github.com/ernie/ctfbot/internal/handlers"
	"github.com/ernie/ctfbot/internal/storage"
)

const commandSubject = "ctfbot.commands"

// commandEnvelope wraps a command event for the bus. The id ties log
// lines from receipt and execution together.
type commandEnvelope struct {
	ID    string            `json:"id"`
	Event chat.CommandEvent `json:"event"`
}

// Server owns the full bot runtime: the event connection, the command
// bus and its workers, and the document store.
type Server struct {
	cfg      *config.Config
	client   *chat.Client
	store    docstore.Store
	storage  *storage.Coordinator
	registry *dispatch.Registry
}

// New assembles a server from its configuration. The document store is
// opened here so configuration mistakes surface before connecting.
func New(cfg *config.Config) (*Server, error) {
	store, err := openStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	options, err := config.LoadOptions(cfg.OptionsPath)
	if err != nil {
		store.Close()
		return nil, err
	}

	client := chat.NewClient(cfg.Chat.APIURL, cfg.Chat.BotToken, cfg.Chat.AppToken)
	coordinator := storage.NewCoordinator(store)

	registry := dispatch.NewRegistry(client, coordinator, options)
	registry.AddGroup(handlers.BotGroup())
	registry.AddGroup(handlers.AdminGroup())
	registry.AddGroup(handlers.CTFGroup())

	return &Server{
		cfg:      cfg,
		client:   client,
		store:    store,
		storage:  coordinator,
		registry: registry,
	}, nil
}

func openStore(cfg config.StoreConfig) (docstore.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return docstore.NewSQLite(cfg.Path)
	case "opensearch":
		return docstore.NewOpenSearch(docstore.OpenSearchConfig{
			URL:                cfg.URL,
			Username:           cfg.Username,
			Password:           cfg.Password,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		})
	case "memory":
		return docstore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Run connects to the chat platform, rebuilds state from channel
// metadata, and serves commands until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.store.Close()

	if err := s.client.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to chat platform: %w", err)
	}
	log.Printf("Connected as %s", s.client.BotUserID())

	if err := s.storage.Reconcile(ctx, s.client); err != nil {
		return fmt.Errorf("rebuilding state from channels: %w", err)
	}

	ns, err := natsserver.NewServer(&natsserver.Options{
		Host:   "127.0.0.1",
		Port:   s.cfg.Bus.Port,
		NoSigs: true,
	})
	if err != nil {
		return fmt.Errorf("creating command bus: %w", err)
	}
	go ns.Start()
	defer ns.Shutdown()
	if !ns.ReadyForConnections(10 * time.Second) {
		return fmt.Errorf("command bus did not start on port %d", s.cfg.Bus.Port)
	}

	nc, err := nats.Connect(ns.ClientURL())
	if err != nil {
		return fmt.Errorf("connecting to command bus: %w", err)
	}
	defer nc.Close()

	inbox := make(chan *nats.Msg, 64)
	sub, err := nc.ChanSubscribe(commandSubject, inbox)
	if err != nil {
		return fmt.Errorf("subscribing to command bus: %w", err)
	}
	defer sub.Unsubscribe()

	var workers sync.WaitGroup
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer func() {
		stopWorkers()
		workers.Wait()
	}()
	for i := 0; i < s.cfg.Bus.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			s.worker(workerCtx, inbox)
		}()
	}

	socket := chat.NewSocket(s.client, func(event chat.CommandEvent) {
		s.publish(nc, event)
	})
	return socket.Run(ctx)
}

// publish hands a command event to the bus. Events are acknowledged to
// the platform before they get here, so a publish failure can only be
// logged.
func (s *Server) publish(nc *nats.Conn, event chat.CommandEvent) {
	envelope := commandEnvelope{ID: uuid.NewString(), Event: event}
	data, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("Dropping command event: %v", err)
		return
	}
	if err := nc.Publish(commandSubject, data); err != nil {
		log.Printf("Dropping command event %s: %v", envelope.ID, err)
	}
}

// worker executes commands from the bus one at a time.
func (s *Server) worker(ctx context.Context, inbox <-chan *nats.Msg) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-inbox:
			if !ok {
				return
			}
			var envelope commandEnvelope
			if err := json.Unmarshal(msg.Data, &envelope); err != nil {
				log.Printf("Discarding malformed bus message: %v", err)
				continue
			}
			event := envelope.Event
			group := strings.TrimPrefix(event.Command, "/")
			s.registry.Process(ctx, group, event.Text, event.Timestamp(), event.ChannelID, event.UserID)
		}
	}
}
