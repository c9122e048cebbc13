package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/ernie/ctfbot/internal/docstore"
	"github.com/ernie/ctfbot/internal/domain"
)

// ctfIndex is the single index holding one document per CTF, with that
// CTF's challenges nested inside.
const ctfIndex = "ctf"

// ErrBadLookup reports a lookup call that named neither an id nor a
// name. It marks caller misuse, not a missing record.
var ErrBadLookup = errors.New("storage: either a channel id or a name must be given")

// Coordinator mediates between the domain model and the document
// store. Reads that find nothing return nil; only store failures
// surface as errors. Writes replace whole documents, so concurrent
// updates resolve last-write-wins.
type Coordinator struct {
	store docstore.Store
}

// NewCoordinator creates a coordinator over the given document store.
func NewCoordinator(store docstore.Store) *Coordinator {
	return &Coordinator{store: store}
}

func decodeCTF(body json.RawMessage) (*domain.CTF, error) {
	var ctf domain.CTF
	if err := json.Unmarshal(body, &ctf); err != nil {
		return nil, err
	}
	return &ctf, nil
}

// AddCTF writes the full CTF document, keyed by its channel id.
func (c *Coordinator) AddCTF(ctx context.Context, ctf *domain.CTF) error {
	return c.store.Put(ctx, ctfIndex, ctf.ChannelID, ctf)
}

// GetCTF fetches a CTF by channel id, by name, or by both (the id is
// tried first). Returns nil when no CTF matches.
func (c *Coordinator) GetCTF(ctx context.Context, ctfID, ctfName string) (*domain.CTF, error) {
	if ctfID == "" && ctfName == "" {
		return nil, ErrBadLookup
	}

	var body json.RawMessage
	if ctfID != "" {
		raw, found, err := c.store.Get(ctx, ctfIndex, ctfID)
		if err != nil {
			return nil, fmt.Errorf("fetching ctf %q: %w", ctfID, err)
		}
		if found {
			body = raw
		}
	}
	if body == nil && ctfName != "" {
		docs, err := c.store.Search(ctx, ctfIndex, docstore.TermQuery("name", ctfName))
		if err != nil {
			return nil, fmt.Errorf("searching ctf %q: %w", ctfName, err)
		}
		if len(docs) > 0 {
			body = docs[0]
		}
	}
	if body == nil {
		return nil, nil
	}

	ctf, err := decodeCTF(body)
	if err != nil {
		log.Printf("Skipping undecodable ctf document (id=%q name=%q): %v", ctfID, ctfName, err)
		return nil, nil
	}
	return ctf, nil
}

// GetCTFs returns every stored CTF. Undecodable documents are logged
// and skipped rather than failing the listing.
func (c *Coordinator) GetCTFs(ctx context.Context) ([]*domain.CTF, error) {
	docs, err := c.store.Search(ctx, ctfIndex, docstore.MatchAll())
	if err != nil {
		return nil, fmt.Errorf("listing ctfs: %w", err)
	}
	ctfs := make([]*domain.CTF, 0, len(docs))
	for _, body := range docs {
		ctf, err := decodeCTF(body)
		if err != nil {
			log.Printf("Skipping undecodable ctf document: %v", err)
			continue
		}
		ctfs = append(ctfs, ctf)
	}
	return ctfs, nil
}

// RemoveCTF deletes the CTF document. Removing an absent CTF is not an
// error.
func (c *Coordinator) RemoveCTF(ctx context.Context, ctfID string) error {
	return c.store.Delete(ctx, ctfIndex, ctfID)
}

// UpdateCTF loads a CTF, applies update to it and writes it back.
// When the CTF does not exist the update is skipped and (nil, nil) is
// returned.
func (c *Coordinator) UpdateCTF(ctx context.Context, ctfID string, update func(*domain.CTF)) (*domain.CTF, error) {
	ctf, err := c.GetCTF(ctx, ctfID, "")
	if err != nil {
		return nil, err
	}
	if ctf == nil {
		return nil, nil
	}
	update(ctf)
	if err := c.AddCTF(ctx, ctf); err != nil {
		return nil, err
	}
	return ctf, nil
}

// UpdateCTFName renames a CTF in place, then rewrites the full
// document so the stored copy is consistent with the domain shape.
func (c *Coordinator) UpdateCTFName(ctx context.Context, ctfID, name string) error {
	if err := c.store.Update(ctx, ctfIndex, ctfID, map[string]any{"name": name}); err != nil {
		return fmt.Errorf("renaming ctf %q: %w", ctfID, err)
	}
	ctf, err := c.GetCTF(ctx, ctfID, "")
	if err != nil || ctf == nil {
		return err
	}
	return c.AddCTF(ctx, ctf)
}

// AddChallenge attaches (or replaces) a challenge inside its owning
// CTF document. The owning CTF must already exist.
func (c *Coordinator) AddChallenge(ctx context.Context, challenge *domain.Challenge, ctfID string) error {
	ctf, err := c.GetCTF(ctx, ctfID, "")
	if err != nil {
		return err
	}
	if ctf == nil {
		return fmt.Errorf("no ctf with channel id %q", ctfID)
	}
	ctf.AddChallenge(*challenge)
	return c.AddCTF(ctx, ctf)
}

// GetChallenge resolves a challenge by channel id or by name, scoped
// to one CTF when ctfID is given and searched across every CTF
// otherwise. Returns nil when nothing matches.
func (c *Coordinator) GetChallenge(ctx context.Context, challengeID, challengeName, ctfID string) (*domain.Challenge, error) {
	if challengeID == "" && challengeName == "" {
		return nil, ErrBadLookup
	}

	if ctfID != "" {
		ctf, err := c.GetCTF(ctx, ctfID, "")
		if err != nil || ctf == nil {
			return nil, err
		}
		if challengeID != "" {
			return ctf.Challenge(challengeID), nil
		}
		return ctf.ChallengeByName(challengeName), nil
	}

	ctfs, err := c.GetCTFs(ctx)
	if err != nil {
		return nil, err
	}
	for _, ctf := range ctfs {
		var challenge *domain.Challenge
		if challengeID != "" {
			challenge = ctf.Challenge(challengeID)
		} else {
			challenge = ctf.ChallengeByName(challengeName)
		}
		if challenge != nil {
			return challenge, nil
		}
	}
	return nil, nil
}

// GetChallenges returns the challenges of one CTF, or nil when the CTF
// does not exist.
func (c *Coordinator) GetChallenges(ctx context.Context, ctfID string) ([]domain.Challenge, error) {
	ctf, err := c.GetCTF(ctx, ctfID, "")
	if err != nil || ctf == nil {
		return nil, err
	}
	return ctf.Challenges, nil
}

// GetChallengeFromArgsOrChannel resolves the challenge the user means:
// the channel they wrote in wins, and only when that channel is no
// challenge is the first argument tried as a challenge name inside the
// CTF that channel belongs to.
func (c *Coordinator) GetChallengeFromArgsOrChannel(ctx context.Context, args []string, channelID string) (*domain.Challenge, error) {
	challenge, err := c.GetChallenge(ctx, channelID, "", "")
	if err != nil {
		return nil, err
	}
	if challenge == nil && len(args) > 0 {
		challenge, err = c.GetChallenge(ctx, "", args[0], channelID)
		if err != nil {
			return nil, err
		}
	}
	return challenge, nil
}

// RemoveChallenge detaches a challenge from its owning CTF document.
func (c *Coordinator) RemoveChallenge(ctx context.Context, challengeID, ctfID string) error {
	ctf, err := c.GetCTF(ctx, ctfID, "")
	if err != nil || ctf == nil {
		return err
	}
	ctf.RemoveChallenge(challengeID)
	return c.AddCTF(ctx, ctf)
}

// UpdateChallengeName renames a challenge wherever it lives, scanning
// every CTF for the owning document.
func (c *Coordinator) UpdateChallengeName(ctx context.Context, challengeID, name string) error {
	ctfs, err := c.GetCTFs(ctx)
	if err != nil {
		return err
	}
	for _, ctf := range ctfs {
		challenge := ctf.Challenge(challengeID)
		if challenge == nil {
			continue
		}
		challenge.Name = name
		return c.AddCTF(ctx, ctf)
	}
	return nil
}
