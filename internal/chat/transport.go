package chat

import "context"

// Transport is the chat-platform surface the bot core depends on.
// *Client implements it against the real Web API; tests substitute
// fakes.
type Transport interface {
	// BotUserID returns the bot's own member id, used to exclude the
	// bot from player reconstruction.
	BotUserID() string

	PostMessage(ctx context.Context, channelID, text string, opts PostOptions) error
	InviteUsers(ctx context.Context, userIDs []string, channelID string) error

	CreateChannel(ctx context.Context, name string, private bool) (*Channel, error)
	RenameChannel(ctx context.Context, channelID, name string) error
	ArchiveChannel(ctx context.Context, channelID string) error
	SetPurpose(ctx context.Context, channelID, purpose string) error
	SetTopic(ctx context.Context, channelID, topic string) error

	ChannelMembers(ctx context.Context, channelID string) ([]string, error)
	ChannelByName(ctx context.Context, name string) (*Channel, error)
	PublicChannels(ctx context.Context) ([]Channel, error)
	PrivateChannels(ctx context.Context) ([]Channel, error)

	Member(ctx context.Context, userID string) (*Member, error)
	Members(ctx context.Context) ([]Member, error)

	AddReminder(ctx context.Context, userID, text string, hoursOffset int) error
	RemoveRemindersByText(ctx context.Context, text string) error
}
