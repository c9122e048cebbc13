package chat

// Channel is a conversation on the chat platform. The purpose value is
// where the bot stores its recovery metadata.
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsPrivate  bool   `json:"is_private"`
	IsArchived bool   `json:"is_archived"`
	Purpose    Topic  `json:"purpose"`
	Topic      Topic  `json:"topic"`
}

// Topic is the value/creator pair the platform uses for both channel
// purpose and channel topic.
type Topic struct {
	Value string `json:"value"`
}

// Member is a workspace member.
type Member struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	RealName string  `json:"real_name"`
	Profile  Profile `json:"profile"`
}

// Profile carries the display names a member has configured.
type Profile struct {
	DisplayName string `json:"display_name"`
	RealName    string `json:"real_name"`
}

// DisplayName returns the best human-readable name for the member,
// falling back through profile display name, profile real name, real
// name and login name to the raw id.
func (m *Member) DisplayName() string {
	switch {
	case m.Profile.DisplayName != "":
		return m.Profile.DisplayName
	case m.Profile.RealName != "":
		return m.Profile.RealName
	case m.RealName != "":
		return m.RealName
	case m.Name != "":
		return m.Name
	default:
		return m.ID
	}
}

// Reminder is a scheduled reminder owned by the bot.
type Reminder struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// CommandEvent is one inbound slash-command invocation delivered over
// the socket connection.
type CommandEvent struct {
	Command   string `json:"command"`
	Text      string `json:"text"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	TS        string `json:"ts"`
	ThreadTS  string `json:"thread_ts"`
}

// Timestamp returns the timestamp replies should thread onto.
func (e *CommandEvent) Timestamp() string {
	if e.ThreadTS != "" {
		return e.ThreadTS
	}
	return e.TS
}

// PostOptions tunes a message post. ThreadTS threads the message onto
// an existing one; FallbackUserID is messaged directly when posting to
// the channel fails.
type PostOptions struct {
	ThreadTS       string
	FallbackUserID string
}
