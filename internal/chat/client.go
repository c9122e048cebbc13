package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the chat platform's Web API. All methods are plain
// request/response; event delivery is handled separately by Socket.
type Client struct {
	apiURL    string
	botToken  string
	appToken  string
	botUserID string
	http      *http.Client
}

// NewClient creates a Web API client. The bot token authenticates API
// calls; the app token is used by Socket to open event connections.
func NewClient(apiURL, botToken, appToken string) *Client {
	return &Client{
		apiURL:   strings.TrimSuffix(apiURL, "/"),
		botToken: botToken,
		appToken: appToken,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// apiError is a non-ok response from the Web API.
type apiError struct {
	method string
	reason string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.method, e.reason)
}

// APIErrorReason extracts the platform error string from an error
// returned by a Client call, or "" if it isn't an API-level failure.
func APIErrorReason(err error) string {
	if ae, ok := err.(*apiError); ok {
		return ae.reason
	}
	return ""
}

// call posts a JSON request to one Web API method and decodes the
// response envelope into out (which may be nil).
func (c *Client) call(ctx context.Context, token, method string, params map[string]any, out any) error {
	var body bytes.Buffer
	if params == nil {
		params = map[string]any{}
	}
	if err := json.NewEncoder(&body).Encode(params); err != nil {
		return fmt.Errorf("encoding %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/"+method, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}

	var envelope struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if !envelope.OK {
		return &apiError{method: method, reason: envelope.Error}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding %s response: %w", method, err)
		}
	}
	return nil
}

// Connect verifies the bot token and caches the bot's own user id.
func (c *Client) Connect(ctx context.Context) error {
	var result struct {
		UserID string `json:"user_id"`
	}
	if err := c.call(ctx, c.botToken, "auth.test", nil, &result); err != nil {
		return err
	}
	c.botUserID = result.UserID
	return nil
}

// BotUserID returns the bot's own member id (set by Connect).
func (c *Client) BotUserID() string {
	return c.botUserID
}

// PostMessage posts text to a channel. When the channel post fails and
// a fallback user is given, the message is retried once as a direct
// message before the error is reported.
func (c *Client) PostMessage(ctx context.Context, channelID, text string, opts PostOptions) error {
	params := map[string]any{
		"channel": channelID,
		"text":    text,
	}
	if opts.ThreadTS != "" {
		params["thread_ts"] = opts.ThreadTS
	}

	err := c.call(ctx, c.botToken, "chat.postMessage", params, nil)
	if err == nil || opts.FallbackUserID == "" || opts.FallbackUserID == channelID {
		return err
	}

	log.Printf("Posting to %s failed (%v), falling back to direct message", channelID, err)
	params["channel"] = opts.FallbackUserID
	delete(params, "thread_ts")
	return c.call(ctx, c.botToken, "chat.postMessage", params, nil)
}

// InviteUsers invites the given members to a channel.
func (c *Client) InviteUsers(ctx context.Context, userIDs []string, channelID string) error {
	if len(userIDs) == 0 {
		return nil
	}
	return c.call(ctx, c.botToken, "conversations.invite", map[string]any{
		"channel": channelID,
		"users":   strings.Join(userIDs, ","),
	}, nil)
}

// CreateChannel creates a channel with the given name.
func (c *Client) CreateChannel(ctx context.Context, name string, private bool) (*Channel, error) {
	var result struct {
		Channel Channel `json:"channel"`
	}
	err := c.call(ctx, c.botToken, "conversations.create", map[string]any{
		"name":       name,
		"is_private": private,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result.Channel, nil
}

// RenameChannel renames an existing channel.
func (c *Client) RenameChannel(ctx context.Context, channelID, name string) error {
	return c.call(ctx, c.botToken, "conversations.rename", map[string]any{
		"channel": channelID,
		"name":    name,
	}, nil)
}

// ArchiveChannel archives a channel.
func (c *Client) ArchiveChannel(ctx context.Context, channelID string) error {
	return c.call(ctx, c.botToken, "conversations.archive", map[string]any{
		"channel": channelID,
	}, nil)
}

// SetPurpose sets the purpose of a channel.
func (c *Client) SetPurpose(ctx context.Context, channelID, purpose string) error {
	return c.call(ctx, c.botToken, "conversations.setPurpose", map[string]any{
		"channel": channelID,
		"purpose": purpose,
	}, nil)
}

// SetTopic sets the topic of a channel.
func (c *Client) SetTopic(ctx context.Context, channelID, topic string) error {
	return c.call(ctx, c.botToken, "conversations.setTopic", map[string]any{
		"channel": channelID,
		"topic":   topic,
	}, nil)
}

// ChannelMembers returns the user ids of everyone in a channel,
// following cursor pagination until none remain.
func (c *Client) ChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	var members []string
	cursor := ""
	for {
		var result struct {
			Members          []string `json:"members"`
			ResponseMetadata struct {
				NextCursor string `json:"next_cursor"`
			} `json:"response_metadata"`
		}
		params := map[string]any{"channel": channelID}
		if cursor != "" {
			params["cursor"] = cursor
		}
		if err := c.call(ctx, c.botToken, "conversations.members", params, &result); err != nil {
			return nil, err
		}
		members = append(members, result.Members...)
		cursor = result.ResponseMetadata.NextCursor
		if cursor == "" {
			return members, nil
		}
	}
}

// listChannels fetches all channels of the given types, following
// cursor pagination.
func (c *Client) listChannels(ctx context.Context, types string) ([]Channel, error) {
	var channels []Channel
	cursor := ""
	for {
		var result struct {
			Channels         []Channel `json:"channels"`
			ResponseMetadata struct {
				NextCursor string `json:"next_cursor"`
			} `json:"response_metadata"`
		}
		params := map[string]any{"types": types, "limit": 200}
		if cursor != "" {
			params["cursor"] = cursor
		}
		if err := c.call(ctx, c.botToken, "conversations.list", params, &result); err != nil {
			return nil, err
		}
		channels = append(channels, result.Channels...)
		cursor = result.ResponseMetadata.NextCursor
		if cursor == "" {
			return channels, nil
		}
	}
}

// PublicChannels returns all public channels.
func (c *Client) PublicChannels(ctx context.Context) ([]Channel, error) {
	return c.listChannels(ctx, "public_channel")
}

// PrivateChannels returns all private channels the bot participates in.
func (c *Client) PrivateChannels(ctx context.Context) ([]Channel, error) {
	return c.listChannels(ctx, "private_channel")
}

// ChannelByName returns the channel with the given name, or nil.
func (c *Client) ChannelByName(ctx context.Context, name string) (*Channel, error) {
	public, err := c.PublicChannels(ctx)
	if err != nil {
		return nil, err
	}
	private, err := c.PrivateChannels(ctx)
	if err != nil {
		return nil, err
	}
	for _, ch := range append(public, private...) {
		if ch.Name == name {
			return &ch, nil
		}
	}
	return nil, nil
}

// Member returns the member with the given user id.
func (c *Client) Member(ctx context.Context, userID string) (*Member, error) {
	var result struct {
		User Member `json:"user"`
	}
	err := c.call(ctx, c.botToken, "users.info", map[string]any{
		"user": userID,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result.User, nil
}

// Members returns every member of the workspace.
func (c *Client) Members(ctx context.Context) ([]Member, error) {
	var members []Member
	cursor := ""
	for {
		var result struct {
			Members          []Member `json:"members"`
			ResponseMetadata struct {
				NextCursor string `json:"next_cursor"`
			} `json:"response_metadata"`
		}
		params := map[string]any{"limit": 200}
		if cursor != "" {
			params["cursor"] = cursor
		}
		if err := c.call(ctx, c.botToken, "users.list", params, &result); err != nil {
			return nil, err
		}
		members = append(members, result.Members...)
		cursor = result.ResponseMetadata.NextCursor
		if cursor == "" {
			return members, nil
		}
	}
}

// AddReminder schedules a reminder for a user in the given number of
// hours.
func (c *Client) AddReminder(ctx context.Context, userID, text string, hoursOffset int) error {
	return c.call(ctx, c.botToken, "reminders.add", map[string]any{
		"text": text,
		"time": fmt.Sprintf("in %d hours", hoursOffset),
		"user": userID,
	}, nil)
}

// RemoveRemindersByText deletes every reminder created by the bot whose
// text contains the given substring.
func (c *Client) RemoveRemindersByText(ctx context.Context, text string) error {
	var result struct {
		Reminders []Reminder `json:"reminders"`
	}
	if err := c.call(ctx, c.botToken, "reminders.list", nil, &result); err != nil {
		return err
	}
	for _, reminder := range result.Reminders {
		if !strings.Contains(reminder.Text, text) {
			continue
		}
		if err := c.call(ctx, c.botToken, "reminders.delete", map[string]any{
			"reminder": reminder.ID,
		}, nil); err != nil {
			return err
		}
	}
	return nil
}

// openSocketURL asks the platform for a fresh socket-mode URL using the
// app token.
func (c *Client) openSocketURL(ctx context.Context) (string, error) {
	var result struct {
		URL string `json:"url"`
	}
	if err := c.call(ctx, c.appToken, "apps.connections.open", nil, &result); err != nil {
		return "", err
	}
	if _, err := url.Parse(result.URL); err != nil {
		return "", fmt.Errorf("invalid socket URL: %w", err)
	}
	return result.URL, nil
}
