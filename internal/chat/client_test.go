package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// apiCall is one request received by the fake Web API.
type apiCall struct {
	method string
	params map[string]any
}

// fakeAPI answers Web API calls with canned JSON bodies per method.
type fakeAPI struct {
	t         *testing.T
	responses map[string]string
	calls     []apiCall
}

func newFakeAPI(t *testing.T, responses map[string]string) (*fakeAPI, *Client) {
	t.Helper()
	api := &fakeAPI{t: t, responses: responses}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	return api, NewClient(server.URL, "xoxb-test", "xapp-test")
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/")

	var params map[string]any
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		f.t.Errorf("decoding %s request: %v", method, err)
	}
	f.calls = append(f.calls, apiCall{method: method, params: params})

	body, ok := f.responses[method]
	if !ok {
		body = `{"ok": true}`
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func TestConnect(t *testing.T) {
	t.Parallel()
	_, client := newFakeAPI(t, map[string]string{
		"auth.test": `{"ok": true, "user_id": "UBOT"}`,
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if client.BotUserID() != "UBOT" {
		t.Errorf("BotUserID() = %q, want UBOT", client.BotUserID())
	}
}

func TestAPIError(t *testing.T) {
	t.Parallel()
	_, client := newFakeAPI(t, map[string]string{
		"conversations.create": `{"ok": false, "error": "name_taken"}`,
	})

	_, err := client.CreateChannel(context.Background(), "sums", true)
	if err == nil {
		t.Fatal("CreateChannel succeeded on a non-ok response")
	}
	if got := APIErrorReason(err); got != "name_taken" {
		t.Errorf("APIErrorReason = %q, want name_taken", got)
	}
}

func TestPostMessageFallback(t *testing.T) {
	t.Parallel()

	t.Run("falls back to direct message", func(t *testing.T) {
		t.Parallel()
		api, client := newFakeAPI(t, nil)
		api.responses = map[string]string{
			"chat.postMessage": `{"ok": false, "error": "channel_not_found"}`,
		}

		err := client.PostMessage(context.Background(), "CH1", "hi", PostOptions{
			ThreadTS:       "123.456",
			FallbackUserID: "U1",
		})
		if err == nil {
			t.Fatal("want the fallback failure reported")
		}
		if len(api.calls) != 2 {
			t.Fatalf("%d calls, want channel post plus fallback", len(api.calls))
		}
		if api.calls[1].params["channel"] != "U1" {
			t.Errorf("fallback channel = %v, want U1", api.calls[1].params["channel"])
		}
		if _, ok := api.calls[1].params["thread_ts"]; ok {
			t.Error("fallback direct message kept the thread timestamp")
		}
	})

	t.Run("no fallback without a user", func(t *testing.T) {
		t.Parallel()
		api, client := newFakeAPI(t, map[string]string{
			"chat.postMessage": `{"ok": false, "error": "channel_not_found"}`,
		})

		err := client.PostMessage(context.Background(), "CH1", "hi", PostOptions{})
		if err == nil {
			t.Fatal("want the failure reported")
		}
		if len(api.calls) != 1 {
			t.Errorf("%d calls, want exactly one", len(api.calls))
		}
	})
}

func TestChannelMembersPagination(t *testing.T) {
	t.Parallel()
	first := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var params map[string]any
		json.NewDecoder(r.Body).Decode(&params)
		w.Header().Set("Content-Type", "application/json")
		if first {
			first = false
			w.Write([]byte(`{"ok": true, "members": ["U1", "U2"], "response_metadata": {"next_cursor": "page2"}}`))
			return
		}
		if params["cursor"] != "page2" {
			t.Errorf("second page cursor = %v, want page2", params["cursor"])
		}
		w.Write([]byte(`{"ok": true, "members": ["U3"]}`))
	}))
	t.Cleanup(server.Close)
	client := NewClient(server.URL, "xoxb-test", "xapp-test")

	members, err := client.ChannelMembers(context.Background(), "CH1")
	if err != nil {
		t.Fatalf("ChannelMembers: %v", err)
	}
	if len(members) != 3 || members[2] != "U3" {
		t.Errorf("members = %v, want all pages", members)
	}
}

func TestRemoveRemindersByText(t *testing.T) {
	t.Parallel()
	api, client := newFakeAPI(t, map[string]string{
		"reminders.list": `{"ok": true, "reminders": [
			{"id": "R1", "text": "CTF sums - please archive"},
			{"id": "R2", "text": "unrelated"}
		]}`,
	})

	if err := client.RemoveRemindersByText(context.Background(), "CTF sums - "); err != nil {
		t.Fatalf("RemoveRemindersByText: %v", err)
	}

	var deleted []any
	for _, call := range api.calls {
		if call.method == "reminders.delete" {
			deleted = append(deleted, call.params["reminder"])
		}
	}
	if len(deleted) != 1 || deleted[0] != "R1" {
		t.Errorf("deleted = %v, want only R1", deleted)
	}
}

func TestMemberDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		member Member
		want   string
	}{
		{"profile display name", Member{ID: "U1", Name: "alice.l", Profile: Profile{DisplayName: "alice"}}, "alice"},
		{"real name fallback", Member{ID: "U1", Name: "alice.l", Profile: Profile{RealName: "Alice L"}}, "Alice L"},
		{"login fallback", Member{ID: "U1", Name: "alice.l"}, "alice.l"},
		{"id fallback", Member{ID: "U1"}, "U1"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.member.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}
