package slackbot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackResponderPostsThreadedReply(t *testing.T) {
	var gotChannel, gotThreadTS, gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotChannel = r.Form.Get("channel")
		gotThreadTS = r.Form.Get("thread_ts")
		gotText = r.Form.Get("text")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000002.000300"}`))
	}))
	defer server.Close()

	responder := NewSlackResponder("xoxb-test", nil, slack.OptionAPIURL(server.URL+"/"))

	err := responder.Respond(context.Background(), "C123", "1700000000.000100", "PR #7 is already merged.")
	require.NoError(t, err)
	assert.Equal(t, "C123", gotChannel)
	assert.Equal(t, "1700000000.000100", gotThreadTS)
	assert.Equal(t, "PR #7 is already merged.", gotText)
}

func TestSlackResponderSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer server.Close()

	responder := NewSlackResponder("xoxb-test", nil, slack.OptionAPIURL(server.URL+"/"))

	err := responder.Respond(context.Background(), "C404", "", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}
