package slackbot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
)

// SlackResponder posts threaded replies through the Slack Web API.
type SlackResponder struct {
	api    *slack.Client
	logger *slog.Logger
}

// NewSlackResponder creates a responder using the given bot token. Extra
// slack.Options are passed through to the underlying client (tests use
// slack.OptionAPIURL).
func NewSlackResponder(token string, logger *slog.Logger, opts ...slack.Option) *SlackResponder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackResponder{
		api:    slack.New(token, opts...),
		logger: logger,
	}
}

// Respond posts text to the channel, threaded under threadTS when set.
func (r *SlackResponder) Respond(ctx context.Context, channel, threadTS, text string) error {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	_, ts, err := r.api.PostMessageContext(ctx, channel, opts...)
	if err != nil {
		return fmt.Errorf("posting to %s: %w", channel, err)
	}
	r.logger.DebugContext(ctx, "reply posted", "channel", channel, "ts", ts)
	return nil
}
