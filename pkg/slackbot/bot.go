// Package slackbot wires the Takeoff merge pipeline to Slack: it verifies
// and parses event deliveries, runs the extract → authorize → merge pipeline
// for each message, and posts the outcome back to the originating thread.
package slackbot

import (
	"context"
	"log/slog"
	"time"

	"github.com/takeoff-dev/takeoff/pkg/takeoff"
)

// defaultProcessTimeout bounds the processing of a single message, GitHub
// calls and the Slack reply included.
const defaultProcessTimeout = 30 * time.Second

// Merger attempts to merge a referenced pull request. Satisfied by
// *takeoff.Client.
type Merger interface {
	AttemptMerge(ctx context.Context, ref takeoff.Reference) takeoff.Outcome
}

// Responder posts a reply to the conversation thread a message came from.
type Responder interface {
	Respond(ctx context.Context, channel, threadTS, text string) error
}

// Message is the slice of a Slack message event the pipeline consumes.
type Message struct {
	Text     string
	UserID   string
	Channel  string
	ThreadTS string
}

// Bot runs the merge pipeline for inbound Slack messages. All fields are set
// at construction and never mutated; concurrent message processing needs no
// locking.
type Bot struct {
	extractor     *takeoff.Extractor
	allowlist     takeoff.Allowlist
	merger        Merger
	responder     Responder
	logger        *slog.Logger
	metrics       *Metrics
	signingSecret string
	timeout       time.Duration
}

// BotOption configures a Bot.
type BotOption func(*Bot)

// WithLogger sets a custom logger for the bot.
func WithLogger(logger *slog.Logger) BotOption {
	return func(b *Bot) {
		b.logger = logger
	}
}

// WithMetrics enables Prometheus metrics recording.
func WithMetrics(m *Metrics) BotOption {
	return func(b *Bot) {
		b.metrics = m
	}
}

// WithProcessTimeout overrides the per-message processing timeout.
func WithProcessTimeout(d time.Duration) BotOption {
	return func(b *Bot) {
		b.timeout = d
	}
}

// New assembles a Bot from its collaborators.
func New(extractor *takeoff.Extractor, allowlist takeoff.Allowlist, merger Merger, responder Responder, signingSecret string, opts ...BotOption) *Bot {
	b := &Bot{
		extractor:     extractor,
		allowlist:     allowlist,
		merger:        merger,
		responder:     responder,
		logger:        slog.Default(),
		signingSecret: signingSecret,
		timeout:       defaultProcessTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HandleMessage runs the pipeline for one message and returns its outcome.
// Exactly one outcome is produced per message; a NoAction outcome sends no
// reply and makes no GitHub calls.
func (b *Bot) HandleMessage(ctx context.Context, msg Message) takeoff.Outcome {
	start := time.Now()

	ref, ok := b.extractor.Extract(msg.Text)
	if !ok {
		return takeoff.NoAction()
	}

	if !b.allowlist.Allowed(msg.UserID) {
		b.logger.InfoContext(ctx, "merge request from unauthorized user",
			"user", msg.UserID, "pr", ref.String())
		out := takeoff.Unauthorized()
		b.reply(ctx, msg, out)
		b.metrics.outcome(out.Kind, time.Since(start))
		return out
	}

	b.logger.InfoContext(ctx, "merging PR on behalf of Slack user",
		"owner", ref.Owner, "repo", ref.Repo, "pr", ref.Number, "user", msg.UserID)

	out := b.merger.AttemptMerge(ctx, ref)
	b.reply(ctx, msg, out)
	b.metrics.outcome(out.Kind, time.Since(start))
	return out
}

// reply renders the outcome and posts it to the originating thread. A
// successful merge gets a ✓ prefix, as the bot has always done.
func (b *Bot) reply(ctx context.Context, msg Message, out takeoff.Outcome) {
	text := out.Message()
	if text == "" {
		return
	}
	if out.Kind == takeoff.OutcomeMerged {
		text = "✓ " + text
	}
	if err := b.responder.Respond(ctx, msg.Channel, msg.ThreadTS, text); err != nil {
		b.logger.ErrorContext(ctx, "failed to post reply",
			"channel", msg.Channel, "thread_ts", msg.ThreadTS, "error", err)
	}
}
