package slackbot

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// maxEventBody limits webhook body size; Slack event payloads are small.
const maxEventBody = 1 * 1024 * 1024 // 1MB

// Delivery dispositions recorded in metrics.
const (
	dispositionAccepted     = "accepted"
	dispositionIgnored      = "ignored"
	dispositionChallenge    = "challenge"
	dispositionBadBody      = "bad_body"
	dispositionBadSignature = "bad_signature"
)

// HandleEvents is the HTTP handler for the Slack Events API endpoint. Slack
// expects an acknowledgement within three seconds, so message processing
// runs in a per-delivery goroutine and the request is answered immediately.
func (b *Bot) HandleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		b.metrics.delivery(dispositionBadBody)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		b.metrics.delivery(dispositionBadBody)
		b.logger.WarnContext(r.Context(), "unparseable event payload", "error", err)
		http.Error(w, "invalid event payload", http.StatusBadRequest)
		return
	}

	// Slack sends the one-time URL verification challenge when the Events
	// endpoint is first configured; answer it before signature checks.
	if event.Type == slackevents.URLVerification {
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			b.metrics.delivery(dispositionBadBody)
			http.Error(w, "invalid challenge payload", http.StatusBadRequest)
			return
		}
		b.metrics.delivery(dispositionChallenge)
		w.Header().Set("Content-Type", "text/plain")
		if _, err := w.Write([]byte(challenge.Challenge)); err != nil {
			b.logger.DebugContext(r.Context(), "failed to write challenge response", "error", err)
		}
		return
	}

	if err := b.verifySignature(r.Header, body); err != nil {
		b.metrics.delivery(dispositionBadSignature)
		b.logger.WarnContext(r.Context(), "rejected delivery with bad signature", "error", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	if event.Type == slackevents.CallbackEvent {
		b.dispatch(r.Context(), event)
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write([]byte(`{"ok":true}`)); err != nil {
		b.logger.DebugContext(r.Context(), "failed to write ack", "error", err)
	}
}

// verifySignature checks the Slack signing-secret HMAC. The verifier also
// rejects timestamps outside the replay window.
func (b *Bot) verifySignature(header http.Header, body []byte) error {
	verifier, err := slack.NewSecretsVerifier(header, b.signingSecret)
	if err != nil {
		return err
	}
	if _, err := verifier.Write(body); err != nil {
		return err
	}
	return verifier.Ensure()
}

// dispatch hands a message event to the pipeline on its own goroutine.
func (b *Bot) dispatch(ctx context.Context, event slackevents.EventsAPIEvent) {
	msgEvent, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		b.metrics.delivery(dispositionIgnored)
		return
	}

	// Ignore bot messages to avoid reply loops.
	if msgEvent.BotID != "" || msgEvent.SubType == "bot_message" {
		b.metrics.delivery(dispositionIgnored)
		return
	}

	threadTS := msgEvent.ThreadTimeStamp
	if threadTS == "" {
		threadTS = msgEvent.TimeStamp
	}
	msg := Message{
		Text:     msgEvent.Text,
		UserID:   msgEvent.User,
		Channel:  msgEvent.Channel,
		ThreadTS: threadTS,
	}

	delivery := uuid.NewString()
	b.metrics.delivery(dispositionAccepted)
	b.logger.InfoContext(ctx, "message event accepted",
		"delivery", delivery, "channel", msg.Channel, "user", msg.UserID)

	go func() {
		// The webhook request context dies with the ack; processing gets
		// its own bounded context.
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		out := b.HandleMessage(ctx, msg)
		b.logger.InfoContext(ctx, "message processed",
			"delivery", delivery, "outcome", out.Kind, "pr", out.Number)
	}()
}
