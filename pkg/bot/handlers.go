package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

const greetingReply = "Hello! How can I assist you today?"

var greetingPattern = regexp.MustCompile(`(?i)hello|hi|greetings`)

// Default wires the stock greeting and echo handlers into a dispatcher.
func Default(connector *Connector) *Dispatcher {
	d := NewDispatcher(connector)
	d.OnMessagePattern(greetingPattern, handleGreeting)
	d.OnMessage(handleMessage)
	return d
}

func handleGreeting(ctx context.Context, tc *TurnContext) error {
	return tc.SendText(ctx, greetingReply)
}

// handleMessage is the catch-all: typing indicator first, then either a
// canned reply or an echo of the inbound text.
func handleMessage(ctx context.Context, tc *TurnContext) error {
	if err := tc.Reply(ctx, TypingActivity()); err != nil {
		return err
	}

	if strings.Contains(strings.ToLower(tc.Activity.Text), "reply") {
		return tc.ReplyText(ctx, greetingReply)
	}
	return tc.SendText(ctx, fmt.Sprintf("You said '%s'", tc.Activity.Text))
}
