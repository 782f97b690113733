package bot

import (
	"context"
	"errors"
	"regexp"

	log "github.com/sirupsen/logrus"
)

var ErrNoFallback = errors.New("no fallback handler registered")

// Handler processes one inbound message activity.
type Handler func(ctx context.Context, tc *TurnContext) error

type rule struct {
	predicate func(*Activity) bool
	handler   Handler
}

// Dispatcher routes inbound message activities through an ordered rule
// list. Rules are evaluated in registration order, first match wins, and the
// mandatory fallback handles everything the rules pass over.
type Dispatcher struct {
	rules     []rule
	fallback  Handler
	connector *Connector
}

func NewDispatcher(connector *Connector) *Dispatcher {
	return &Dispatcher{connector: connector}
}

// OnMessagePattern registers a handler for message activities whose text
// matches re.
func (d *Dispatcher) OnMessagePattern(re *regexp.Regexp, h Handler) {
	d.rules = append(d.rules, rule{
		predicate: func(a *Activity) bool { return re.MatchString(a.Text) },
		handler:   h,
	})
}

// OnMessage registers the catch-all handler.
func (d *Dispatcher) OnMessage(h Handler) {
	d.fallback = h
}

// Dispatch delivers a message activity to the first matching handler.
// Non-message activities are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, a *Activity) error {
	if !a.IsMessage() {
		log.Debugf("[dispatcher] ignoring %q activity", a.Type)
		return nil
	}

	tc := &TurnContext{Activity: a, connector: d.connector}
	for _, r := range d.rules {
		if r.predicate(a) {
			return r.handler(ctx, tc)
		}
	}

	if d.fallback == nil {
		return ErrNoFallback
	}
	return d.fallback(ctx, tc)
}

// TurnContext gives a handler the inbound activity plus send and reply
// calls scoped to its conversation.
type TurnContext struct {
	Activity *Activity

	connector *Connector
}

// SendText posts a plain text message to the conversation.
func (tc *TurnContext) SendText(ctx context.Context, text string) error {
	return tc.connector.Send(ctx, tc.Activity.Conversation.ID, &Activity{Type: TypeMessage, Text: text})
}

// Reply posts an activity as a reply to the inbound one.
func (tc *TurnContext) Reply(ctx context.Context, activity *Activity) error {
	activity.ReplyToID = tc.Activity.ID
	return tc.connector.Reply(ctx, tc.Activity.Conversation.ID, tc.Activity.ID, activity)
}

// ReplyText posts a plain text reply to the inbound activity.
func (tc *TurnContext) ReplyText(ctx context.Context, text string) error {
	return tc.Reply(ctx, &Activity{Type: TypeMessage, Text: text})
}
