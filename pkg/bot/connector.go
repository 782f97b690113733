package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultScope = "https://api.botframework.com/.default"

// Connector delivers outbound activities to the channel service.
type Connector struct {
	ServiceURL string
	Tokens     TokenProvider
	TenantID   string
	Scopes     []string

	client *http.Client
}

func NewConnector(serviceURL string, tokens TokenProvider) *Connector {
	return &Connector{
		ServiceURL: serviceURL,
		Tokens:     tokens,
		Scopes:     []string{defaultScope},
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts an activity to a conversation.
func (c *Connector) Send(ctx context.Context, conversationID string, activity *Activity) error {
	target, err := url.JoinPath(c.ServiceURL, "v3", "conversations", conversationID, "activities")
	if err != nil {
		return fmt.Errorf("error building send URL: %w", err)
	}
	return c.post(ctx, target, activity)
}

// Reply posts an activity as a reply to a previous activity in the
// conversation.
func (c *Connector) Reply(ctx context.Context, conversationID, replyToID string, activity *Activity) error {
	target, err := url.JoinPath(c.ServiceURL, "v3", "conversations", conversationID, "activities", replyToID)
	if err != nil {
		return fmt.Errorf("error building reply URL: %w", err)
	}
	return c.post(ctx, target, activity)
}

func (c *Connector) post(ctx context.Context, target string, activity *Activity) error {
	b, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("error marshaling activity: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("error creating request %s: %w", target, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.Tokens != nil {
		token, err := c.Tokens.Token(ctx, c.Scopes, c.TenantID)
		if err != nil {
			return fmt.Errorf("error acquiring token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("error calling channel service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("channel service returned status %d", resp.StatusCode)
	}

	log.Debugf("[connector] %s activity delivered to %s", activity.Type, target)
	return nil
}
