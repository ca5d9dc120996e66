// Package notify delivers ban notifications.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/appwatch-labs/appwatch/internal/core/ports/driven"
	"github.com/appwatch-labs/appwatch/internal/logger"
)

// Verify interface compliance at compile time.
var (
	_ driven.Notifier = (*LogNotifier)(nil)
	_ driven.Notifier = (*WebhookNotifier)(nil)
	_ driven.Notifier = Multi(nil)
)

// Title is the headline of every ban notification.
const Title = "App banned!"

// Body returns the notification text for a removed app.
func Body(itemName string) string {
	return fmt.Sprintf("App %q was removed from the App Store.", itemName)
}

// LogNotifier writes ban notifications to the log.
type LogNotifier struct{}

// Notify logs the notification. It never fails.
func (LogNotifier) Notify(_ context.Context, itemName string) error {
	logger.Warn("%s %s", Title, Body(itemName))
	return nil
}

// webhookPayload is the JSON body posted to a webhook.
type webhookPayload struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Body  string    `json:"body"`
	Item  string    `json:"item"`
	At    time.Time `json:"at"`
}

const defaultWebhookTimeout = 10 * time.Second

// WebhookNotifier posts ban notifications as JSON to a URL.
type WebhookNotifier struct {
	client *http.Client
	url    string
	now    func() time.Time
}

// NewWebhookNotifier creates a notifier posting to url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		client: &http.Client{Timeout: defaultWebhookTimeout},
		url:    url,
		now:    time.Now,
	}
}

// Notify posts one notification. Non-2xx answers are errors.
func (w *WebhookNotifier) Notify(ctx context.Context, itemName string) error {
	payload, err := json.Marshal(webhookPayload{
		ID:    uuid.NewString(),
		Title: Title,
		Body:  Body(itemName),
		Item:  itemName,
		At:    w.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	logger.Debug("notified webhook about %q", itemName)
	return nil
}

// Multi fans a notification out to every notifier.
type Multi []driven.Notifier

// Notify delivers to all notifiers and joins their errors.
func (m Multi) Notify(ctx context.Context, itemName string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, itemName); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
