// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/absmach/clm"
	"github.com/absmach/clm/pkg/errors"
	"github.com/hashicorp/go-retryablehttp"
)

const userAgent = "clm-webhook/1.0"

var (
	errQueueFull     = errors.New("webhook queue is full")
	errWebhookClosed = errors.New("webhook notifier is closed")
)

// WebhookConfig configures delivery of notifications to an HTTP endpoint.
type WebhookConfig struct {
	URL string `env:"URL" envDefault:""`
	// AuthHeader is sent with every request, formatted as "Header: Value".
	AuthHeader string        `env:"AUTH_HEADER" envDefault:""`
	Timeout    time.Duration `env:"TIMEOUT"     envDefault:"10s"`
	QueueSize  int           `env:"QUEUE_SIZE"  envDefault:"128"`
	Retries    int           `env:"RETRIES"     envDefault:"1"`
}

// Webhook posts events as JSON to a configured URL from a background
// goroutine. Notify never blocks: when the queue is full the event is
// dropped and an error returned.
type Webhook struct {
	cfg    WebhookConfig
	client *retryablehttp.Client
	logger *slog.Logger
	events chan clm.Event

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ clm.Notifier = (*Webhook)(nil)

// NewWebhook starts a webhook notifier. Close stops it after draining
// queued events.
func NewWebhook(cfg WebhookConfig, logger *slog.Logger) *Webhook {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 128
	}
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.Retries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = cfg.Timeout
	client.Logger = nil
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	w := &Webhook{
		cfg:    cfg,
		client: client,
		logger: logger,
		events: make(chan clm.Event, cfg.QueueSize),
	}
	w.wg.Add(1)
	go w.loop()

	return w
}

func (w *Webhook) Notify(_ context.Context, event clm.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return errWebhookClosed
	}
	select {
	case w.events <- event:
		return nil
	default:
		return errors.Wrap(errQueueFull, fmt.Errorf("dropped %s for operation %s", event.Kind, event.OperationID))
	}
}

// Close stops accepting events and waits until queued ones are sent.
func (w *Webhook) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.events)
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *Webhook) loop() {
	defer w.wg.Done()
	for event := range w.events {
		if err := w.send(event); err != nil {
			w.logger.Warn("failed to deliver webhook notification", slog.String("kind", string(event.Kind)), slog.String("operation_id", event.OperationID), slog.Any("error", err))
		}
	}
}

func (w *Webhook) send(event clm.Event) error {
	payload, err := operationEvent{event}.Encode()
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Timeout*time.Duration(w.cfg.Retries+1)+time.Second)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if k, v, ok := strings.Cut(w.cfg.AuthHeader, ":"); ok {
		req.Header.Set(strings.TrimSpace(k), strings.TrimSpace(v))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}
