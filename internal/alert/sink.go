package alert

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-redis/redis/v8"
	"github.com/go-sod/pqm/internal/alert/model"
	"github.com/go-sod/pqm/internal/httputil"
	"github.com/segmentio/kafka-go"
	"golang.org/x/net/context/ctxhttp"
)

// Sink delivers one event to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, e model.Event) error
}

// NewSinks builds every sink cfg describes. AllowAlerts=false yields none.
func NewSinks(cfg *Config) ([]Sink, error) {
	if !cfg.AllowAlerts {
		return nil, nil
	}
	var sinks []Sink
	for i, target := range cfg.WebhookTargets() {
		s, err := NewWebhookSink(target)
		if err != nil {
			CloseSinks(sinks)
			return nil, fmt.Errorf("webhook target %d: %w", i, err)
		}
		sinks = append(sinks, s)
	}
	if len(cfg.KafkaBrokers) > 0 {
		sinks = append(sinks, NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic))
	}
	if cfg.RedisAddr != "" {
		sinks = append(sinks, NewRedisSink(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.RedisChannel))
	}
	return sinks, nil
}

// CloseSinks closes every sink that holds a connection.
func CloseSinks(sinks []Sink) error {
	var firstErr error
	for _, s := range sinks {
		c, ok := s.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close sink %s: %w", s.Name(), err)
		}
	}
	return firstErr
}

// WebhookSink POSTs the event as JSON.
type WebhookSink struct {
	name   string
	url    string
	client *http.Client
}

func NewWebhookSink(t Target) (*WebhookSink, error) {
	link, err := url.Parse(t.URL)
	if err != nil {
		return nil, fmt.Errorf("url parsing error: %w", err)
	}
	if link.Scheme != "http" && link.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", link.Scheme)
	}
	client, err := httputil.NewClientFromConfig(t.HTTPConfig, 0, true)
	if err != nil {
		return nil, fmt.Errorf("unable create client: %w", err)
	}
	name := t.Name
	if name == "" {
		name = "webhook:" + link.Host
	}
	return &WebhookSink{name: name, url: link.String(), client: client}, nil
}

func (s *WebhookSink) Name() string {
	return s.name
}

func (s *WebhookSink) Send(ctx context.Context, e model.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("unable encode json data: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request error: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := ctxhttp.Do(ctx, s.client, req)
	if err != nil {
		return fmt.Errorf("sending request error: %w", err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("unable create gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}
	snippet, err := io.ReadAll(io.LimitReader(reader, 512))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}

// KafkaSink writes the event to a topic keyed by event id.
type KafkaSink struct {
	topic  string
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		topic: topic,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (s *KafkaSink) Name() string {
	return "kafka:" + s.topic
}

func (s *KafkaSink) Send(ctx context.Context, e model.Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("unable encode json data: %w", err)
	}
	if err := s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(e.ID.String()), Value: value}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// RedisSink publishes the event on a pub/sub channel.
type RedisSink struct {
	channel string
	client  *redis.Client
}

func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	return &RedisSink{channel: channel, client: client}
}

func (s *RedisSink) Name() string {
	return "redis:" + s.channel
}

func (s *RedisSink) Send(ctx context.Context, e model.Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("unable encode json data: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, value).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
