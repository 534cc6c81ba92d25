// Copyright 2026 The Gemo Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/gemo-rc/gemo/pkg/log"
)

var errNotStarted = errors.New("mqtt: client not started")

type subscription struct {
	filter  string
	qos     byte
	handler MessageHandler
}

// pahoClient wraps an autopaho connection manager. Subscriptions are kept
// locally and replayed in a single SUBSCRIBE after every reconnect.
type pahoClient struct {
	cfg    *ClientConfig
	logger log.Logger

	cm     *autopaho.ConnectionManager
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	subs map[string]subscription

	connected atomic.Bool
}

// NewClient validates cfg, fills in defaults and returns an unstarted Client.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, errors.New("mqtt config is required")
	}
	setDefaultConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}

	return &pahoClient{
		cfg:    cfg,
		logger: log.WithName("mqtt").WithValues("clientID", cfg.ClientID),
		subs:   make(map[string]subscription),
	}, nil
}

func (c *pahoClient) Start(ctx context.Context) error {
	broker, err := url.Parse(c.cfg.BrokerURL)
	if err != nil {
		return err
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	cm, err := autopaho.NewConnection(c.ctx, c.connectionConfig(broker))
	if err != nil {
		c.cancel()
		return err
	}
	c.cm = cm
	c.logger.Info("MQTT client started", "broker", c.cfg.BrokerURL)
	return nil
}

func (c *pahoClient) connectionConfig(broker *url.URL) autopaho.ClientConfig {
	cfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{broker},
		KeepAlive:                     c.cfg.KeepAlive,
		CleanStartOnInitialConnection: c.cfg.CleanStart,
		SessionExpiryInterval:         c.cfg.SessionExpiry,
		ReconnectBackoff:              autopaho.NewConstantBackoff(c.cfg.ReconnectDelay),
		ConnectTimeout:                c.cfg.ConnectTimeout,
		ConnectUsername:               c.cfg.Username,
		WillMessage:                   c.willMessage(),
		OnConnectionUp:                c.onConnectionUp,
		OnConnectError:                c.onConnectError,
		ClientConfig: paho.ClientConfig{
			ClientID:           c.cfg.ClientID,
			OnClientError:      c.onClientError,
			OnServerDisconnect: c.onServerDisconnect,
			OnPublishReceived:  []func(paho.PublishReceived) (bool, error){c.route},
		},
	}
	if c.cfg.Password != "" {
		cfg.ConnectPassword = []byte(c.cfg.Password)
	}
	if broker.Scheme == "ssl" || broker.Scheme == "tls" || broker.Scheme == "mqtts" || broker.Scheme == "wss" {
		cfg.TlsCfg = &tls.Config{InsecureSkipVerify: c.cfg.InsecureSkipVerify}
	}
	return cfg
}

func (c *pahoClient) Disconnect(ctx context.Context) {
	if c.cm == nil {
		return
	}
	if err := c.cm.Disconnect(ctx); err != nil {
		c.logger.Warn("MQTT disconnect was not clean", "err", err)
	}
	c.cancel()
	c.connected.Store(false)
	c.logger.Info("MQTT client disconnected")
}

func (c *pahoClient) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	if c.cm == nil {
		return errNotStarted
	}
	// QoS 0 is dropped rather than queued while offline.
	if qos == 0 && !c.IsConnected() {
		return ErrNotConnected
	}

	_, err := c.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		QoS:     byte(qos),
		Retain:  retain,
		Payload: payload,
	})
	return err
}

func (c *pahoClient) Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error {
	if c.cm == nil {
		return errNotStarted
	}

	c.mu.Lock()
	c.subs[topic] = subscription{filter: topic, qos: byte(qos), handler: handler}
	c.mu.Unlock()

	if !c.IsConnected() {
		c.logger.Info("Subscription deferred until connected", "topic", topic)
		return nil
	}
	if _, err := c.cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: topic, QoS: byte(qos)}},
	}); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	c.logger.Info("Subscribed", "topic", topic, "qos", qos)
	return nil
}

func (c *pahoClient) Unsubscribe(ctx context.Context, topic string) error {
	if c.cm == nil {
		return errNotStarted
	}

	c.mu.Lock()
	delete(c.subs, topic)
	c.mu.Unlock()

	_, err := c.cm.Unsubscribe(ctx, &paho.Unsubscribe{Topics: []string{topic}})
	return err
}

func (c *pahoClient) AwaitConnection(ctx context.Context) error {
	if c.cm == nil {
		return errNotStarted
	}
	return c.cm.AwaitConnection(ctx)
}

func (c *pahoClient) IsConnected() bool {
	return c.connected.Load()
}

func (c *pahoClient) subscribeOptions() []paho.SubscribeOptions {
	c.mu.RLock()
	defer c.mu.RUnlock()

	opts := make([]paho.SubscribeOptions, 0, len(c.subs))
	for _, s := range c.subs {
		opts = append(opts, paho.SubscribeOptions{Topic: s.filter, QoS: s.qos})
	}
	return opts
}

func (c *pahoClient) onConnectionUp(cm *autopaho.ConnectionManager, _ *paho.Connack) {
	c.connected.Store(true)
	c.logger.Info("MQTT connection up")

	opts := c.subscribeOptions()
	if len(opts) == 0 {
		return
	}
	if _, err := cm.Subscribe(c.ctx, &paho.Subscribe{Subscriptions: opts}); err != nil {
		c.logger.Error(err, "Failed to restore subscriptions", "count", len(opts))
		return
	}
	c.logger.Info("Subscriptions restored", "count", len(opts))
}

func (c *pahoClient) onConnectError(err error) {
	c.connected.Store(false)
	c.logger.Error(err, "MQTT connect failed, retrying", "delay", c.cfg.ReconnectDelay)
}

func (c *pahoClient) onClientError(err error) {
	c.connected.Store(false)
	c.logger.Error(err, "MQTT client error")
}

func (c *pahoClient) onServerDisconnect(d *paho.Disconnect) {
	c.connected.Store(false)
	reason := ""
	if d.Properties != nil {
		reason = d.Properties.ReasonString
	}
	c.logger.Warn("MQTT server closed the connection", "reasonCode", d.ReasonCode, "reason", reason)
}

// handlers returns the handlers whose filter matches topic.
func (c *pahoClient) handlers(topic string) []MessageHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var hs []MessageHandler
	for _, s := range c.subs {
		if topicsMatch(topicFilter(s.filter), topic) {
			hs = append(hs, s.handler)
		}
	}
	return hs
}

// route dispatches an inbound publish. Handlers run on their own goroutine so
// a slow one never stalls the paho receive loop.
func (c *pahoClient) route(p paho.PublishReceived) (bool, error) {
	topic, payload := p.Packet.Topic, p.Packet.Payload

	hs := c.handlers(topic)
	if len(hs) == 0 {
		c.logger.Debug("Dropping message on unhandled topic", "topic", topic)
		return true, nil
	}
	for _, h := range hs {
		go h(c.ctx, topic, payload)
	}
	return true, nil
}

func (c *pahoClient) willMessage() *paho.WillMessage {
	if c.cfg.WillTopic == "" {
		return nil
	}
	return &paho.WillMessage{
		Topic:   c.cfg.WillTopic,
		Payload: c.cfg.WillPayload,
		QoS:     c.cfg.WillQoS,
		Retain:  c.cfg.WillRetain,
	}
}

// topicsMatch reports whether topic matches filter under MQTT wildcard rules.
func topicsMatch(filter, topic string) bool {
	if filter == topic {
		return true
	}
	if !strings.ContainsAny(filter, "+#") {
		return false
	}

	levels := strings.Split(topic, "/")
	for i, f := range strings.Split(filter, "/") {
		switch {
		case f == "#":
			return true
		case i >= len(levels):
			return false
		case f != "+" && f != levels[i]:
			return false
		}
	}
	return strings.Count(filter, "/") == len(levels)-1
}

// topicFilter strips a "$share/<group>/" prefix.
func topicFilter(filter string) string {
	rest, ok := strings.CutPrefix(filter, "$share/")
	if !ok {
		return filter
	}
	if _, f, ok := strings.Cut(rest, "/"); ok {
		return f
	}
	return filter
}
