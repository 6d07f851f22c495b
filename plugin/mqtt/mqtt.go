package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/caddyserver/caddy"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nextdhcp/leasehook/core/events"
	"github.com/nextdhcp/leasehook/core/matcher"
	"github.com/nextdhcp/leasehook/core/replacer"
)

// defaultTimeout limits connecting and publishing
const defaultTimeout = 5 * time.Second

// errTimeout is returned if the broker did not acknowledge in time
var errTimeout = errors.New("timeout waiting for MQTT broker")

type (
	// msgFactory creates the MQTT topic or payload for a lease event
	msgFactory func(l *events.Lease) (string, error)

	mqttConnConfig struct {
		broker       []string
		user         string
		password     string
		clientID     string
		cleanSession bool
		qos          int

		l sync.Mutex
		c mqtt.Client
	}

	mqttConfig struct {
		*matcher.Matcher

		conn    *mqttConnConfig
		name    string // optional name for the mqtt config
		topic   msgFactory
		payload msgFactory
		retain  bool
		events  map[caddy.EventName]struct{}
	}

	mqttPlugin struct {
		configs []*mqttConfig
		timeout time.Duration
		l       log.Interface
	}
)

// wants returns true if cfg publishes for event
func (cfg *mqttConfig) wants(event caddy.EventName) bool {
	if len(cfg.events) == 0 {
		return true
	}
	_, ok := cfg.events[event]
	return ok
}

// handle publishes l to all matching configurations. Publishing is
// synchronous as the process exits once the event has been handled
func (m *mqttPlugin) handle(event caddy.EventName, l *events.Lease) error {
	var errs []string

	for _, cfg := range m.configs {
		if err := m.publish(cfg, event, l); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to publish %s: %s", event, strings.Join(errs, "; "))
	}
	return nil
}

func (m *mqttPlugin) publish(cfg *mqttConfig, event caddy.EventName, l *events.Lease) error {
	if !cfg.wants(event) {
		return nil
	}

	match, err := cfg.Match(l)
	if err != nil {
		return fmt.Errorf("matching failed: %w", err)
	}
	if !match {
		return nil
	}

	cli, qos, err := m.getClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to get MQTT connection: %w", err)
	}

	topic, err := cfg.topic(l)
	if err != nil {
		return fmt.Errorf("failed to get MQTT topic: %w", err)
	}

	payload, err := cfg.payload(l)
	if err != nil {
		return fmt.Errorf("failed to get MQTT payload: %w", err)
	}

	token := cli.Publish(topic, byte(qos), cfg.retain, payload)
	if !token.WaitTimeout(m.timeout) {
		return errTimeout
	}
	if token.Error() != nil {
		return token.Error()
	}

	m.l.Debugf("published MQTT message to topic %s", topic)
	return nil
}

func (m *mqttPlugin) getClient(cfg *mqttConfig) (mqtt.Client, int, error) {
	// check if we should use a different configuration
	if cfg.name != "" && cfg.conn == nil {
		for _, c := range m.configs {
			if c.name == cfg.name && c.conn != nil {
				return m.getClient(c)
			}
		}
		return nil, 0, fmt.Errorf("MQTT configuration with name %q not found", cfg.name)
	}

	cfg.conn.l.Lock()
	defer cfg.conn.l.Unlock()

	if cfg.conn.c == nil {
		if err := cfg.conn.open(m.l, m.timeout); err != nil {
			return nil, 0, err
		}
	}

	return cfg.conn.c, cfg.conn.qos, nil
}

// close disconnects all open broker connections
func (m *mqttPlugin) close() {
	for _, cfg := range m.configs {
		if cfg.conn == nil {
			continue
		}

		cfg.conn.l.Lock()
		if cfg.conn.c != nil {
			cfg.conn.c.Disconnect(250)
			cfg.conn.c = nil
		}
		cfg.conn.l.Unlock()
	}
}

func (conn *mqttConnConfig) open(l log.Interface, timeout time.Duration) error {
	opts := mqtt.NewClientOptions()

	for _, b := range conn.broker {
		opts.AddBroker(b)
	}

	if conn.user != "" {
		opts.SetUsername(conn.user)
	}

	if conn.password != "" {
		opts.SetPassword(conn.password)
	}

	if conn.cleanSession {
		opts.SetCleanSession(true)
	}

	if conn.clientID != "" {
		opts.SetClientID(conn.clientID)
	}

	opts.SetConnectTimeout(timeout)

	cli := mqtt.NewClient(opts)

	var servers []string
	for _, s := range opts.Servers {
		servers = append(servers, s.String())
	}

	l.Debugf("connecting to MQTT brokers at %s", strings.Join(servers, ", "))
	token := cli.Connect()
	if !token.WaitTimeout(timeout) {
		return errTimeout
	}
	if token.Error() != nil {
		return token.Error()
	}
	l.Debugf("connected to MQTT brokers at %s", strings.Join(servers, ", "))

	conn.c = cli

	return nil
}

func getStringFactory(s string) msgFactory {
	return func(l *events.Lease) (string, error) {
		return replacer.NewReplacer(context.Background(), l).Replace(s), nil
	}
}
