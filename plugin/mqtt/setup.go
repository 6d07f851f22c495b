package mqtt

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/apex/log"
	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/leasehook/core/config"
	"github.com/nextdhcp/leasehook/core/events"
	"github.com/nextdhcp/leasehook/core/matcher"
)

var hookSeq int32

func init() {
	config.RegisterDirective("mqtt", setupMqtt)
}

func setupMqtt(c *caddy.Controller, cfg *config.Config) error {
	plg, err := makeMqttPlugin(c)
	if err != nil {
		return err
	}

	plg.l = log.WithField("instance", cfg.Name)

	id := atomic.AddInt32(&hookSeq, 1)
	for _, ev := range events.Names() {
		events.RegisterLeaseEventHook(fmt.Sprintf("mqtt-%s-%d-%s", cfg.Name, id, ev), ev, plg.handle)
	}

	cfg.OnFinish(func(_ context.Context, _ config.Summary) error {
		plg.close()
		return nil
	})

	return nil
}

// makeMqttPlugin parses
//
//	mqtt [condition] {
//	    name <name>
//	    broker <url...>
//	    user <user>
//	    password <password>
//	    client-id <id>
//	    clean-session
//	    qos <0-2>
//	    use <name>
//	    topic <template>
//	    payload <template>
//	    retain
//	    on <event...>
//	    timeout <duration>
//	    if <condition>
//	    if_op and|or
//	}
func makeMqttPlugin(c *caddy.Controller) (*mqttPlugin, error) {
	plg := &mqttPlugin{
		timeout: defaultTimeout,
		l:       log.Log,
	}

	for c.Next() {
		cfg := &mqttConfig{}
		useExisting := false

		cond, err := matcher.SetupMatcher(c)
		if err != nil {
			return nil, err
		}
		cfg.Matcher = cond

		for c.NextBlock() {
			switch c.Val() {
			case "name", "broker", "user", "password",
				"client-id", "clean-session", "qos":
				if useExisting {
					return nil, c.SyntaxErr("either configure a new connection or \"use\" and existing one")
				}

				if err := parseConnectionSettings(cfg, c); err != nil {
					return nil, err
				}

			case "use":
				if cfg.conn != nil {
					return nil, c.SyntaxErr("either configure a new connection or \"use\" and existing one")
				}
				useExisting = true

				if !c.NextArg() {
					return nil, c.ArgErr()
				}
				cfg.name = c.Val()

			case "topic":
				if !c.NextArg() {
					return nil, c.ArgErr()
				}

				cfg.topic = getStringFactory(c.Val())

			case "payload", "body":
				if !c.NextArg() {
					return nil, c.ArgErr()
				}

				cfg.payload = getStringFactory(c.Val())

			case "retain":
				cfg.retain = true

			case "on":
				names := c.RemainingArgs()
				if len(names) == 0 {
					return nil, c.ArgErr()
				}

				cfg.events = make(map[caddy.EventName]struct{})
				for _, n := range names {
					ev, ok := events.Lookup(n)
					if !ok {
						return nil, c.Errf("unknown lease event %q", n)
					}
					cfg.events[ev] = struct{}{}
				}

			case "timeout":
				if !c.NextArg() {
					return nil, c.ArgErr()
				}

				d, err := time.ParseDuration(c.Val())
				if err != nil {
					return nil, c.Errf("invalid timeout: %s", err)
				}
				plg.timeout = d

			case "if", "if_op":
				// already handled by the matcher
				c.RemainingArgs()

			default:
				return nil, c.Errf("unknown mqtt setting %q", c.Val())
			}
		}

		if !useExisting && (cfg.conn == nil || len(cfg.conn.broker) == 0) {
			return nil, c.SyntaxErr("Either configure a MQTT broker or \"use\" an existing connection")
		}

		if cfg.topic == nil {
			cfg.topic = getStringFactory(defaultTopic)
		}
		if cfg.payload == nil {
			cfg.payload = getStringFactory(defaultPayload)
		}

		plg.configs = append(plg.configs, cfg)
	}

	return plg, nil
}

const (
	defaultTopic   = "leasehook/{instance}/{event}"
	defaultPayload = "{mac} {ip} {hostname} {location}"
)

func parseConnectionSettings(cfg *mqttConfig, c *caddy.Controller) error {
	if cfg.conn == nil {
		cfg.conn = &mqttConnConfig{}
	}

	action := c.Val()
	if action == "clean-session" {
		cfg.conn.cleanSession = true
		return nil
	}

	if !c.NextArg() {
		return c.ArgErr()
	}

	switch action {
	case "name":
		cfg.name = c.Val()
	case "broker":
		cfg.conn.broker = append([]string{c.Val()}, c.RemainingArgs()...)
	case "user":
		cfg.conn.user = c.Val()
	case "password":
		cfg.conn.password = c.Val()
	case "client-id":
		cfg.conn.clientID = c.Val()
	case "qos":
		i, err := strconv.Atoi(c.Val())
		if err != nil || i < 0 || i > 2 {
			return c.SyntaxErr("expected a number between 0 and 2")
		}
		cfg.conn.qos = i
	}

	return nil
}
