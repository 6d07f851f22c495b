package gotify

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/apex/log"
	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/leasehook/core/config"
	"github.com/nextdhcp/leasehook/core/events"
	"github.com/nextdhcp/leasehook/core/matcher"
	"github.com/nextdhcp/leasehook/core/replacer"
)

var hookSeq int32

func init() {
	config.RegisterDirective("gotify", setupGotify)
}

func setupGotify(c *caddy.Controller, cfg *config.Config) error {
	g, err := makeGotifyPlugin(c)
	if err != nil {
		return err
	}
	g.l = log.WithField("instance", cfg.Name)

	id := atomic.AddInt32(&hookSeq, 1)
	for _, ev := range events.Names() {
		events.RegisterLeaseEventHook(fmt.Sprintf("gotify-%s-%d-%s", cfg.Name, id, ev), ev, g.handle)
	}

	return nil
}

// makeGotifyPlugin parses
//
//	gotify [condition] {
//	    server <url> [token]
//	    token <token>
//	    message <template>
//	    title <template>
//	    priority <number>
//	    on <event...>
//	    if <condition>
//	    if_op and|or
//	}
//
// Server and token propagate to the gotify blocks below
func makeGotifyPlugin(c *caddy.Controller) (*gotifyPlugin, error) {
	g := &gotifyPlugin{
		l: log.Log,
	}

	for c.Next() {
		m, err := matcher.SetupMatcher(c)
		if err != nil {
			return nil, err
		}

		n := &notification{
			Matcher:  m,
			priority: defaultPriority,
		}

		for c.NextBlock() {
			switch c.Val() {
			case "message", "body":
				if !c.NextArg() {
					return nil, c.ArgErr()
				}
				n.msg = getStringFactory(c.Val())

			case "title":
				if !c.NextArg() {
					return nil, c.ArgErr()
				}
				n.title = getStringFactory(c.Val())

			case "server":
				args := c.RemainingArgs()
				if len(args) < 1 || len(args) > 2 {
					return nil, c.ArgErr()
				}
				n.srv = args[0]
				if len(args) == 2 {
					n.token = args[1]
				}

			case "token":
				if !c.NextArg() {
					return nil, c.ArgErr()
				}
				n.token = c.Val()

			case "priority":
				if !c.NextArg() {
					return nil, c.ArgErr()
				}
				p, err := strconv.Atoi(c.Val())
				if err != nil {
					return nil, c.Errf("invalid priority: %s", err)
				}
				n.priority = p

			case "on":
				names := c.RemainingArgs()
				if len(names) == 0 {
					return nil, c.ArgErr()
				}

				n.events = make(map[caddy.EventName]struct{})
				for _, name := range names {
					ev, ok := events.Lookup(name)
					if !ok {
						return nil, c.Errf("unknown lease event %q", name)
					}
					n.events[ev] = struct{}{}
				}

			case "if", "if_op":
				// already handled by the matcher
				c.RemainingArgs()

			default:
				return nil, c.Errf("unknown gotify setting %q", c.Val())
			}
		}

		if n.srv == "" && n.token == "" {
			srv, token, ok := g.findLastCreds()
			if !ok {
				return nil, c.Err("gotify server and token must be configured")
			}
			n.srv, n.token = srv, token
		}

		if n.srv == "" || n.token == "" {
			return nil, c.Err("gotify server and token must be configured together")
		}

		if !m.EmptyCondition() && n.msg == nil {
			return nil, c.Err("a message must be configured if a condition is used")
		}

		g.addNotification(n)
	}

	return g, nil
}

func getStringFactory(s string) msgFactory {
	return func(l *events.Lease) (string, error) {
		return replacer.NewReplacer(context.Background(), l).Replace(s), nil
	}
}
