package lua

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/apex/log"
	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/leasehook/core/config"
	"github.com/nextdhcp/leasehook/core/events"
	"github.com/nextdhcp/leasehook/core/matcher"
)

var hookSeq int32

func init() {
	config.RegisterDirective("lua", setupLua)
}

func setupLua(c *caddy.Controller, cfg *config.Config) error {
	p, err := makeLuaPlugin(c)
	if err != nil {
		return err
	}
	p.l = log.WithField("instance", cfg.Name)

	for _, s := range p.scripts {
		if err := s.load(); err != nil {
			p.close()
			return c.Err(err.Error())
		}
	}

	id := atomic.AddInt32(&hookSeq, 1)
	for _, ev := range events.Names() {
		events.RegisterLeaseEventHook(fmt.Sprintf("lua-%s-%d-%s", cfg.Name, id, ev), ev, p.handle)
	}

	cfg.OnFinish(func(context.Context, config.Summary) error {
		p.close()
		return nil
	})

	return nil
}

// makeLuaPlugin parses
//
//	lua <script> [condition] {
//	    on <event...>
//	    if <condition>
//	    if_op and|or
//	}
func makeLuaPlugin(c *caddy.Controller) (*luaPlugin, error) {
	p := &luaPlugin{
		l: log.Log,
	}

	for c.Next() {
		if !c.NextArg() {
			return nil, c.ArgErr()
		}

		s := &scriptHook{
			path: c.Val(),
		}

		m, err := matcher.SetupMatcher(c)
		if err != nil {
			return nil, err
		}
		s.Matcher = m

		for c.NextBlock() {
			switch c.Val() {
			case "on":
				names := c.RemainingArgs()
				if len(names) == 0 {
					return nil, c.ArgErr()
				}

				s.events = make(map[caddy.EventName]struct{})
				for _, name := range names {
					ev, ok := events.Lookup(name)
					if !ok {
						return nil, c.Errf("unknown lease event %q", name)
					}
					s.events[ev] = struct{}{}
				}

			case "if", "if_op":
				// already handled by the matcher
				c.RemainingArgs()

			default:
				return nil, c.Errf("unknown lua setting %q", c.Val())
			}
		}

		p.scripts = append(p.scripts, s)
	}

	return p, nil
}
