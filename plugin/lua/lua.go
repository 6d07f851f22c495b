package lua

import (
	"errors"
	"fmt"
	"sync"

	"github.com/apex/log"
	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/leasehook/core/events"
	"github.com/nextdhcp/leasehook/core/matcher"
	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
)

// HandlerName is the global function a hook script must define. It is
// called with a table describing the lease event
const HandlerName = "on_lease"

// Action may be returned by a hook script to have leasehook log a message
//
//	return { message = "new tray controller", level = "warn" }
type Action struct {
	Message string
	Level   string
}

// scriptHook runs a Lua script for matching lease events
type scriptHook struct {
	*matcher.Matcher
	path   string
	events map[caddy.EventName]struct{}

	l  sync.Mutex
	vm *lua.LState // access protected by l
}

// load executes the script at path and checks that it defines the lease
// handler
func (s *scriptHook) load() error {
	vm := lua.NewState()
	if err := vm.DoFile(s.path); err != nil {
		vm.Close()
		return fmt.Errorf("lua: %s: %w", s.path, err)
	}

	if vm.GetGlobal(HandlerName).Type() != lua.LTFunction {
		vm.Close()
		return fmt.Errorf("lua: %s: function %s is not defined", s.path, HandlerName)
	}

	s.vm = vm
	return nil
}

// leaseTable converts l to a Lua table using the same keys that are
// available in conditions
func leaseTable(vm *lua.LState, l *events.Lease) *lua.LTable {
	tbl := vm.NewTable()

	for key, value := range matcher.Params(l) {
		switch v := value.(type) {
		case string:
			tbl.RawSetString(key, lua.LString(v))
		case bool:
			tbl.RawSetString(key, lua.LBool(v))
		}
	}

	if !l.Time.IsZero() {
		tbl.RawSetString("time", lua.LNumber(l.Time.Unix()))
	}

	return tbl
}

// call invokes the lease handler of the script and returns the action
// it requested, if any
func (s *scriptHook) call(l *events.Lease) (*Action, error) {
	s.l.Lock()
	defer s.l.Unlock()

	if s.vm == nil {
		return nil, errors.New("script not loaded")
	}

	err := s.vm.CallByParam(lua.P{
		Fn:      s.vm.GetGlobal(HandlerName),
		NRet:    1,
		Protect: true,
	}, leaseTable(s.vm, l))
	if err != nil {
		return nil, err
	}

	ret := s.vm.Get(-1)
	s.vm.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, nil
	}

	var action Action
	if err := gluamapper.Map(tbl, &action); err != nil {
		return nil, fmt.Errorf("invalid return value: %w", err)
	}

	return &action, nil
}

func (s *scriptHook) close() {
	s.l.Lock()
	defer s.l.Unlock()

	if s.vm != nil {
		s.vm.Close()
		s.vm = nil
	}
}

// luaPlugin dispatches lease events to all configured scripts
type luaPlugin struct {
	scripts []*scriptHook
	l       log.Interface
}

func (p *luaPlugin) handle(event caddy.EventName, l *events.Lease) error {
	var lastErr error

	for _, s := range p.scripts {
		if len(s.events) > 0 {
			if _, ok := s.events[event]; !ok {
				continue
			}
		}

		matched, err := s.Match(l)
		if err != nil {
			lastErr = fmt.Errorf("lua: %s: %w", s.path, err)
			continue
		}

		if !matched {
			continue
		}

		action, err := s.call(l)
		if err != nil {
			lastErr = fmt.Errorf("lua: %s: %w", s.path, err)
			continue
		}

		if action != nil && action.Message != "" {
			p.logAction(s.path, action)
		}
	}

	return lastErr
}

func (p *luaPlugin) logAction(path string, a *Action) {
	l := p.l.WithField("script", path)

	level, err := log.ParseLevel(a.Level)
	if a.Level == "" || err != nil {
		level = log.InfoLevel
	}

	switch level {
	case log.DebugLevel:
		l.Debug(a.Message)
	case log.WarnLevel:
		l.Warn(a.Message)
	case log.ErrorLevel, log.FatalLevel:
		l.Error(a.Message)
	default:
		l.Info(a.Message)
	}
}

func (p *luaPlugin) close() {
	for _, s := range p.scripts {
		s.close()
	}
}
