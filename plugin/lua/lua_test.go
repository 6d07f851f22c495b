package lua

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/leasehook/core/events"
	"github.com/nextdhcp/leasehook/core/lease"
	"github.com/nextdhcp/leasehook/core/matcher"
	"github.com/nextdhcp/leasehook/plugin/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

func writeScript(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "hook.lua")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func commitLease(t *testing.T) *events.Lease {
	reg := lease.NewRegistry(nil)
	res, err := reg.Apply(lease.NewEvent(lease.KindCommit, "aa:bb", "10.0.0.5", "rsa-tc_a1234"))
	require.NoError(t, err)

	return &events.Lease{
		Result:   res,
		Instance: "pod-manager",
		Time:     time.Unix(42, 0),
		Note:     lease.NoteCommitted,
	}
}

func TestScriptHookCall(t *testing.T) {
	path := writeScript(t, `
	function on_lease(l)
		if l.hostname ~= "rsa-tc" then
			return nil
		end
		return {
			message = l.event .. " " .. l.mac .. " " .. l.ip .. " " .. l.location .. " " .. tostring(l.changed) .. " " .. l.time,
			level = "warn"
		}
	end
	`)

	s := &scriptHook{path: path}
	require.NoError(t, s.load())
	defer s.close()

	action, err := s.call(commitLease(t))
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, "lease-committed aa:bb 10.0.0.5 .112 true 42", action.Message)
	assert.Equal(t, "warn", action.Level)
}

func TestScriptHookLoadErrors(t *testing.T) {
	s := &scriptHook{path: writeScript(t, `function on_lease(`)}
	assert.Error(t, s.load())

	s = &scriptHook{path: writeScript(t, `handler = 1`)}
	assert.Error(t, s.load())

	s = &scriptHook{path: filepath.Join(t.TempDir(), "missing.lua")}
	assert.Error(t, s.load())

	s = &scriptHook{}
	_, err := s.call(commitLease(t))
	assert.Error(t, err)
}

func TestScriptHookRuntimeError(t *testing.T) {
	s := &scriptHook{path: writeScript(t, `function on_lease(l) error("boom") end`)}
	require.NoError(t, s.load())
	defer s.close()

	_, err := s.call(commitLease(t))
	assert.Error(t, err)
}

func TestLuaPluginHandle(t *testing.T) {
	emptyMatcher, _ := matcher.SetupMatcherString("")
	alwaysFalse, _ := matcher.SetupMatcherString("1 == 0")

	script := writeScript(t, `
	calls = 0
	function on_lease(l)
		calls = calls + 1
		return { message = "seen " .. l.mac }
	end
	`)

	handler := memory.New()
	p := &luaPlugin{
		l: &log.Logger{Handler: handler, Level: log.DebugLevel},
		scripts: []*scriptHook{
			{Matcher: emptyMatcher, path: script},
			{Matcher: alwaysFalse, path: script},
			{
				Matcher: emptyMatcher,
				path:    script,
				events:  map[caddy.EventName]struct{}{events.EventLeaseExpired: {}},
			},
		},
	}
	for _, s := range p.scripts {
		require.NoError(t, s.load())
	}
	defer p.close()

	require.NoError(t, p.handle(events.EventLeaseCommitted, commitLease(t)))

	require.Len(t, handler.Entries, 1)
	assert.Equal(t, "seen aa:bb", handler.Entries[0].Message)
	assert.Equal(t, log.InfoLevel, handler.Entries[0].Level)
	assert.Equal(t, script, handler.Entries[0].Fields.Get("script"))

	assert.Equal(t, float64(1), float64(p.scripts[0].vm.GetGlobal("calls").(lua.LNumber)))
	assert.Equal(t, float64(0), float64(p.scripts[1].vm.GetGlobal("calls").(lua.LNumber)))
}

func TestLuaSetup(t *testing.T) {
	c, _ := test.CreateTestBed(t, `
	lua /etc/leasehook/hook.lua hostname == 'iSCSI' {
		on committed lease-released
		if mac == 'aa:bb'
		if_op or
	}
	lua /etc/leasehook/other.lua
	`)

	p, err := makeLuaPlugin(c)
	require.NoError(t, err)
	require.Len(t, p.scripts, 2)

	assert.Equal(t, "/etc/leasehook/hook.lua", p.scripts[0].path)
	assert.False(t, p.scripts[0].EmptyCondition())
	assert.Equal(t, map[caddy.EventName]struct{}{
		events.EventLeaseCommitted: {},
		events.EventLeaseReleased:  {},
	}, p.scripts[0].events)

	assert.Equal(t, "/etc/leasehook/other.lua", p.scripts[1].path)
	assert.True(t, p.scripts[1].EmptyCondition())
}

func TestLuaSetupErrors(t *testing.T) {
	cases := []string{
		"lua",
		"lua hook.lua {\n on\n}",
		"lua hook.lua {\n on renewed\n}",
		"lua hook.lua {\n unknown\n}",
	}

	for i, input := range cases {
		c, _ := test.CreateTestBed(t, input)
		_, err := makeLuaPlugin(c)
		assert.Error(t, err, "case #%d", i)
	}
}

func TestSetupLuaLoadsScripts(t *testing.T) {
	c, cfg := test.CreateTestBed(t, "lua "+filepath.Join(t.TempDir(), "missing.lua"))
	assert.Error(t, setupLua(c, cfg))

	script := writeScript(t, `function on_lease(l) end`)
	c, cfg = test.CreateTestBed(t, "lua "+script)
	require.NoError(t, setupLua(c, cfg))
	assert.Len(t, cfg.Finishers(), 1)
}
