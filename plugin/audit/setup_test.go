package audit

import (
	"testing"

	"github.com/nextdhcp/leasehook/plugin/test"
	"github.com/stretchr/testify/assert"
)

func TestAuditSetup(t *testing.T) {
	c, cfg := test.CreateTestBed(t, "audit /var/log/leasehook.txt")
	assert.NoError(t, setupAudit(c, cfg))
	assert.Equal(t, "/var/log/leasehook.txt", cfg.AuditPath)

	for _, input := range []string{
		"audit",
		"audit a b",
		"audit a\naudit b",
	} {
		c, cfg = test.CreateTestBed(t, input)
		assert.Error(t, setupAudit(c, cfg), input)
		assert.Equal(t, "/tmp/parse.leases.txt", cfg.AuditPath, input)
	}
}
