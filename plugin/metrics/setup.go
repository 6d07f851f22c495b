package metrics

import (
	"strings"

	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/leasehook/core/config"
)

func init() {
	config.RegisterDirective("metrics", setupMetrics)
}

func setupMetrics(c *caddy.Controller, cfg *config.Config) error {
	metrics, err := parse(c)
	if err != nil {
		return err
	}

	cfg.OnFinish(metrics.write)
	return nil
}

// metrics /var/lib/node_exporter/leasehook.prom {
//	label instance {instance}
// }
func parse(c *caddy.Controller) (*Metrics, error) {
	var metrics *Metrics

	for c.Next() {
		if metrics != nil {
			return nil, c.Err("metrics: can only have one metrics textfile per instance")
		}

		args := c.RemainingArgs()
		if len(args) != 1 {
			return nil, c.ArgErr()
		}
		metrics = NewMetrics(args[0])

		for c.NextBlock() {
			switch c.Val() {
			case "label":
				args = c.RemainingArgs()
				if len(args) != 2 {
					return nil, c.ArgErr()
				}

				labelName := strings.TrimSpace(args[0])
				if !validLabelName(labelName) {
					return nil, c.Errf("metrics: invalid label name %q", labelName)
				}

				metrics.extraLabels = append(metrics.extraLabels, extraLabel{name: labelName, value: args[1]})
			default:
				return nil, c.Errf("metrics: unknown item: %s", c.Val())
			}
		}
	}

	return metrics, nil
}
