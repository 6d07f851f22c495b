package matcher

import (
	"strings"

	"github.com/caddyserver/caddy"
)

// ParseConditions parses the current dispenser block for if and if_op
// conditions and returns them as a single, concatenated expression string
// usable for govaluate.NewEvaluableExpression() and similar. The operator
// used to join the conditions is returned as well
func ParseConditions(c *caddy.Controller) (string, string, error) {
	var conds []string
	var op = "&&"
	var disp = c.Dispenser // get a copy of the dispenser so we don't actually consume the block

	for disp.NextBlock() {
		switch disp.Val() {
		case "if":
			args := disp.RemainingArgs()
			if len(args) == 0 {
				return "", "", disp.ArgErr()
			}
			conds = append(conds, strings.Join(args, " "))

		case "if_op":
			if !disp.NextArg() {
				return "", "", disp.ArgErr()
			}

			switch disp.Val() {
			case "and", "&&":
				op = "&&"
			case "or", "||":
				op = "||"
			default:
				return "", "", disp.Errf("unknown condition operator %q", disp.Val())
			}

		default:
			// other keys belong to the directive
			disp.RemainingArgs()
		}
	}

	return join(conds, op), op, nil
}
