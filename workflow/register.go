package workflow

import (
	"github.com/wansing/perspective-lims/core"
)

// Register wires the dispatcher into the tool: it subscribes the dispatcher and the preparation completion,
// installs the basic guard and the preparation chain for the given portal types, and validates the handlers
// and guard expressions against the workflow definitions.
func Register(c *core.CoreDB, d *Dispatcher, prep *PrepCompletion, prepTypes ...string) error {

	if err := d.Handlers.Validate(c.Workflows); err != nil {
		return err
	}

	c.Guards[BasicGuard] = d.IsBasicTransitionAllowed
	if err := c.ValidateGuards(); err != nil {
		return err
	}

	for _, portalType := range prepTypes {
		c.ChainResolvers[portalType] = PrepChain(c)
	}

	c.Subscribe(d)
	if prep != nil {
		c.Subscribe(prep)
	}
	return nil
}
