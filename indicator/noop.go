package indicator

import "piserver/tag"

// Noop implements Indicator but does nothing.
// Used when no indicators are configured.
type Noop struct{}

func (n *Noop) Idle()                  {}
func (n *Noop) TagPresent(uid tag.UID) {}
func (n *Noop) Playing(label string)   {}
func (n *Noop) Failed(msg string)      {}
func (n *Noop) ConnectionLost()        {}
func (n *Noop) Shutdown()              {}
func (n *Noop) Release() error         { return nil }
