package clock

import "go.uber.org/fx"

// Module provides the wall clock and the shared timestamp sequencer.
var Module = fx.Provide(
	func() Clock { return System{} },
	NewSequencer,
)
