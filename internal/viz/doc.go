// Package viz renders simulation results in the terminal.
//
// Static output goes through asciigraph charts and lipgloss tables. The
// interactive viewers are Bubble Tea programs:
//
//   - [Replay]: steps through a finished run, drawing the tank on a Braille
//     [Canvas] next to a chart of the selected series
//   - [Menu]: picks a preset, runs it and opens the replay
//
// # Key Bindings
//
//	Space - Play/Pause
//	[ ]   - Step backward/forward
//	R     - Rewind to the start
//	Tab   - Cycle charted series
//	+ -   - Playback speed
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
