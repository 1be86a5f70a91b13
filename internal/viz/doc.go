// Package viz draws yarn simulations in the terminal.
//
// Rendering is built on a braille [Canvas] (2x4 dots per cell) viewed from
// the side: world X runs right and world Y runs up. [DrawSample] draws the
// floor line, the guide ring and the yarn polyline of one sample.
//
// [LiveModel] is a Bubble Tea model that steps a scene in real time.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Rebuild the scene and restart
//	Q     - Quit
//
// [SnapshotSVG] turns a canvas into a standalone SVG image.
package viz
