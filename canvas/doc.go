// Package canvas tracks where pipeline stages sit on the builder canvas.
// It is pure geometry: positions snap to a fixed grid, clamp to the canvas
// bounds, and stay independent of stage configuration. The layout keeps at
// most one instance of each stage kind and preserves placement order so
// exported documents are stable.
package canvas
