// Package reveal holds the scroll-reveal contract shared by the page templates and
// the browser script that runs it: an element marked data-reveal is revealed once
// enough of it is visible, after its data-reveal-delay. Elements marked
// data-reveal-once stay revealed; the rest hide again when they leave the viewport
// and reveal with the same delay on re-entry.
package reveal

import (
	_ "embed"
	"time"
)

const (
	// DefaultThreshold is the visible fraction at which an element counts as in view.
	DefaultThreshold = 0.2
	// DefaultStagger separates consecutive items of a group.
	DefaultStagger = 150 * time.Millisecond
)

// Script observes [data-reveal] elements and sets data-revealed on them.
//
//go:embed reveal.js
var Script []byte

// DelayMillis is the stagger delay of item i in milliseconds, as emitted in markup.
func DelayMillis(i int, base time.Duration) int64 {
	if i < 0 {
		i = 0
	}
	return (time.Duration(i) * base).Milliseconds()
}
