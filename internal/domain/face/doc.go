// Package face holds the value types shared by the capture and comparison
// workflow: images, capture modes, outcomes, one-shot events and UI state.
package face
