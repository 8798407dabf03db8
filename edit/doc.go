// Package edit maintains the in-memory editable representation of a
// decoded STI sprite set.
//
// A Collection aggregates the palette, the color mode and an ordered
// list of frame buffers. Around it sit the mutation policies: Paint
// applies the pixel tools, History keeps bounded deep-copy snapshots
// for undo and redo, Selection tracks single/multi/range frame
// selection, and Staging holds a tentative frame reorder until it is
// committed or cancelled.
//
// Session ties these together, translating user intents into
// collection mutations and enforcing the snapshot policy: one snapshot
// per completed paint stroke, one per committed structural edit, and
// no snapshots for staged (uncommitted) reorders.
//
// The package performs no file I/O. Persistence goes through the
// Service interface, implemented by package store.
package edit
