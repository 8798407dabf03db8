// Package sti implements a reader and writer for STCI ("STI") sprite set
// files.
//
// An STI file stores either a single 16-bit RGB565 image or multiple 8-bit
// palette-indexed images sharing one 256-color palette, optionally
// compressed with ETRLE (extended transparent run length encoding) and
// optionally carrying per-direction animation metadata in an app data
// trailer.
//
// The decoder exposes the file as a sti.File with per-image decompressed
// pixel data; editing and repacking is handled by higher level packages
// (see package edit and package store).
package sti
