// Package puzzle decides piece status transitions for a project board.
//
// Everything here is pure: callers pass a snapshot of a project's pieces and
// persist whatever the functions return.
package puzzle
