// Package aggregates defines the write boundaries of the planning domain.
//
// Contracts here carry no persistence details. Each aggregate method is one
// atomic unit in which board invariants are checked and enforced.
package aggregates
