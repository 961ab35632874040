// Package aggregates implements the domain aggregate contracts on GORM.
//
// Aggregates compose the table repos in internal/data/repos and own the
// transaction around every write that must keep a project board consistent.
package aggregates
