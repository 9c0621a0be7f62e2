// Package models defines the core domain models for settleup.
//
// # Records
//
// The following models are persisted by a storage backend:
//   - Group: a set of people sharing expenses
//   - Member: one person inside a group, identified by an opaque ID
//   - Expense: an amount paid by one member, attributed to members via Shares
//   - Share: the portion of an expense owed by one member
//   - Settlement: a transfer between two members, pending or completed
//
// Balances are never stored. They are derived from expenses, shares and
// completed settlements every time they are needed (see package calculator).
//
// # Design Principles
//
//  1. **Decimal money**: every amount is a decimal.Decimal, never a float64
//  2. **IDs, not pointers**: relationships are expressed with ID strings
//  3. **Validate at the boundary**: records coming from a store or an RPC are
//     checked with Validate before they reach the calculator
package models
