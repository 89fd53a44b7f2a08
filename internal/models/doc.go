// Package models defines the core domain models for splitbot.
//
// # Models
//
//   - Expense: one priced, splittable activity posted in a group chat
//     (a game fee, a dinner). Members opt in as participants and one of
//     them pays the full price.
//   - Member: a chat user. Members carry a running balance per group.
//   - Group: a chat together with its per-group defaults.
//
// # Lifecycle
//
// An expense starts active. From there it is either finished (its deltas
// have been applied to member balances) or deleted (soft). A finished
// expense goes back to active through edit, which reverses the balances;
// a deleted one goes back through restore. Nothing is hard-deleted.
//
// # Money
//
// Prices and balances are decimal.Decimal values. Binary floating point is
// never used for money.
package models
