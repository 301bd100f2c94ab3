// Package value defines the typed discovery records that flow through a
// reconnaissance run.
//
// Every record implements Value. Two comparisons exist and are never mixed:
//
//   - Equal compares strict identity (same Kind and same Key) and drives
//     deduplication.
//   - Subsumes answers whether one value's scope covers another. It is
//     directional, defined per ordered pair of kinds and false for any pair
//     that has no rule.
//
// Marshal and Unmarshal implement the canonical tagged record
// {"type": <kind>, ...fields}; optional fields are omitted when empty.
package value
