// Package rights models a musical work's ownership chain: per-territory
// forests of publisher and composer claims with four independent share axes
// (mechanical/performance crossed with ownership/collection), an arena-based
// chain editor with incrementally maintained rollups, and the validator that
// enforces the per-territory 100% apportionment invariant.
//
// Validation distinguishes structural errors (duplicate territories, a
// claimant referencing neither or both parties) from invariant violations;
// the former reject the chain outright while the latter are returned as data
// for the caller to act on.
package rights
