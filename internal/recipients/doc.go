// Package recipients decides who is mailed about which works.
//
// Raw author records are merged by exact email, works are indexed by every
// author ID they carry, and each merged recipient receives the deduplicated
// list of works reachable from any of its author IDs together with a
// salutation. Every stage is a pure function that leaves its inputs intact,
// so the work index built once can be shared by all recipients of a batch.
package recipients
