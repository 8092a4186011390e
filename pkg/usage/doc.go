// Package usage implements the per-period usage counters behind quota
// enforcement. Redis holds the hot counters shared across instances; a cron
// snapshotter mirrors them into postgres so counters survive a cache flush.
// An in-memory store backs development and tests.
package usage
