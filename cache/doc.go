// Package cache holds OmniFocus query results between calls.
//
// Results are partitioned into categories (tasks, projects, tags,
// folders, analytics, reviews), each with its own TTL. Entries expire
// lazily at read time. Writes report what they touched as invalidation
// events, which evict only the entries whose scope overlaps the write,
// plus the same scope in dependent categories. Concurrent misses on one
// key share a single fetch.
package cache
