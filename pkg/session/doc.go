/*
Package session implements per-user session management and persistence
orchestration.

It provides high-level abstractions for handling concurrent access to wizard
sessions across multiple replicas, integrating in-process mutual exclusion
with distributed locking and long-term storage adapters.
*/
package session
