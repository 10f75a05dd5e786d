/*
Package session implements the hybrid two-tier session store.

Reads prefer the cache tier and fall back to the durable tier, repairing
the cache on restore. Writes go durable-first but tolerate a durable
hiccup if the cache accepted the write: chat continuity is valued over
strict consistency, and a periodic sync sweep reconciles the tiers.

Per-phone refcounted mutexes serialize get-modify-put cycles for the
same phone number, so two near-simultaneous messages cannot clobber each
other's context changes.
*/
package session
