/*
Package ports defines the interfaces between the Balcão core and its
collaborators: the product catalog, the order backend, the durable
session repository and the cache tier.

Adapters under pkg/adapters implement these interfaces. The core only
depends on the contracts, which keeps the engine testable with in-memory
fakes.
*/
package ports
