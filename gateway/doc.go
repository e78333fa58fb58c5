// Package gateway provides an optional HTTP RPC front end over an
// eqsql.Pusher/Puller/Observer/Cleaner backend, for Management Engines
// that prefer calling a remote service over linking the Postgres driver
// directly.
//
// # Overview
//
// The gateway is intentionally stateless: every request opens whatever
// connections it needs through the backend passed to NewServer and
// leaves nothing in memory between requests except the optional result
// cache. Each lifecycle operation in eqsql has a matching POST route;
// GET /ping and GET /shutdown round out the surface.
//
// # Shutdown
//
// GET /shutdown writes to a one-slot channel rather than calling
// os.Exit; Run selects on that channel alongside the process's own
// context and calls http.Server.Shutdown, so in-flight requests are
// allowed to finish.
//
// # Auth and caching
//
// Both are opt-in enrichments absent from the original protocol: bearer
// JWT auth (WithAuth) guards every POST route when a signing key is
// configured, and a short-TTL Redis cache (WithCache) sits in front of
// the query_result path; as_completed does not consult it. Neither changes the
// wire shape of a request that doesn't use them.
package gateway
