// package workshop turns the callback-driven [steam.Client] into a request/response API.
//
// A [Workshop] owns the client and a single worker goroutine that pumps callbacks on a fixed
// interval. Bridge calls submit a request and hand back a [Future] that the callback resolves.
package workshop
