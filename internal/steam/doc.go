// package steam is the workshop service surface.
//
// It mirrors the shape of the native client SDK: synchronous reads of locally cached state, and
// asynchronous requests whose results arrive through callbacks. Callbacks are queued and only run
// when [Client.RunCallbacks] is pumped, which callers do from a single worker goroutine.
//
// [WebClient] is the concrete implementation. It reads the local workshop manifest (appworkshop_<appid>.acf)
// for subscription and install state and talks to the Steam Web API for item details and unsubscribe requests.
package steam
