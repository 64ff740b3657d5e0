// Package session is the only home of per-user state: the single-use OAuth transient pair and the Spotify tokens.
//
// # Store
//
// [Store] is an explicit session context handed to every operation that needs it. It exposes a
// read/write/clear contract instead of ambient access, and [Store.TakeTransient] reads and
// clears the OAuth state/verifier pair in one call so a callback can consume it only once.
//
// # Cookie Store
//
// [CookieStore] keeps everything in four cookies (access_token, refresh_token, oauth_state,
// oauth_code_verifier). There is no server-side memory: a [Manager] binds a store to each
// request. Cookies are HttpOnly, SameSite=Lax, Path=/ and Secure in production.
//
// Values are sealed by [Codec] (XChaCha20-Poly1305, CBOR payload carrying an absolute expiry),
// so clients can neither read tokens nor forge or extend entries. Values that fail to open are
// treated as absent.
//
// # Memory Store
//
// [MemoryStore] backs the terminal play mode, where a single local user drives the flow.
package session
