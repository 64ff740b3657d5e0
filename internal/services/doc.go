// Package services is the client for the Spotify Web API.
//
// # Requests
//
// [SpotifyService] is shared across users and holds the HTTP client, a [rate.Limiter] and a
// gobreaker circuit breaker. Tokens are passed per call, or bound once with [SpotifyService.For]:
//
//	client := svc.For(accessToken, store.Clear)
//	page, err := client.SavedTracks(ctx, 50, 0)
//
// # Error Handling
//
// Outcomes are kept distinct so callers can react differently:
//   - [ErrUnauthorized] : Spotify answered 401; the bound onUnauthorized hook has already run
//   - [*UpstreamError] : any other failure, including an open circuit (503); matches [shared.ErrAPIRequest]
//
// The body of a failed response is kept on the error for logging and is never meant for end users.
//
// # API Mappings
//
// Response types convert into the domain models:
//   - [SpotifySavedTrack] → [models.Track], dropping items whose track is null
//   - [SpotifyUser] → [models.Profile], with followers defaulting to 0 and the first image as the avatar
package services
