// Package models defines the domain entities shared by the sampler, the bracket engine and the HTTP surface.
//
//   - [Track] : a saved song reduced to what a bracket needs to render and link out
//   - [Profile] : the signed-in user's normalized Spotify profile
//
// Both are immutable values built from Spotify Web API payloads by the services package.
package models
