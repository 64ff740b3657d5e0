// Spotify Web API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"strings"

	"github.com/hanbin8269/spotify-vs/internal/models"
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   *followers     `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// ToProfile normalizes the user. Missing followers count as zero and the first image, if any, is used.
func (u SpotifyUser) ToProfile() models.Profile {
	p := models.Profile{ID: u.ID, DisplayName: u.DisplayName}
	if u.Followers != nil {
		p.FollowerCount = u.Followers.Total
	}
	if len(u.Images) > 0 && u.Images[0].URL != "" {
		img := u.Images[0].URL
		p.ImageURL = &img
	}
	return p
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	PreviewURL   *string         `json:"preview_url"`
	ExternalURLs externalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

// ToTrack converts the track into the domain model. Artist names are joined with ", ".
func (t SpotifyTrack) ToTrack() models.Track {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}

	var art string
	if len(t.Album.Images) > 0 {
		art = t.Album.Images[0].URL
	}

	var preview *string
	if t.PreviewURL != nil && *t.PreviewURL != "" {
		p := *t.PreviewURL
		preview = &p
	}

	return models.Track{
		ID:          t.ID,
		Name:        t.Name,
		Artists:     strings.Join(names, ", "),
		AlbumArtURL: art,
		PreviewURL:  preview,
		ExternalURL: t.ExternalURLs.Spotify,
	}
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items    []SpotifySavedTrack `json:"items"`
	Total    int                 `json:"total"`
	Limit    int                 `json:"limit"`
	Offset   int                 `json:"offset"`
	Next     *string             `json:"next"`
	Previous *string             `json:"previous"`
}

// HasMore reports whether the API advertised a further page.
func (p *SpotifyPaginatedTracks) HasMore() bool {
	return p.Next != nil && *p.Next != ""
}

// Tracks converts the page items, dropping entries without a playable track.
func (p *SpotifyPaginatedTracks) Tracks() []models.Track {
	tracks := make([]models.Track, 0, len(p.Items))
	for _, item := range p.Items {
		if t, ok := item.ToTrack(); ok {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

// SpotifySavedTrack represents a track saved in the user's library.
//
// Track is null for songs that were removed from the catalog.
type SpotifySavedTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// ToTrack converts the saved item. The boolean is false when the item has no usable track.
func (s SpotifySavedTrack) ToTrack() (models.Track, bool) {
	if s.Track == nil || s.Track.ID == "" {
		return models.Track{}, false
	}
	return s.Track.ToTrack(), true
}
