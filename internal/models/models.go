package models

// Track is a contestant in a bracket.
//
// PreviewURL is nil when Spotify offers no 30 second preview for the track.
type Track struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Artists     string  `json:"artists"` // artist names joined with ", "
	AlbumArtURL string  `json:"album_art_url"`
	PreviewURL  *string `json:"preview_url"`
	ExternalURL string  `json:"external_url"`
}

// Profile is the normalized view of the current Spotify user.
type Profile struct {
	ID            string  `json:"id"`
	DisplayName   string  `json:"display_name"`
	FollowerCount int     `json:"follower_count"`
	ImageURL      *string `json:"image_url"`
}
