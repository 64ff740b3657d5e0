package ui

import (
	"github.com/hanbin8269/spotify-vs/internal/models"
	"github.com/hanbin8269/spotify-vs/internal/tasks"
)

// tracksFetchedMsg carries the result of a draw. gen identifies the draw it belongs to.
type tracksFetchedMsg struct {
	gen    int
	tracks []models.Track
	err    error
}

// progressUpdateMsg relays a sampler update for draw gen.
type progressUpdateMsg struct {
	gen    int
	update tasks.ProgressUpdate
}
