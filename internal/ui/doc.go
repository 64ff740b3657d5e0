// Package ui implements the terminal bracket using bubbletea's Elm architecture.
//
// The TUI walks through four views:
//  1. [SizeView] : pick a round size (skipped when a count was given)
//  2. [LoadingView] : sample liked tracks while reporting progress
//  3. [MatchView] : pick the winner of each pair
//  4. [ChampionView] : show the winning track
//
// The [Model] implements bubbletea's Init/Update/View pattern. Progress updates flow through a channel
// from the [Drawer], and every pick goes through the [tournament.Engine].
//
// Keys: ←/h/1 and →/l/2 pick a side, r draws a new bracket, q quits.
package ui
