package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
)

// RoundSizes are the bracket sizes offered when no count was given.
var RoundSizes = []int{8, 16, 32, 64, 128}

var _ list.Item = sizeItem(0)

// sizeItem is one round size in the size picker.
type sizeItem int

func (i sizeItem) FilterValue() string { return fmt.Sprint(int(i)) }
func (i sizeItem) Title() string       { return fmt.Sprintf("Round of %d", int(i)) }
func (i sizeItem) Description() string {
	return fmt.Sprintf("%d matches from %d liked tracks", int(i)-1, int(i))
}

func newSizeList(width, height int) list.Model {
	items := make([]list.Item, len(RoundSizes))
	for i, n := range RoundSizes {
		items[i] = sizeItem(n)
	}
	l := list.New(items, list.NewDefaultDelegate(), width, height)
	l.Title = "Pick a bracket size"
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	return l
}
