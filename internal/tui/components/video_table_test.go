package components

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sampleVideos() []domain.Video {
	return []domain.Video{
		{VideoID: "a", Title: "Cat compilation", Uploader: "InnahBee"},
		{VideoID: "b", Title: "Dog tricks", Uploader: "Paws"},
		{VideoID: "c", Title: "Another cat video", Uploader: "Paws"},
	}
}

func newTable(t *testing.T) *VideoTable {
	t.Helper()
	tbl := NewVideoTable()
	tbl.SetSize(120, 10)
	tbl.SetVideos(sampleVideos())
	return tbl
}

func TestVideoTable_Navigation(t *testing.T) {
	tbl := newTable(t)

	v, ok := tbl.Selected()
	require.True(t, ok)
	assert.Equal(t, "a", v.VideoID)

	tbl.Update(keys("j"))
	tbl.Update(keys("j"))
	tbl.Update(keys("j")) // clamps at the end
	v, _ = tbl.Selected()
	assert.Equal(t, "c", v.VideoID)

	tbl.Update(keys("g"))
	v, _ = tbl.Selected()
	assert.Equal(t, "a", v.VideoID)
}

func TestVideoTable_SelectionSurvivesReload(t *testing.T) {
	tbl := newTable(t)
	tbl.Update(keys("j"))

	reordered := sampleVideos()
	reordered[0], reordered[1] = reordered[1], reordered[0]
	tbl.SetVideos(reordered)

	v, _ := tbl.Selected()
	assert.Equal(t, "b", v.VideoID)
}

func TestVideoTable_QuickFilter(t *testing.T) {
	tbl := newTable(t)

	tbl.Update(keys("/"))
	require.True(t, tbl.IsFiltering())
	tbl.Update(keys("cat"))

	assert.Equal(t, 2, tbl.ItemCount())
	assert.Equal(t, "cat", tbl.FilterQuery())
	assert.Len(t, tbl.Videos(), 3, "the filter never drops rows")

	// Enter keeps the filter but returns to navigation
	tbl.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, tbl.IsFiltering())
	tbl.Update(keys("j"))
	v, _ := tbl.Selected()
	assert.Contains(t, []string{"a", "c"}, v.VideoID)

	// Esc clears it and keeps the selection
	tbl.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, 3, tbl.ItemCount())
	after, _ := tbl.Selected()
	assert.Equal(t, v.VideoID, after.VideoID)
}

func TestVideoTable_FilterMatchesUploader(t *testing.T) {
	tbl := newTable(t)

	tbl.Update(keys("/"))
	tbl.Update(keys("innah"))

	require.Equal(t, 1, tbl.ItemCount())
	v, _ := tbl.Selected()
	assert.Equal(t, "a", v.VideoID)
}

func TestVideoTable_View(t *testing.T) {
	tbl := newTable(t)

	view := tbl.View(func(v domain.Video) string { return "job:" + v.VideoID })
	assert.Contains(t, view, "TITLE")
	assert.Contains(t, view, "Dog tricks")
	assert.Contains(t, view, "job:b")

	empty := NewVideoTable()
	empty.SetSize(120, 10)
	assert.Contains(t, empty.View(func(domain.Video) string { return "" }), "No videos")
}

func TestTableKeyMap_Help(t *testing.T) {
	help := DefaultTableKeyMap().Help()
	require.Len(t, help, 11)
	assert.Equal(t, "k/↑", help[0].Key)
	assert.Equal(t, "previous video", help[0].Desc)
	assert.Equal(t, "clear filter", help[len(help)-1].Desc)
}
