package atlas_test

import (
	"testing"

	"github.com/MU-CMAP/narrative-geographies/internal/atlas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseViewMode(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want atlas.ViewMode
	}{
		{"stories", atlas.ModeStories},
		{"STORIES", atlas.ModeStories},
		{"data", atlas.ModeData},
		{" Data ", atlas.ModeData},
	} {
		got, err := atlas.ParseViewMode(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}

	_, err := atlas.ParseViewMode("satellite")
	assert.Error(t, err)
}

func TestStoreDefaults(t *testing.T) {
	st := atlas.NewStore(atlas.ModeStories)

	assert.Equal(t, atlas.ModeStories, st.Mode())
	assert.False(t, st.MenuOpen())
	assert.False(t, st.StoryPanelOpen())
	assert.True(t, st.Story().IsZero())
	assert.Equal(t, atlas.Filters{}, st.Filters())
}

func TestUpdateFilterMergesSingleField(t *testing.T) {
	st := atlas.NewStore(atlas.ModeStories)

	require.NoError(t, st.UpdateFilter("theme", "displacement"))
	require.NoError(t, st.UpdateFilter("dateRange", "1960s"))
	require.NoError(t, st.UpdateFilter("mediaType", "video"))

	f := st.Filters()
	assert.Equal(t, "displacement", f.Theme)
	assert.Equal(t, "1960s", f.DateRange)
	assert.Equal(t, "video", f.MediaType)

	// only the named field moves
	require.NoError(t, st.UpdateFilter("mediaType", "audio"))
	f = st.Filters()
	assert.Equal(t, "audio", f.MediaType)
	assert.Equal(t, "displacement", f.Theme)
	assert.Equal(t, "1960s", f.DateRange)
}

func TestUpdateFilterRejectsUnknownKey(t *testing.T) {
	st := atlas.NewStore(atlas.ModeStories)
	require.NoError(t, st.UpdateFilter("theme", "industry"))

	before := st.Filters()
	err := st.UpdateFilter("genre", "noir")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "genre")
	assert.Equal(t, before, st.Filters())
}
