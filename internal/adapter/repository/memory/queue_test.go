package memory

import (
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightmansam/feishin/internal/domain"
)

func newTestQueueRepository() *QueueRepository {
	return NewQueueRepository(test.NewApp().Preferences())
}

func TestQueueRepository_SaveAndLoadQueue(t *testing.T) {
	repo := newTestQueueRepository()

	songs := []domain.QueueSong{
		{UniqueID: "u1", ID: "s1", ServerID: "srv", Title: "Song 1", Duration: 3 * time.Minute, StreamURL: "http://srv/1"},
		{UniqueID: "u2", ID: "s2", ServerID: "srv", Title: "Song 2", UserFavorite: true, UserRating: 4},
	}
	require.NoError(t, repo.SaveQueue(songs))

	loaded, err := repo.LoadQueue()
	require.NoError(t, err)
	assert.Equal(t, songs, loaded)
}

func TestQueueRepository_LoadQueue_Empty(t *testing.T) {
	repo := newTestQueueRepository()

	loaded, err := repo.LoadQueue()
	require.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

func TestQueueRepository_LoadQueue_AssignsMissingIDs(t *testing.T) {
	app := test.NewApp()
	app.Preferences().SetString(keyQueueSongs, `[{"ID":"s1"},{"ID":"s1"}]`)
	repo := NewQueueRepository(app.Preferences())

	loaded, err := repo.LoadQueue()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.NotEmpty(t, loaded[0].UniqueID)
	assert.NotEqual(t, loaded[0].UniqueID, loaded[1].UniqueID)
}

func TestQueueRepository_LoadQueue_Corrupt(t *testing.T) {
	app := test.NewApp()
	app.Preferences().SetString(keyQueueSongs, "[{")
	repo := NewQueueRepository(app.Preferences())

	_, err := repo.LoadQueue()
	var repoErr *domain.RepositoryError
	assert.ErrorAs(t, err, &repoErr)
}

func TestQueueRepository_Current(t *testing.T) {
	repo := newTestQueueRepository()

	current, err := repo.LoadCurrent()
	require.NoError(t, err)
	assert.Empty(t, current)

	require.NoError(t, repo.SaveCurrent("u2"))
	current, _ = repo.LoadCurrent()
	assert.Equal(t, "u2", current)

	require.NoError(t, repo.SaveCurrent(""))
	current, _ = repo.LoadCurrent()
	assert.Empty(t, current)
}

func TestQueueRepository_Modes(t *testing.T) {
	repo := newTestQueueRepository()

	shuffle, repeat, err := repo.LoadModes()
	require.NoError(t, err)
	assert.False(t, shuffle)
	assert.Equal(t, domain.RepeatNone, repeat)

	require.NoError(t, repo.SaveModes(true, domain.RepeatNone))
	shuffle, repeat, _ = repo.LoadModes()
	assert.True(t, shuffle)
	assert.Equal(t, domain.RepeatNone, repeat, "a saved RepeatNone is distinguishable from unset")

	require.NoError(t, repo.SaveModes(false, domain.RepeatOne))
	_, repeat, _ = repo.LoadModes()
	assert.Equal(t, domain.RepeatOne, repeat)
}

func TestQueueRepository_Clear(t *testing.T) {
	repo := newTestQueueRepository()

	require.NoError(t, repo.SaveQueue([]domain.QueueSong{{UniqueID: "u1"}}))
	require.NoError(t, repo.SaveCurrent("u1"))
	require.NoError(t, repo.SaveModes(true, domain.RepeatAll))
	require.NoError(t, repo.Clear())

	songs, _ := repo.LoadQueue()
	current, _ := repo.LoadCurrent()
	shuffle, repeat, _ := repo.LoadModes()
	assert.Empty(t, songs)
	assert.Empty(t, current)
	assert.False(t, shuffle)
	assert.Equal(t, domain.RepeatNone, repeat)
}
