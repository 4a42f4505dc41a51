package bot

import (
	"clanaudit/internal/clashapi"
	"clanaudit/internal/linker"
	"clanaudit/internal/registry"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settingsPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "settings.json")
}

func TestOpenSettingsMissingFile(t *testing.T) {

	settings, err := OpenSettings(settingsPath(t))
	require.NoError(t, err)

	assert.Equal(t, "", settings.AuthToken())
	_, ok := settings.LastFetched()
	assert.False(t, ok)
}

func TestSettingsPersistAcrossReopen(t *testing.T) {

	path := settingsPath(t)
	settings, err := OpenSettings(path)
	require.NoError(t, err)

	require.NoError(t, settings.SetAuthToken("secret"))
	require.NoError(t, settings.SetClanAPIURL("https://example.com/clans/"))
	require.NoError(t, settings.AddClan("guild-1", registry.Clan{Name: "Gamma", Tag: "CCC", Type: registry.TierAffiliate}))
	require.NoError(t, settings.Link("guild-1", "user-1", "T1"))
	require.NoError(t, settings.SetRoleName("guild-1", "elder", "Senior"))

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, settings.SetLastFetched(now))

	reopened, err := OpenSettings(path)
	require.NoError(t, err)

	assert.Equal(t, "secret", reopened.AuthToken())
	assert.Equal(t, "https://example.com/clans/", reopened.ClanAPIURL())

	clans := reopened.GuildClans("guild-1")
	require.Len(t, clans, 1)
	assert.Equal(t, "Gamma", clans[0].Name)

	fetchedAt, ok := reopened.LastFetched()
	assert.True(t, ok)
	assert.True(t, fetchedAt.Equal(now))

	assert.Equal(t, "Senior", reopened.RoleNames("guild-1")["elder"])
	assert.Equal(t, "Co-Leader", reopened.RoleNames("guild-1")["coleader"])
}

func TestSettingsWriteLeavesNoTempFiles(t *testing.T) {

	path := settingsPath(t)
	settings, err := OpenSettings(path)
	require.NoError(t, err)
	require.NoError(t, settings.SetAuthToken("secret"))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(path), entries[0].Name())
}

func TestAddClanUpdatesExistingTag(t *testing.T) {

	settings, err := OpenSettings(settingsPath(t))
	require.NoError(t, err)

	require.NoError(t, settings.AddClan("guild-1", registry.Clan{Name: "Gamma", Tag: "CCC"}))
	require.NoError(t, settings.AddClan("guild-1", registry.Clan{Name: "Gamma Renamed", Tag: "CCC"}))

	clans := settings.GuildClans("guild-1")
	require.Len(t, clans, 1)
	assert.Equal(t, "Gamma Renamed", clans[0].Name)
}

func TestRemoveClan(t *testing.T) {

	settings, err := OpenSettings(settingsPath(t))
	require.NoError(t, err)
	require.NoError(t, settings.AddClan("guild-1", registry.Clan{Name: "Gamma", Tag: "CCC"}))

	removed, err := settings.RemoveClan("guild-1", "CCC")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = settings.RemoveClan("guild-1", "CCC")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestAssociationsAreSortedByUserID(t *testing.T) {

	settings, err := OpenSettings(settingsPath(t))
	require.NoError(t, err)
	require.NoError(t, settings.Link("guild-1", "user-b", "BBB"))
	require.NoError(t, settings.Link("guild-1", "user-a", "AAA"))
	require.NoError(t, settings.Link("guild-1", "user-c", "CCC"))

	assert.Equal(t, []linker.Association{
		{UserID: "user-a", Tag: clashapi.Tag("AAA")},
		{UserID: "user-b", Tag: clashapi.Tag("BBB")},
		{UserID: "user-c", Tag: clashapi.Tag("CCC")},
	}, settings.Associations("guild-1"))
}

func TestUnlink(t *testing.T) {

	settings, err := OpenSettings(settingsPath(t))
	require.NoError(t, err)
	require.NoError(t, settings.Link("guild-1", "user-1", "T1"))

	existed, err := settings.Unlink("guild-1", "user-1")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = settings.Unlink("guild-1", "user-1")
	require.NoError(t, err)
	assert.False(t, existed)
}
