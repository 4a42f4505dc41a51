package bot

import (
	"clanaudit/internal/clashapi"
	"clanaudit/internal/linker"
	"clanaudit/internal/registry"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// Per-guild settings: tracked clans, the user-to-tag association table
// and the Discord role names for the in-game ranks
type guildSettings struct {
	Clans     []registry.Clan         `json:"clans"`
	Players   map[string]clashapi.Tag `json:"players"`
	RoleNames map[string]string       `json:"role_names"`
}

type settingsData struct {
	ClanAPIURL     string                    `json:"clan_api_url"`
	PlayerAPIURL   string                    `json:"player_api_url"`
	AuthToken      string                    `json:"auth_token"`
	CacheTimestamp time.Time                 `json:"cache_timestamp"`
	Guilds         map[string]*guildSettings `json:"guilds"`
}

// Settings is the flat JSON settings document with typed accessors.
// Every mutation is persisted immediately with an atomic write, so a
// half-written file can never be read back
type Settings struct {
	mu   sync.Mutex
	path string
	data settingsData
}

// OpenSettings loads the settings file, creating an empty document when
// none exists yet
func OpenSettings(path string) (*Settings, error) {

	s := &Settings{path: path, data: settingsData{Guilds: map[string]*guildSettings{}}}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "reading settings file")
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, pkgerrors.Wrap(err, "parsing settings file")
	}
	if s.data.Guilds == nil {
		s.data.Guilds = map[string]*guildSettings{}
	}
	return s, nil
}

// save must be called with the mutex held
func (s *Settings) save() error {

	raw, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(err, "encoding settings")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pkgerrors.Wrap(err, "creating settings directory")
	}
	tmp, err := os.CreateTemp(dir, "settings.*.tmp")
	if err != nil {
		return pkgerrors.Wrap(err, "creating settings temp file")
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return pkgerrors.Wrap(err, "writing settings")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return pkgerrors.Wrap(err, "closing settings temp file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return pkgerrors.Wrap(err, "publishing settings file")
	}
	return nil
}

// guild must be called with the mutex held
func (s *Settings) guild(guildID string) *guildSettings {
	guild, ok := s.data.Guilds[guildID]
	if !ok {
		guild = &guildSettings{Players: map[string]clashapi.Tag{}, RoleNames: map[string]string{}}
		s.data.Guilds[guildID] = guild
	}
	if guild.Players == nil {
		guild.Players = map[string]clashapi.Tag{}
	}
	if guild.RoleNames == nil {
		guild.RoleNames = map[string]string{}
	}
	return guild
}

func (s *Settings) AuthToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.AuthToken
}

func (s *Settings) SetAuthToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.AuthToken = token
	return s.save()
}

func (s *Settings) ClanAPIURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ClanAPIURL
}

func (s *Settings) SetClanAPIURL(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ClanAPIURL = url
	return s.save()
}

func (s *Settings) PlayerAPIURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.PlayerAPIURL
}

func (s *Settings) SetPlayerAPIURL(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.PlayerAPIURL = url
	return s.save()
}

// LastFetched implements roster.TimestampStore. The second value is
// false when no successful fetch was ever recorded
func (s *Settings) LastFetched() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.CacheTimestamp.IsZero() {
		return time.Time{}, false
	}
	return s.data.CacheTimestamp, true
}

func (s *Settings) SetLastFetched(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.CacheTimestamp = t
	return s.save()
}

// GuildClans returns the clans registered for a guild on top of the
// static family configuration, in registration order
func (s *Settings) GuildClans(guildID string) []registry.Clan {
	s.mu.Lock()
	defer s.mu.Unlock()
	guild := s.guild(guildID)
	clans := make([]registry.Clan, len(guild.Clans))
	copy(clans, guild.Clans)
	return clans
}

// AddClan registers a clan for a guild. Re-adding a tag updates the
// stored descriptor in place
func (s *Settings) AddClan(guildID string, clan registry.Clan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	guild := s.guild(guildID)
	for i := range guild.Clans {
		if guild.Clans[i].Tag == clan.Tag {
			guild.Clans[i] = clan
			return s.save()
		}
	}
	guild.Clans = append(guild.Clans, clan)
	return s.save()
}

// RemoveClan drops a registered clan by tag. The first value is false
// when the tag was not registered
func (s *Settings) RemoveClan(guildID string, tag clashapi.Tag) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	guild := s.guild(guildID)
	for i := range guild.Clans {
		if guild.Clans[i].Tag == string(tag) {
			guild.Clans = append(guild.Clans[:i], guild.Clans[i+1:]...)
			return true, s.save()
		}
	}
	return false, nil
}

// Link associates a Discord user with a player tag
func (s *Settings) Link(guildID, userID string, tag clashapi.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guild(guildID).Players[userID] = tag
	return s.save()
}

// Unlink drops a user's association. The first value is false when no
// association existed
func (s *Settings) Unlink(guildID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	guild := s.guild(guildID)
	if _, ok := guild.Players[userID]; !ok {
		return false, nil
	}
	delete(guild.Players, userID)
	return true, s.save()
}

// Associations returns the guild's association table ordered by user ID,
// which keeps first-match-wins linking deterministic
func (s *Settings) Associations(guildID string) []linker.Association {
	s.mu.Lock()
	defer s.mu.Unlock()
	guild := s.guild(guildID)

	userIDs := make([]string, 0, len(guild.Players))
	for userID := range guild.Players {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	associations := make([]linker.Association, 0, len(userIDs))
	for _, userID := range userIDs {
		associations = append(associations, linker.Association{UserID: userID, Tag: guild.Players[userID]})
	}
	return associations
}

// SetRoleName associates an in-game rank with a Discord role name
func (s *Settings) SetRoleName(guildID, rank, roleName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guild(guildID).RoleNames[rank] = roleName
	return s.save()
}

// RoleNames returns the guild's rank role names, with defaults filled in
func (s *Settings) RoleNames(guildID string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	guild := s.guild(guildID)

	names := map[string]string{
		"member":   "Member",
		"elder":    "Elder",
		"coleader": "Co-Leader",
		"leader":   "Leader",
	}
	for rank, roleName := range guild.RoleNames {
		names[rank] = roleName
	}
	return names
}
