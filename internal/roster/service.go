package roster

import (
	"clanaudit/internal/clashapi"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Where a batch of clan records came from. A single fetch is always
// all-live or all-cache, never a mix
type Source int

const (
	SourceLive Source = iota
	SourceCache
)

func (s Source) String() string {
	if s == SourceLive {
		return "live"
	}
	return "cache"
}

// Fetcher is the slice of the API client the service needs
type Fetcher interface {
	GetClans(ctx context.Context, tags []clashapi.Tag) ([]clashapi.Clan, error)
}

// TimestampStore records when the last successful live fetch happened.
// The settings store implements it
type TimestampStore interface {
	LastFetched() (time.Time, bool)
	SetLastFetched(t time.Time) error
}

// Result of a family fetch. FetchedAt is when the data was obtained from
// the API: now for live results, the recorded fetch time for cached ones.
// A cache result with no recorded timestamp at all means there is no
// usable data, which NoUsableData reports
type Result struct {
	Clans       []clashapi.Clan
	Source      Source
	FetchedAt   time.Time
	MissingTags []clashapi.Tag
}

// NoUsableData reports a fallback that produced nothing trustworthy:
// served from cache with no successful fetch ever recorded
func (r Result) NoUsableData() bool {
	return r.Source == SourceCache && r.FetchedAt.IsZero()
}

type Service struct {
	client Fetcher
	cache  Cache
	stamps TimestampStore
}

func NewService(client Fetcher, cache Cache, stamps TimestampStore) *Service {
	return &Service{client: client, cache: cache, stamps: stamps}
}

// FetchFamily fetches all requested tags as one batch from the API and,
// on success, persists every returned clan to the cache. On any API
// failure the whole batch is served from the cache instead; tags with no
// cache entry are omitted from the result and listed in MissingTags.
// The returned error is reserved for failures outside the fetch-or-
// fallback contract (an unreachable API with cold cache is not an error)
func (s *Service) FetchFamily(ctx context.Context, tags []clashapi.Tag) (Result, error) {

	clans, err := s.client.GetClans(ctx, tags)
	if err == nil {
		now := time.Now().UTC()
		for _, clan := range clans {
			if err := s.cache.Save(clan); err != nil {
				log.Warn().Err(err).Msg(fmt.Sprintf("Could not cache roster of clan %s", clan.Tag))
			}
		}
		if err := s.stamps.SetLastFetched(now); err != nil {
			log.Warn().Err(err).Msg("Could not record fetch timestamp")
		}
		return Result{Clans: clans, Source: SourceLive, FetchedAt: now}, nil
	}

	if !clashapi.IsAPIError(err) {
		return Result{}, err
	}
	log.Warn().Err(err).Msg("API fetch failed, falling back to roster cache")

	result := Result{Source: SourceCache}
	if fetchedAt, ok := s.stamps.LastFetched(); ok {
		result.FetchedAt = fetchedAt
	}
	for _, tag := range tags {
		clan, err := s.cache.Load(tag)
		if errors.Is(err, ErrCacheMiss) {
			log.Warn().Msg(fmt.Sprintf("No cache entry for tag %s, omitting from results", tag))
			result.MissingTags = append(result.MissingTags, tag)
			continue
		}
		if err != nil {
			log.Error().Err(err).Msg(fmt.Sprintf("Could not load cached roster for tag %s", tag))
			result.MissingTags = append(result.MissingTags, tag)
			continue
		}
		result.Clans = append(result.Clans, clan)
	}
	return result, nil
}

// FlattenMembers turns a batch of clans into the ordered member list the
// audit engine iterates: clan order first, then the member order the API
// returned. Every member already carries its owning clan
func FlattenMembers(clans []clashapi.Clan) []clashapi.Member {
	var members []clashapi.Member
	for _, clan := range clans {
		members = append(members, clan.Members...)
	}
	return members
}
