package clashapi

import (
	"clanaudit/internal/common"
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"
)

// Any transport failure, non-2xx status or rate rejection
var ErrUnavailable = errors.New("clan api unavailable")

// The API answered but the payload does not have the expected shape
var ErrMalformedResponse = errors.New("malformed clan api response")

// IsAPIError reports whether the error came out of the API client.
// Both kinds trigger the same caller behaviour: fall back to the
// roster cache where a fallback exists, fail the call where not
func IsAPIError(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrMalformedResponse)
}

// Client speaks to the external clan API. Base urls are configurable at
// runtime because the community mirrors move around
type Client struct {
	clanURL   string
	playerURL string
	proxy     common.Proxy
}

func NewClient(clanURL, playerURL, token string, restrictions []common.Restriction) *Client {
	return &Client{
		clanURL:   clanURL,
		playerURL: playerURL,
		proxy:     common.NewProxy(map[string]string{"Authorization": "Bearer " + token}, restrictions),
	}
}

func (client *Client) SetToken(token string) {
	client.proxy.SetHeader("Authorization", "Bearer "+token)
}

func (client *Client) SetClanURL(clanURL string) {
	client.clanURL = clanURL
}

func (client *Client) SetPlayerURL(playerURL string) {
	client.playerURL = playerURL
}

// GetClan fetches a single clan with its full member list
func (client *Client) GetClan(ctx context.Context, tag Tag) (Clan, error) {

	data, err := client.request(ctx, client.clanURL, tag)
	if err != nil {
		return Clan{}, err
	}
	return UnmarshalClan(data)
}

// GetClans fetches all requested tags as one batch, fanning out one
// request per tag. The batch is all-or-nothing: any failed tag fails the
// whole call, and results come back in request order
func (client *Client) GetClans(ctx context.Context, tags []Tag) ([]Clan, error) {

	type clanResult struct {
		index int
		clan  Clan
		err   error
	}
	results := make(chan clanResult, len(tags))
	var wg sync.WaitGroup
	for i, tag := range tags {
		wg.Add(1)
		go func(index int, tag Tag) {
			defer wg.Done()
			clan, err := client.GetClan(ctx, tag)
			results <- clanResult{index: index, clan: clan, err: err}
		}(i, tag)
	}

	// Wait for every outstanding fetch before deciding anything:
	// partial completion must never leak to the caller
	wg.Wait()
	close(results)

	clans := make([]Clan, len(tags))
	for result := range results {
		if result.err != nil {
			return nil, result.err
		}
		clans[result.index] = result.clan
	}
	return clans, nil
}

// GetPlayer fetches a single player profile. There is no cache fallback
// for players: an API error fails the call
func (client *Client) GetPlayer(ctx context.Context, tag Tag) (Player, error) {

	data, err := client.request(ctx, client.playerURL, tag)
	if err != nil {
		return Player{}, err
	}
	return UnmarshalPlayer(data)
}

func (client *Client) request(ctx context.Context, base string, tag Tag) ([]byte, error) {

	if base == "" {
		return nil, fmt.Errorf("%w: no api url configured", ErrUnavailable)
	}
	requestURL := base + url.PathEscape(tag.String())
	log.Debug().Msg(fmt.Sprintf("Requesting url %s", requestURL))

	data, err := client.proxy.Get(ctx, requestURL)
	if err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Request for tag %s failed", tag))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}
