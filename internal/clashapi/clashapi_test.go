package clashapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clanPayload(tag, name string) string {
	return fmt.Sprintf(`{"tag": "#%s", "name": "%s", "memberList": []}`, tag, name)
}

func TestGetClansPreservesRequestOrder(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/clans/%23AAA", "/clans/#AAA":
			fmt.Fprint(w, clanPayload("AAA", "Alpha"))
		case "/clans/%23BBB", "/clans/#BBB":
			fmt.Fprint(w, clanPayload("BBB", "Beta"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL+"/clans/", "", "token", nil)
	clans, err := client.GetClans(context.Background(), []Tag{"AAA", "BBB"})
	require.NoError(t, err)

	require.Len(t, clans, 2)
	assert.Equal(t, "Alpha", clans[0].Name)
	assert.Equal(t, "Beta", clans[1].Name)
}

func TestGetClansIsAllOrNothing(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/clans/%23AAA" || r.URL.Path == "/clans/#AAA" {
			fmt.Fprint(w, clanPayload("AAA", "Alpha"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/clans/", "", "token", nil)
	clans, err := client.GetClans(context.Background(), []Tag{"AAA", "BBB"})

	assert.Nil(t, clans)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, IsAPIError(err))
}

func TestGetClanSendsAuthHeader(t *testing.T) {

	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, clanPayload("AAA", "Alpha"))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/clans/", "", "secret", nil)
	_, err := client.GetClan(context.Background(), "AAA")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)

	client.SetToken("rotated")
	_, err = client.GetClan(context.Background(), "AAA")
	require.NoError(t, err)
	assert.Equal(t, "Bearer rotated", gotAuth)
}

func TestGetClanMalformedBody(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"unexpected": true}`)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/clans/", "", "token", nil)
	_, err := client.GetClan(context.Background(), "AAA")
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.True(t, IsAPIError(err))
}

func TestGetClanWithoutConfiguredURL(t *testing.T) {
	client := NewClient("", "", "token", nil)
	_, err := client.GetClan(context.Background(), "AAA")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGetPlayer(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tag": "#T1", "name": "X", "role": "member"}`)
	}))
	defer server.Close()

	client := NewClient("", server.URL+"/players/", "token", nil)
	player, err := client.GetPlayer(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, "X", player.Name)
}
