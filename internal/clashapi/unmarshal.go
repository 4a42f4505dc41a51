package clashapi

import (
	"encoding/json"
	"fmt"
)

// Wire shape of a clan as the API returns it. The roster cache stores
// clans in exactly this shape, so cached and live records stay
// structurally identical for the audit engine
type rawClan struct {
	Tag              string      `json:"tag"`
	Name             string      `json:"name"`
	Description      string      `json:"description,omitempty"`
	Type             string      `json:"type,omitempty"`
	ClanScore        int         `json:"clanScore"`
	RequiredTrophies int         `json:"requiredTrophies"`
	Members          int         `json:"members"`
	MemberList       []rawMember `json:"memberList"`
}

type rawMember struct {
	Tag       string `json:"tag"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	ExpLevel  int    `json:"expLevel"`
	Trophies  int    `json:"trophies"`
	Donations int    `json:"donations"`
}

func UnmarshalClan(data []byte) (Clan, error) {

	var raw rawClan
	if err := json.Unmarshal(data, &raw); err != nil {
		return Clan{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.Tag == "" || raw.Name == "" {
		return Clan{}, fmt.Errorf("%w: clan record has no tag or name", ErrMalformedResponse)
	}

	clan := Clan{
		Tag:              NormalizeTag(raw.Tag),
		Name:             raw.Name,
		Description:      raw.Description,
		Type:             raw.Type,
		Score:            raw.ClanScore,
		RequiredTrophies: raw.RequiredTrophies,
		MemberCount:      raw.Members,
	}
	for _, rawMem := range raw.MemberList {
		if rawMem.Tag == "" {
			return Clan{}, fmt.Errorf("%w: member of clan %s has no tag", ErrMalformedResponse, clan.Tag)
		}
		clan.Members = append(clan.Members, Member{
			Tag:       NormalizeTag(rawMem.Tag),
			Name:      rawMem.Name,
			Role:      ParseRole(rawMem.Role),
			ExpLevel:  rawMem.ExpLevel,
			Trophies:  rawMem.Trophies,
			Donations: rawMem.Donations,
			ClanTag:   clan.Tag,
			ClanName:  clan.Name,
		})
	}
	if clan.MemberCount == 0 {
		clan.MemberCount = len(clan.Members)
	}

	return clan, nil
}

// MarshalClan serializes a clan back into its API-native shape,
// which is the format the roster cache persists
func MarshalClan(clan Clan) ([]byte, error) {

	raw := rawClan{
		Tag:              clan.Tag.String(),
		Name:             clan.Name,
		Description:      clan.Description,
		Type:             clan.Type,
		ClanScore:        clan.Score,
		RequiredTrophies: clan.RequiredTrophies,
		Members:          clan.MemberCount,
		MemberList:       make([]rawMember, 0, len(clan.Members)),
	}
	for _, member := range clan.Members {
		raw.MemberList = append(raw.MemberList, rawMember{
			Tag:       member.Tag.String(),
			Name:      member.Name,
			Role:      member.Role.String(),
			ExpLevel:  member.ExpLevel,
			Trophies:  member.Trophies,
			Donations: member.Donations,
		})
	}

	return json.MarshalIndent(raw, "", "  ")
}

func UnmarshalPlayer(data []byte) (Player, error) {

	var raw struct {
		Tag          string `json:"tag"`
		Name         string `json:"name"`
		Trophies     int    `json:"trophies"`
		BestTrophies int    `json:"bestTrophies"`
		ExpLevel     int    `json:"expLevel"`
		Wins         int    `json:"wins"`
		Losses       int    `json:"losses"`
		Role         string `json:"role"`
		Clan         struct {
			Tag  string `json:"tag"`
			Name string `json:"name"`
		} `json:"clan"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Player{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.Tag == "" || raw.Name == "" {
		return Player{}, fmt.Errorf("%w: player record has no tag or name", ErrMalformedResponse)
	}

	return Player{
		Tag:          NormalizeTag(raw.Tag),
		Name:         raw.Name,
		Trophies:     raw.Trophies,
		BestTrophies: raw.BestTrophies,
		ExpLevel:     raw.ExpLevel,
		Wins:         raw.Wins,
		Losses:       raw.Losses,
		Role:         ParseRole(raw.Role),
		ClanTag:      NormalizeTag(raw.Clan.Tag),
		ClanName:     raw.Clan.Name,
	}, nil
}
