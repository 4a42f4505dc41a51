// Package linker resolves game account tags to Discord user identities
// from the stored association table
package linker

import (
	"clanaudit/internal/clashapi"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
)

// One entry of the association table: a Discord user claims a player tag
type Association struct {
	UserID string
	Tag    clashapi.Tag
}

// Linker indexes the association table once so that every resolution
// during an audit run is a map lookup
type Linker struct {
	byTag map[clashapi.Tag]string
}

// New builds the index from associations in table order. A tag mapped by
// more than one user keeps its first association: the ambiguity lives in
// the source data, so it is logged instead of silently deduplicated
func New(associations []Association) *Linker {

	byTag := make(map[clashapi.Tag]string, len(associations))
	for _, assoc := range associations {
		if first, ok := byTag[assoc.Tag]; ok {
			log.Warn().Msg(fmt.Sprintf("Tag %s is claimed by user %s but already linked to user %s, keeping the first", assoc.Tag, assoc.UserID, first))
			continue
		}
		byTag[assoc.Tag] = assoc.UserID
	}
	return &Linker{byTag: byTag}
}

// FromTable builds a linker from the persisted user-to-tag map. Map
// iteration order is randomized in Go, so entries are ordered by user ID
// first to keep "first association wins" deterministic across runs
func FromTable(table map[string]clashapi.Tag) *Linker {

	userIDs := make([]string, 0, len(table))
	for userID := range table {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	associations := make([]Association, 0, len(table))
	for _, userID := range userIDs {
		associations = append(associations, Association{UserID: userID, Tag: table[userID]})
	}
	return New(associations)
}

// Resolve returns the Discord user linked to a player tag.
// Absence is a valid, meaningful state: the member has no linked account
func (l *Linker) Resolve(tag clashapi.Tag) (string, bool) {
	userID, ok := l.byTag[tag]
	return userID, ok
}

func (l *Linker) Len() int {
	return len(l.byTag)
}
