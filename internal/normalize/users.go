package normalize

import (
	"strconv"

	"taskboard/internal/models"
)

// UserLookup resolves an assignee reference to a user.
type UserLookup interface {
	LookupUser(ref string) (models.User, bool)
}

// UserIndex is a lookup table over the most recently fetched users. Each user is
// reachable by its canonical id and by its legacy numeric id.
type UserIndex map[string]models.User

// NewUserIndex builds an index; when two users claim the same key the first wins.
func NewUserIndex(users []models.User) UserIndex {
	index := make(UserIndex, len(users)*2)
	for _, user := range users {
		index.add(user.ID, user)
		if user.LegacyID != 0 {
			index.add(strconv.FormatInt(user.LegacyID, 10), user)
		}
	}
	return index
}

func (idx UserIndex) add(key string, user models.User) {
	if key == "" {
		return
	}
	if _, taken := idx[key]; taken {
		return
	}
	idx[key] = user
}

// LookupUser implements UserLookup.
func (idx UserIndex) LookupUser(ref string) (models.User, bool) {
	if ref == "" {
		return models.User{}, false
	}
	user, ok := idx[ref]
	return user, ok
}
