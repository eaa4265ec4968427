package domain

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxGroupNameLength is the maximum rune length of a group name.
const MaxGroupNameLength = 255

// Group is a conversation or project owned by exactly one principal.
type Group struct {
	ID               int64
	OwnerPrincipalID int64
	Name             string
	CreatedAt        time.Time
}

// Scope returns the namespace pseudonyms of this group are generated in.
func (g *Group) Scope() string {
	return GroupScope(g.ID)
}

// IsOwnedBy reports whether principalID owns the group.
func (g *Group) IsOwnedBy(principalID int64) bool {
	return g.OwnerPrincipalID == principalID
}

// GroupScope returns the pseudonym scope of groupID.
func GroupScope(groupID int64) string {
	return "group:" + strconv.FormatInt(groupID, 10)
}

// ValidateGroupName trims name and checks its length.
func ValidateGroupName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxGroupNameLength {
		return "", ErrInvalidGroupName
	}
	return name, nil
}
