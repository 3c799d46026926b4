package auth

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/spyparty/internal/models"
)

// AdminList holds the users allowed to use dev tools.
type AdminList struct {
	ids       map[string]struct{}
	usernames map[string]struct{}
}

// NewAdminList parses comma separated numeric ids and usernames. Invalid ids
// are logged and skipped.
func NewAdminList(ids, usernames string, logger logrus.FieldLogger) *AdminList {
	a := &AdminList{ids: map[string]struct{}{}, usernames: map[string]struct{}{}}
	for _, chunk := range strings.Split(ids, ",") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		n, err := strconv.ParseInt(chunk, 10, 64)
		if err != nil {
			logger.WithField("value", chunk).Warn("skipping invalid dev admin id")
			continue
		}
		a.ids[strconv.FormatInt(n, 10)] = struct{}{}
	}
	for _, chunk := range strings.Split(usernames, ",") {
		if name := NormalizeUsername(chunk); name != "" {
			a.usernames[name] = struct{}{}
		}
	}
	return a
}

// NormalizeUsername strips a leading @ and lowercases.
func NormalizeUsername(name string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(name), "@"))
}

// IsAdmin reports whether u is listed by id or username.
func (a *AdminList) IsAdmin(u models.User) bool {
	if _, ok := a.ids[u.ID]; ok {
		return true
	}
	name := NormalizeUsername(u.Username)
	_, ok := a.usernames[name]
	return name != "" && ok
}

// Len is the number of configured ids and usernames.
func (a *AdminList) Len() int { return len(a.ids) + len(a.usernames) }
