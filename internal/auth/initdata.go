package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strings"

	"github.com/jason-s-yu/spyparty/internal/game"
	"github.com/jason-s-yu/spyparty/internal/models"
)

// ErrBotTokenMissing is returned when signed initData arrives but no bot token is configured.
var ErrBotTokenMissing = errors.New("BOT_TOKEN is not configured")

// InitDataVerifier checks Telegram WebApp initData strings.
type InitDataVerifier struct {
	BotToken string
	// Bypass skips the signature check and only decodes the user field.
	Bypass bool
}

// Verify validates initData and returns the user it describes.
func (v InitDataVerifier) Verify(raw string) (models.User, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return models.User{}, game.Unauthorized("initData malformed")
	}
	if !v.Bypass {
		if v.BotToken == "" {
			return models.User{}, ErrBotTokenMissing
		}
		received := values.Get("hash")
		if received == "" {
			return models.User{}, game.Unauthorized("initData hash missing")
		}
		values.Del("hash")
		if !hmac.Equal([]byte(Sign(v.BotToken, values)), []byte(received)) {
			return models.User{}, game.Unauthorized("initData signature invalid")
		}
	}

	rawUser := values.Get("user")
	if rawUser == "" {
		return models.User{}, game.Unauthorized("user not provided in initData")
	}
	return decodeUser(rawUser)
}

// Sign computes the hex initData hash of values (which must not contain "hash").
func Sign(botToken string, values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

type telegramUser struct {
	ID        json.Number `json:"id"`
	Username  string      `json:"username"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
}

func decodeUser(raw string) (models.User, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var tu telegramUser
	if err := dec.Decode(&tu); err != nil || tu.ID == "" {
		return models.User{}, game.Unauthorized("user data invalid")
	}
	if _, err := tu.ID.Int64(); err != nil {
		return models.User{}, game.Unauthorized("user data invalid")
	}
	return models.User{
		ID:        tu.ID.String(),
		Username:  tu.Username,
		FirstName: tu.FirstName,
		LastName:  tu.LastName,
	}, nil
}
