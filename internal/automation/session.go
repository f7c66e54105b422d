package automation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Формат блоба сессии, который хранится в boost_accounts.session.
// Менеджер аккаунтов его не разбирает.
type sessionBlob struct {
	Version int      `json:"v"`
	Cookies []Cookie `json:"cookies"`
}

const sessionVersion = 1

var errEmptyCookies = errors.New("список cookies пуст")

// encodeSession упаковывает cookies в блоб сессии.
func encodeSession(cookies []Cookie) ([]byte, error) {
	if len(cookies) == 0 {
		return nil, errEmptyCookies
	}
	return json.Marshal(sessionBlob{Version: sessionVersion, Cookies: cookies})
}

// decodeSession достаёт cookies из блоба. Пустой блоб — пустой список.
func decodeSession(blob []byte) ([]Cookie, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	var s sessionBlob
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, fmt.Errorf("повреждённый блоб сессии: %w", err)
	}
	return s.Cookies, nil
}

// importedCookie понимает и наш формат, и формат браузерных расширений,
// где срок жизни лежит в expirationDate.
type importedCookie struct {
	Cookie
	ExpirationDate float64 `json:"expirationDate"`
}

// EncodeCookies превращает JSON-массив cookies, снятых во внешнем браузере,
// в блоб сессии.
func EncodeCookies(raw json.RawMessage) ([]byte, error) {
	var in []importedCookie
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("cookies должны быть JSON-массивом: %w", err)
	}

	cookies := make([]Cookie, 0, len(in))
	for _, c := range in {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		if c.Expires == 0 {
			c.Expires = c.ExpirationDate
		}
		c.SameSite = normalizeSameSite(c.SameSite)
		cookies = append(cookies, c.Cookie)
	}
	return encodeSession(cookies)
}

// normalizeSameSite приводит значения вида "no_restriction"/"lax" к Strict/Lax/None.
func normalizeSameSite(v string) string {
	switch strings.ToLower(v) {
	case "strict":
		return "Strict"
	case "lax":
		return "Lax"
	case "none", "no_restriction":
		return "None"
	}
	return ""
}
