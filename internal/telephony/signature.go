package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

// ValidateSignature verifies a Twilio webhook signature: HMAC-SHA1 over the
// full URL concatenated with the sorted form parameters.
func ValidateSignature(authToken, signature, fullURL string, params map[string]string) bool {
	if authToken == "" || signature == "" {
		return false
	}

	data := fullURL
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data += k + params[k]
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(data))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// SignatureAuth validates requests under /twilio/ against the
// X-Twilio-Signature header. Validated form parameters are stashed in the
// echo context under "twilioParams". When no auth token is configured the
// middleware passes everything through (local development).
func SignatureAuth(getAuthToken func() string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !strings.HasPrefix(c.Request().URL.Path, "/twilio/") {
				return next(c)
			}

			authToken := getAuthToken()

			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return c.String(http.StatusBadRequest, "Failed to read request body")
			}
			form, err := url.ParseQuery(string(body))
			if err != nil {
				return c.String(http.StatusBadRequest, "Failed to parse form data")
			}
			params := make(map[string]string, len(form))
			for key, values := range form {
				if len(values) > 0 {
					params[key] = values[0]
				}
			}

			if authToken != "" {
				signature := c.Request().Header.Get("X-Twilio-Signature")
				requestURL := fmt.Sprintf("https://%s%s", c.Request().Host, c.Request().URL.Path)
				if !ValidateSignature(authToken, signature, requestURL, params) {
					return c.String(http.StatusUnauthorized, "Invalid Twilio signature")
				}
			}

			c.Set("twilioParams", params)
			return next(c)
		}
	}
}
