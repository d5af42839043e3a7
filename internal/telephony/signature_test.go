package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func signRequest(authToken, fullURL string, params map[string]string) string {
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
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateSignature(t *testing.T) {
	params := map[string]string{"CallSid": "CA1", "From": "+15550001111"}
	fullURL := "https://example.com/twilio/voice"
	sig := signRequest("tok", fullURL, params)
	if !ValidateSignature("tok", sig, fullURL, params) {
		t.Fatalf("expected valid signature to pass")
	}
	if ValidateSignature("tok", "bogus", fullURL, params) {
		t.Fatalf("expected bogus signature to fail")
	}
	if ValidateSignature("", sig, fullURL, params) {
		t.Fatalf("expected empty token to fail")
	}
}

func newSignatureTestServer(token string) *echo.Echo {
	e := echo.New()
	e.Use(SignatureAuth(func() string { return token }))
	e.POST("/twilio/voice", func(c echo.Context) error {
		params, ok := c.Get("twilioParams").(map[string]string)
		if !ok {
			return c.String(http.StatusInternalServerError, "no params")
		}
		return c.String(http.StatusOK, params["CallSid"])
	})
	return e
}

func TestSignatureAuth_AcceptsSigned(t *testing.T) {
	e := newSignatureTestServer("tok")
	body := "CallSid=CA1&From=%2B15550001111"
	r := httptest.NewRequest(http.MethodPost, "/twilio/voice", strings.NewReader(body))
	r.Host = "example.com"
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	r.Header.Set("X-Twilio-Signature", signRequest("tok", "https://example.com/twilio/voice",
		map[string]string{"CallSid": "CA1", "From": "+15550001111"}))
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "CA1" {
		t.Fatalf("expected params passed to handler, got %q", w.Body.String())
	}
}

func TestSignatureAuth_RejectsUnsigned(t *testing.T) {
	e := newSignatureTestServer("tok")
	r := httptest.NewRequest(http.MethodPost, "/twilio/voice", strings.NewReader("CallSid=CA1"))
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestSignatureAuth_PassthroughWithoutToken(t *testing.T) {
	e := newSignatureTestServer("")
	r := httptest.NewRequest(http.MethodPost, "/twilio/voice", strings.NewReader("CallSid=CA1"))
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 without configured token, got %d", w.Code)
	}
}
