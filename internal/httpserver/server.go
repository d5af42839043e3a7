// Package httpserver wires the HTTP surface: the Twilio voice webhook that
// answers calls with a media-stream TwiML, the websocket endpoint the stream
// connects back to, and a health route.
package httpserver

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/twilio/twilio-go/twiml"

	"github.com/umarsabra/realtime-agent/internal/bridge"
	"github.com/umarsabra/realtime-agent/internal/config"
	"github.com/umarsabra/realtime-agent/internal/frappe"
	"github.com/umarsabra/realtime-agent/internal/realtime"
	"github.com/umarsabra/realtime-agent/internal/telephony"
	"github.com/umarsabra/realtime-agent/internal/tools"
)

// Server bundles the HTTP router and its dependencies.
type Server struct {
	Router http.Handler

	cfg      config.Config
	upgrader websocket.Upgrader

	// dialModel opens the model connection for one call; swapped in tests.
	dialModel func() (bridge.Conn, error)
}

// New constructs the HTTP server with routes.
func New(cfg config.Config) *Server {
	s := &Server{
		cfg: cfg,
		// Twilio media streams carry no Origin header worth checking.
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
	s.dialModel = func() (bridge.Conn, error) {
		return realtime.Dialer{APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel}.Dial()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(telephony.SignatureAuth(func() string { return s.cfg.TwilioAuthToken }))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.POST("/twilio/voice", s.voice)
	e.GET("/media", s.media)

	s.Router = e
	return s
}

// voice answers an incoming call with TwiML that connects the call's audio
// to the /media websocket.
func (s *Server) voice(c echo.Context) error {
	params, ok := c.Get("twilioParams").(map[string]string)
	if !ok {
		return c.String(http.StatusInternalServerError, "Failed to get Twilio parameters")
	}
	log.Printf("[twilio] incoming call from %s (CallSid=%s)", params["From"], params["CallSid"])

	if s.cfg.PublicWSSURL == "" {
		return c.String(http.StatusInternalServerError, "PUBLIC_WSS_URL not configured")
	}

	stream := &twiml.VoiceStream{Url: s.cfg.PublicWSSURL}
	connect := &twiml.VoiceConnect{InnerElements: []twiml.Element{stream}}
	response, err := twiml.Voice([]twiml.Element{connect})
	if err != nil {
		return c.String(http.StatusInternalServerError, "failed to build TwiML")
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml")
	return c.String(http.StatusOK, response)
}

// media accepts Twilio's media-stream websocket, opens the model connection,
// and runs the bridge session for the life of the call.
func (s *Server) media(c echo.Context) error {
	twilioConn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("[twilio ws] upgrade failed: %v", err)
		return nil
	}

	if s.cfg.OpenAIKey == "" {
		log.Printf("[bridge] rejecting media stream: OPENAI_API_KEY not set")
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "not configured")
		_ = twilioConn.WriteMessage(websocket.CloseMessage, msg)
		_ = twilioConn.Close()
		return nil
	}

	modelConn, err := s.dialModel()
	if err != nil {
		log.Printf("[openai ws] connect failed: %v", err)
		_ = twilioConn.Close()
		return nil
	}

	sess := bridge.NewSession(twilioConn, modelConn, bridge.Options{
		Model:                s.cfg.OpenAIModel,
		Voice:                s.cfg.OpenAIVoice,
		Debounce:             s.cfg.BargeDebounce,
		VADThreshold:         s.cfg.VADThreshold,
		VADPrefixPaddingMs:   s.cfg.VADPrefixPaddingMs,
		VADSilenceDurationMs: s.cfg.VADSilenceDurationMs,
		BuildTools:           s.buildTools,
	})
	sess.Run(c.Request().Context())
	return nil
}

// buildTools assembles the per-call tool registry: job lookups against the
// Frappe backend plus the hangup tool.
func (s *Server) buildTools(callSid func() string) *tools.Registry {
	r := tools.NewRegistry()
	store := frappe.New(frappe.Config{
		BaseURL:   s.cfg.FrappeBaseURL,
		APIKey:    s.cfg.FrappeAPIKey,
		APISecret: s.cfg.FrappeAPISecret,
	})
	var calls tools.CallEnder
	if s.cfg.TwilioAccountSID != "" && s.cfg.TwilioAuthToken != "" {
		calls = telephony.NewTerminator(s.cfg.TwilioAccountSID, s.cfg.TwilioAuthToken)
	}
	tools.RegisterJobTools(r, store, calls, callSid)
	return r
}
