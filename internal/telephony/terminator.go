package telephony

import (
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Terminator ends calls through the Twilio REST API. It satisfies
// tools.CallEnder for the end_call tool.
type Terminator struct {
	client *twilio.RestClient
}

// NewTerminator builds a Terminator from account credentials.
func NewTerminator(accountSID, authToken string) *Terminator {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Terminator{client: client}
}

// EndCall marks the call completed, which hangs it up.
func (t *Terminator) EndCall(callSid, reason string) error {
	params := &twilioApi.UpdateCallParams{}
	params.SetStatus("completed")
	if _, err := t.client.Api.UpdateCall(callSid, params); err != nil {
		return fmt.Errorf("end call %s: %w", callSid, err)
	}
	log.Printf("[twilio] call %s ended: %s", callSid, reason)
	return nil
}
