// Package audio provides playback-time accounting for telephony audio frames.
//
// Twilio media streams and the realtime model both speak G.711 mu-law at
// 8 kHz mono: one byte per sample, 8 samples per millisecond. Payloads are
// base64 text on the wire, so duration can be derived without decoding the
// samples themselves.
package audio

import "encoding/base64"

// MulawSampleRate is the telephony sample rate in Hz.
const MulawSampleRate = 8000

const samplesPerMs = MulawSampleRate / 1000

// MulawBytesToMs converts a raw mu-law byte count to milliseconds of audio.
func MulawBytesToMs(n int) int {
	return n / samplesPerMs
}

// PayloadDurationMs estimates the playback duration in milliseconds of a
// base64-encoded mu-law payload. Invalid base64 yields zero; accounting is
// best-effort and must never break audio forwarding.
func PayloadDurationMs(payload string) int {
	n, err := decodedLen(payload)
	if err != nil {
		return 0
	}
	return MulawBytesToMs(n)
}

func decodedLen(payload string) (int, error) {
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}
