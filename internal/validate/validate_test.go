package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type turn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"max=10"`
}

type sample struct {
	Message string `json:"message" validate:"required,max=20"`
	Turns   []turn `json:"turns" validate:"max=2,dive"`
}

// strictSample panics on Unmarshal to prove oversized bodies never reach it.
type strictSample struct{}

func (*strictSample) UnmarshalJSON([]byte) error {
	panic("decoded an oversized body")
}

func TestOversizedBodyFailsBeforeParsing(t *testing.T) {
	v := New()
	body := `{"message":"` + strings.Repeat("a", 200) + `"}`

	err := v.Decode(strings.NewReader(body), 100, &strictSample{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.NotErrorIs(t, err, ErrInvalidInput)
}

func TestBodyAtCeilingIsAccepted(t *testing.T) {
	body := `{"message":"hi"}`
	got, err := ReadLimited(strings.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	assert.Equal(t, body, string(got))

	_, err = ReadLimited(strings.NewReader(body), int64(len(body)-1))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestTooLargeMessage(t *testing.T) {
	_, err := ReadLimited(strings.NewReader(strings.Repeat("x", DefaultMaxBytes+1)), DefaultMaxBytes)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Payload exceeds 30KB", verr.Message)
}

func TestDecodeShapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"message":"hello","turns":[{"role":"user","content":"x"}]}`},
		{name: "empty body", body: "  ", wantErr: "request body is empty"},
		{name: "not json", body: "message=hi", wantErr: "request body must be a JSON object"},
		{name: "wrong type", body: `{"message":42}`, wantErr: "message: expected string, received number"},
		{name: "missing message", body: `{}`, wantErr: "message: is required"},
		{name: "message too long", body: `{"message":"` + strings.Repeat("b", 21) + `"}`, wantErr: "message: must be at most 20 characters"},
		{name: "too many turns", body: `{"message":"m","turns":[{"role":"user"},{"role":"user"},{"role":"user"}]}`, wantErr: "turns: must contain at most 2 items"},
		{name: "bad role", body: `{"message":"m","turns":[{"role":"system","content":"x"}]}`, wantErr: "turns[0].role: must be one of [user assistant]"},
		{name: "long turn", body: `{"message":"m","turns":[{"role":"assistant","content":"` + strings.Repeat("c", 11) + `"}]}`, wantErr: "turns[0].content: must be at most 10 characters"},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst sample
			err := v.Decode(strings.NewReader(tt.body), 1000, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidInput)
			var verr *Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantErr, verr.Message)
		})
	}
}

func TestMultipleFailuresAreJoined(t *testing.T) {
	var dst sample
	err := New().DecodeBytes([]byte(`{"message":"","turns":[{"role":"x"}]}`), &dst)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "message: is required; turns[0].role: must be one of [user assistant]", verr.Message)
}

func TestMessagesCountRunes(t *testing.T) {
	var dst sample
	// 20 two-byte runes are 40 bytes but still within max=20
	err := New().DecodeBytes([]byte(`{"message":"`+strings.Repeat("ä", 20)+`"}`), &dst)
	assert.NoError(t, err)
}
