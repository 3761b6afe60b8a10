package twilio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerDocument(t *testing.T) {
	doc, err := AnswerDocument("https://ridgelineradio.org/PhoneAnswer.mp3", "wss://relay.example.org/media")
	require.NoError(t, err)

	assert.Contains(t, doc, "<Response>")
	assert.Contains(t, doc, "https://ridgelineradio.org/PhoneAnswer.mp3")
	assert.Contains(t, doc, "<Connect>")
	assert.Contains(t, doc, "wss://relay.example.org/media")
}

func TestConferenceDocument(t *testing.T) {
	doc, err := ConferenceDocument("conf-CA1")
	require.NoError(t, err)

	assert.Contains(t, doc, "<Dial>")
	assert.Contains(t, doc, "conf-CA1")
	assert.Contains(t, doc, `endConferenceOnExit="true"`)
	assert.Contains(t, doc, `startConferenceOnEnter="true"`)
}

func TestVoicemailDocument(t *testing.T) {
	doc, err := VoicemailDocument(
		"https://relay.example.org/voicemail-recording?callSid=CA1",
		"https://relay.example.org/voicemail-complete?callSid=CA1")
	require.NoError(t, err)

	assert.Contains(t, doc, "<Say>")
	assert.Contains(t, doc, "<Record")
	assert.Contains(t, doc, "<Hangup")
	assert.Contains(t, doc, "https://relay.example.org/voicemail-recording?callSid=CA1")
	assert.Contains(t, doc, "https://relay.example.org/voicemail-complete?callSid=CA1")
}
