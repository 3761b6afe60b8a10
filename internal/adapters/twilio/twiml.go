package twilio

import "github.com/twilio/twilio-go/twiml"

// AnswerDocument builds the inbound-call answer: play the greeting
// asset, then connect the leg to the media WebSocket, which streams the
// live broadcast as hold audio until the leg is redirected elsewhere.
func AnswerDocument(greetingURL, mediaWSURL string) (string, error) {
	verbs := []twiml.Element{
		&twiml.VoicePlay{Url: greetingURL},
		&twiml.VoiceConnect{
			InnerElements: []twiml.Element{
				&twiml.VoiceStream{Url: mediaWSURL},
			},
		},
	}
	return twiml.Voice(verbs)
}

// ConferenceDocument builds a conference-join document. The conference
// ends when either party leaves, so the caller is not stranded in an
// empty room.
func ConferenceDocument(room string) (string, error) {
	verbs := []twiml.Element{
		&twiml.VoiceDial{
			InnerElements: []twiml.Element{
				&twiml.VoiceConference{
					Name:                   room,
					StartConferenceOnEnter: "true",
					EndConferenceOnExit:    "true",
					Beep:                   "false",
				},
			},
		},
	}
	return twiml.Voice(verbs)
}

// VoicemailDocument builds the voicemail flow: prompt, record with
// transcription, hang up. The callback URLs carry the original call SID
// so the resulting notifications can name the caller.
func VoicemailDocument(recordingCallbackURL, transcriptionCallbackURL string) (string, error) {
	verbs := []twiml.Element{
		&twiml.VoiceSay{
			Message: "Nobody is available to take your call right now. Please leave a message after the beep.",
		},
		&twiml.VoiceRecord{
			MaxLength:               "120",
			PlayBeep:                "true",
			Transcribe:              "true",
			TranscribeCallback:      transcriptionCallbackURL,
			RecordingStatusCallback: recordingCallbackURL,
		},
		&twiml.VoiceHangup{},
	}
	return twiml.Voice(verbs)
}
