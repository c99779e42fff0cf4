// Package speech is the ElevenLabs client used to turn chunk text into
// audio and to list the voices available to a credential.
package speech
