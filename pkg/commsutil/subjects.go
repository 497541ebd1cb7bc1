package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	// SubjectInvoke takes request-reply web messages and answers with a response envelope.
	SubjectInvoke = "shell.invoke"
	// SubjectContentIn carries raw web messages to deliver into the hosted content.
	SubjectContentIn = "shell.content.in"
	// SubjectContentOut carries every text message the shell posts to the hosted content.
	SubjectContentOut = "shell.content.out"
	// SubjectEvents is the global shell event subject.
	SubjectEvents = "shell.events"
)

// BuildEventSubject builds a granular event subject, e.g. "shell.events.session.bound".
func BuildEventSubject(kind string) string {
	return fmt.Sprintf("%s.%s", SubjectEvents, kind)
}

// BuildWindowSubject scopes a base subject to a single window, e.g. "shell.content.in.w1".
func BuildWindowSubject(base string, windowID uint64) string {
	return fmt.Sprintf("%s.w%d", strings.TrimSuffix(base, "."), windowID)
}
