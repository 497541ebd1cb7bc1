package bridge

import _ "embed"

// Script is installed as a document-created startup script. It exposes
// window.shell.invoke(cmd, args), correlates replies by requestId and gives
// up on a request after five seconds.
//
//go:embed bridge.js
var Script string
