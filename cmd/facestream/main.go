// Command facestream streams camera and microphone telemetry to the face
// analysis backend and mirrors its analysis results locally.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
