package agent

import "fmt"

// mockTranscript is the fixed output of a mock run.
func mockTranscript(req Request) []string {
	return []string{
		"[mock] Starting simulated agent",
		fmt.Sprintf("[mock] Received prompt (%d bytes)", len(req.Prompt)),
		"[mock] Reading repository",
		"[mock] Applying changes",
		req.CompletionSignal,
	}
}

// runMock replays mockTranscript line by line. The timeout is ignored and
// nothing is written to stderr.
func runMock(req Request) Result {
	out := newOutput(req.OnStdout)
	for _, line := range mockTranscript(req) {
		out.WriteString(line + "\n")
	}

	zero := 0
	return Result{
		Success:            true,
		CompletionDetected: true,
		ExitCode:           &zero,
		Output:             out.String(),
	}
}
