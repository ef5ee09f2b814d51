package session

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aibridge-dev/aibridge/pkg/types"
)

// previewLimit bounds argument and detail previews in progress notices.
const previewLimit = 50

// Reduction is the outcome of classifying one stream event.
type Reduction struct {
	// Progress is a human-readable notice for the progress sink, empty if
	// the event produces none.
	Progress string
	// Content is a fragment to append to the accumulated answer.
	Content string
	// Err aborts the submission when non-nil.
	Err error
}

// Reduce classifies one stream event. accumulated is the answer length in
// characters before this event. Reduce never fails except for fatal-error
// and user-cancelled events.
func Reduce(ev types.StreamEvent, accumulated int) Reduction {
	switch e := ev.(type) {
	case *types.RetryEvent:
		return Reduction{Progress: "Retrying after transient engine error"}

	case *types.ContentDeltaEvent:
		return Reduction{
			Progress: fmt.Sprintf("Streaming answer (%d chars)", accumulated+len(e.Text)),
			Content:  e.Text,
		}

	case *types.ThoughtEvent:
		notice := e.Subject
		if e.Description != "" {
			notice = e.Subject + ": " + truncate(e.Description, previewLimit)
		}
		return Reduction{Progress: notice}

	case *types.ToolCallRequestEvent:
		return Reduction{Progress: fmt.Sprintf("Tool %s requested (%s)", e.Name, argPreview(e.Args))}

	case *types.ToolCallResultEvent:
		if e.Success {
			return Reduction{Progress: fmt.Sprintf("Tool %s succeeded (%d bytes)", e.Name, len(e.Output))}
		}
		return Reduction{Progress: fmt.Sprintf("Tool %s failed: %s: %s",
			e.Name, e.ErrorKind, truncate(e.ErrorMessage, previewLimit))}

	case *types.ToolCallConfirmationEvent:
		return Reduction{Progress: fmt.Sprintf("Tool %s awaiting confirmation (%d args)", e.Name, len(e.Args))}

	case *types.FinishedEvent:
		if e.Usage != nil {
			return Reduction{Progress: fmt.Sprintf("Turn finished: %d in / %d out tokens (%d total)",
				e.Usage.Input, e.Usage.Output, e.Usage.Total)}
		}
		if abnormalFinish(e.Reason) {
			return Reduction{Progress: "Turn finished: " + e.Reason}
		}
		return Reduction{}

	case *types.CompressedEvent:
		if e.FailureReason != "" {
			return Reduction{Progress: "History compaction failed: " + e.FailureReason}
		}
		saved := 0
		if e.OriginalTokens > 0 {
			saved = (e.OriginalTokens - e.CompressedTokens) * 100 / e.OriginalTokens
		}
		return Reduction{Progress: fmt.Sprintf("History compacted: %d -> %d tokens (%d%% saved)",
			e.OriginalTokens, e.CompressedTokens, saved)}

	case *types.LoopDetectedEvent:
		return Reduction{Progress: "Loop detected; ending turn"}

	case *types.MaxTurnsEvent:
		return Reduction{Progress: "Session turn limit reached; start a new session to continue"}

	case *types.CitationEvent:
		return Reduction{Progress: fmt.Sprintf("%d citation lines", countLines(e.Text))}

	case *types.ErrorEvent:
		return Reduction{Err: &UpstreamError{Status: e.Status, Message: e.Message}}

	case *types.CancelledEvent:
		return Reduction{Progress: "Request cancelled", Err: ErrCancelled}

	default:
		// Unknown events pass through silently; the stream stays usable.
		return Reduction{}
	}
}

// abnormalFinish reports whether a finish reason is worth surfacing.
func abnormalFinish(reason string) bool {
	switch reason {
	case "", "stop", "end_turn":
		return false
	}
	return true
}

// argPreview renders the first argument (by sorted key) truncated, or an
// argument count when the value does not preview well.
func argPreview(args map[string]any) string {
	if len(args) == 0 {
		return "no args"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if s, ok := args[keys[0]].(string); ok {
		return truncate(keys[0]+"="+s, previewLimit)
	}
	return fmt.Sprintf("%d args", len(args))
}

// truncate bounds s to limit runes.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// countLines counts non-empty lines in a text block.
func countLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
