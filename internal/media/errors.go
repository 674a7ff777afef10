package media

import "strings"

// ErrorCategory represents the classification of GStreamer errors for telemetry
type ErrorCategory int

const (
	// ErrCategoryResource indicates a missing or unreadable input (path, permissions)
	ErrCategoryResource ErrorCategory = iota
	// ErrCategoryCodec indicates codec/stream failures (decode errors, format issues)
	ErrCategoryCodec
	// ErrCategoryDisplay indicates the output window failed or was closed
	ErrCategoryDisplay
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

// String returns a human-readable string representation of the error category
func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryResource:
		return "resource"
	case ErrCategoryCodec:
		return "codec"
	case ErrCategoryDisplay:
		return "display"
	default:
		return "unknown"
	}
}

// Classify categorises a GStreamer error from its message and debug string.
//
// go-gst's GError does not expose the error domain, so classification relies
// on keyword matching. Display errors are checked first because a closed
// window is reported by the sink as a resource error.
func Classify(message, debug string) ErrorCategory {
	combined := strings.ToLower(message + " " + debug)

	switch {
	case containsAny(combined, displayKeywords):
		return ErrCategoryDisplay
	case containsAny(combined, resourceKeywords):
		return ErrCategoryResource
	case containsAny(combined, codecKeywords):
		return ErrCategoryCodec
	default:
		return ErrCategoryUnknown
	}
}

// IsWindowClosed reports whether an error means the user closed the output
// window. The pipeline treats it as a stop request, not a failure.
func IsWindowClosed(message, debug string) bool {
	return containsAny(strings.ToLower(message+" "+debug), windowClosedKeywords)
}

var (
	windowClosedKeywords = []string{
		"output window was closed",
		"window was closed",
	}

	displayKeywords = append([]string{
		"could not open display",
		"cannot open display",
		"xvimagesink",
		"ximagesink",
		"glimagesink",
		"waylandsink",
	}, windowClosedKeywords...)

	resourceKeywords = []string{
		"not found",
		"no such file",
		"could not open",
		"permission denied",
		"resource",
		"could not read",
	}

	codecKeywords = []string{
		"codec",
		"decode",
		"demux",
		"format",
		"negotiation",
		"not negotiated",
		"caps",
		"h264",
		"h265",
		"no decoder",
		"missing plugin",
		"typefind",
		"stream contains no data",
	}
)

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
