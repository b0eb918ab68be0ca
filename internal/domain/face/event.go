package face

// EventKind tags the variant held by an Event.
type EventKind int

const (
	// EventShowMessage asks the presentation layer to display Message.
	EventShowMessage EventKind = iota + 1
	// EventRequestCapture asks the presentation layer to start a capture in Mode.
	EventRequestCapture
	// EventRequestComparison asks the presentation layer to compare Selfie and Gallery.
	EventRequestComparison
)

// String implements fmt.Stringer.
func (k EventKind) String() string {
	switch k {
	case EventShowMessage:
		return "show_message"
	case EventRequestCapture:
		return "request_capture"
	case EventRequestComparison:
		return "request_comparison"
	default:
		return "unknown"
	}
}

// Event is a one-shot directive for the presentation layer.
// Only the fields matching Kind are set.
type Event struct {
	Kind    EventKind
	Message string
	Mode    CaptureMode
	Selfie  *Image
	Gallery *Image
}

// ShowMessage builds a message event.
func ShowMessage(text string) Event {
	return Event{Kind: EventShowMessage, Message: text}
}

// RequestCapture builds a capture request event.
func RequestCapture(mode CaptureMode) Event {
	return Event{Kind: EventRequestCapture, Mode: mode}
}

// RequestComparison builds a comparison request event.
func RequestComparison(selfie, gallery *Image) Event {
	return Event{Kind: EventRequestComparison, Selfie: selfie, Gallery: gallery}
}
