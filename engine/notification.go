package engine

type (
	// Notification is a message posted on the pipeline bus. Concrete types
	// are StateChanged, EndOfStream, Error, DurationChanged, Application
	// and Message.
	Notification interface {
		// Source is the name of the object that posted the notification.
		Source() string
		notification()
	}

	// StateChanged is posted by every element that changed its state.
	StateChanged struct {
		Src      string
		Old, New State
		Pending  State
	}

	// EndOfStream is posted when all sinks received the end of stream.
	EndOfStream struct {
		Src string
	}

	// Error is posted when an element failed. Detail is optional
	// diagnostic information.
	Error struct {
		Src     string
		Message string
		Detail  string
	}

	// DurationChanged is posted when the stream duration is no longer
	// valid.
	DurationChanged struct {
		Src string
	}

	// Application is a custom notification posted by the application or
	// the engine on application's behalf.
	Application struct {
		Src  string
		Name string
	}

	// Message is any other notification kind.
	Message struct {
		Src  string
		Type string
	}
)

// TagsChanged is the name of application notification posted when stream
// metadata changes.
const TagsChanged = "tags-changed"

// Source returns the name of the object.
func (n StateChanged) Source() string { return n.Src }

// Source returns the name of the object.
func (n EndOfStream) Source() string { return n.Src }

// Source returns the name of the object.
func (n Error) Source() string { return n.Src }

// Source returns the name of the object.
func (n DurationChanged) Source() string { return n.Src }

// Source returns the name of the object.
func (n Application) Source() string { return n.Src }

// Source returns the name of the object.
func (n Message) Source() string { return n.Src }

func (StateChanged) notification()    {}
func (EndOfStream) notification()     {}
func (Error) notification()           {}
func (DurationChanged) notification() {}
func (Application) notification()     {}
func (Message) notification()         {}

// Kind returns short notification kind name.
func Kind(n Notification) string {
	switch m := n.(type) {
	case StateChanged:
		return "state-changed"
	case EndOfStream:
		return "eos"
	case Error:
		return "error"
	case DurationChanged:
		return "duration-changed"
	case Application:
		return "application"
	case Message:
		return m.Type
	}
	return "unknown"
}
