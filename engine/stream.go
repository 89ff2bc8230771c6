package engine

type (
	// StreamInspector is implemented by pipelines that can describe the
	// elementary streams of the current media.
	StreamInspector interface {
		Streams() []StreamInfo
	}

	// StreamInfo describes one elementary stream.
	StreamInfo struct {
		Type     StreamType
		Index    int
		Codec    string
		Language string
		Bitrate  uint
	}

	// StreamType is a type of elementary stream.
	StreamType int
)

// Stream types.
const (
	StreamVideo StreamType = iota
	StreamAudio
	StreamText
)

func (t StreamType) String() string {
	switch t {
	case StreamVideo:
		return "video"
	case StreamAudio:
		return "audio"
	case StreamText:
		return "text"
	}
	return "unknown"
}
