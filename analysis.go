package conductor

import (
	"fmt"
	"io"

	"pipelined.dev/conductor/engine"
)

// WriteStreams prints stream analysis report: number of streams of each
// type followed by their tags.
func WriteStreams(w io.Writer, streams []engine.StreamInfo) error {
	var counts [3]int
	for _, s := range streams {
		if s.Type >= engine.StreamVideo && s.Type <= engine.StreamText {
			counts[s.Type]++
		}
	}
	ew := errWriter{w: w}
	ew.printf("%d video stream(s), %d audio stream(s), %d text stream(s)\n",
		counts[engine.StreamVideo], counts[engine.StreamAudio], counts[engine.StreamText])
	for _, t := range []engine.StreamType{engine.StreamVideo, engine.StreamAudio, engine.StreamText} {
		for _, s := range streams {
			if s.Type != t {
				continue
			}
			ew.printf("\n%s stream %d:\n", s.Type, s.Index)
			switch t {
			case engine.StreamVideo:
				ew.printf("  codec: %s\n", orUnknown(s.Codec))
			case engine.StreamAudio:
				ew.printf("  codec: %s\n", orUnknown(s.Codec))
				ew.printf("  language: %s\n", orUnknown(s.Language))
				ew.printf("  bitrate: %d\n", s.Bitrate)
			case engine.StreamText:
				ew.printf("  language: %s\n", orUnknown(s.Language))
			}
		}
	}
	return ew.err
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// errWriter keeps the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
