package main

import "pipelined.dev/conductor/graph"

// dynamicDescriptor decodes uri, its audio pad is linked when exposed.
func dynamicDescriptor(name, uri string) graph.Descriptor {
	return graph.Descriptor{
		Name: name,
		Stages: []graph.StageSpec{
			{Kind: "uridecodebin", Name: "source", Properties: map[string]interface{}{"uri": uri}},
			{Kind: "audioconvert", Name: "convert"},
			{Kind: "audioresample", Name: "resample"},
			{Kind: "autoaudiosink", Name: "sink"},
		},
		Links: []graph.LinkSpec{
			{From: "convert", To: "resample"},
			{From: "resample", To: "sink"},
		},
		Deferred: []graph.DeferredSpec{
			{From: "source", To: "convert", Accept: "audio/x-raw"},
		},
	}
}

// playbinDescriptor plays uri with a single self-contained stage.
func playbinDescriptor(name, uri string) graph.Descriptor {
	return graph.Descriptor{
		Name: name,
		Stages: []graph.StageSpec{
			{Kind: "playbin", Name: "playbin", Properties: map[string]interface{}{"uri": uri}},
		},
	}
}

// swapDescriptor renders test pattern, source is replaced at run time.
func swapDescriptor(name string) graph.Descriptor {
	return graph.Descriptor{
		Name: name,
		Stages: []graph.StageSpec{
			{Kind: "videotestsrc", Name: "source", Properties: map[string]interface{}{"pattern": 0}},
			{Kind: "autovideosink", Name: "sink"},
		},
		Links: []graph.LinkSpec{{From: "source", To: "sink"}},
	}
}
