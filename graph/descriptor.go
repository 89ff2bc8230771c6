package graph

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type (
	// Descriptor declares stages and links of a graph.
	Descriptor struct {
		Name     string         `yaml:"name"`
		Stages   []StageSpec    `yaml:"stages"`
		Links    []LinkSpec     `yaml:"links"`
		Deferred []DeferredSpec `yaml:"deferred"`
	}

	// StageSpec declares a stage. Properties are set right after the
	// stage is created.
	StageSpec struct {
		Kind       string                 `yaml:"kind"`
		Name       string                 `yaml:"name"`
		Properties map[string]interface{} `yaml:"properties"`
	}

	// LinkSpec declares a static link. Endpoints are "stage" or
	// "stage.pad".
	LinkSpec struct {
		From string `yaml:"from"`
		To   string `yaml:"to"`
	}

	// DeferredSpec declares a link that is completed when From stage
	// exposes a pad with caps accepted by Accept prefix.
	DeferredSpec struct {
		From   string `yaml:"from"`
		To     string `yaml:"to"`
		Accept string `yaml:"accept"`
	}
)

// Default pad names.
const (
	DefaultSrc  = "src"
	DefaultSink = "sink"
)

// Load decodes descriptor from YAML.
func Load(r io.Reader) (Descriptor, error) {
	var d Descriptor
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return Descriptor{}, fmt.Errorf("decode descriptor: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// LoadFile decodes descriptor from YAML file.
func LoadFile(path string) (Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return Descriptor{}, err
	}
	defer f.Close()
	return Load(f)
}

// Validate checks names and references.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("graph: pipeline name is required")
	}
	names := make(map[string]struct{}, len(d.Stages))
	for _, s := range d.Stages {
		switch {
		case s.Name == "" || s.Kind == "":
			return fmt.Errorf("graph: stage %q of kind %q: name and kind are required", s.Name, s.Kind)
		case s.Name == d.Name:
			return fmt.Errorf("graph: stage %q has the same name as the pipeline", s.Name)
		case strings.Contains(s.Name, "."):
			return fmt.Errorf("graph: stage %q: name must not contain dots", s.Name)
		}
		if _, ok := names[s.Name]; ok {
			return fmt.Errorf("graph: duplicate stage %q", s.Name)
		}
		names[s.Name] = struct{}{}
	}
	check := func(ref string) error {
		stage, _ := splitRef(ref, "")
		if _, ok := names[stage]; !ok {
			return fmt.Errorf("graph: link references unknown stage %q", stage)
		}
		return nil
	}
	for _, l := range d.Links {
		if err := check(l.From); err != nil {
			return err
		}
		if err := check(l.To); err != nil {
			return err
		}
	}
	for _, l := range d.Deferred {
		if strings.Contains(l.From, ".") {
			return fmt.Errorf("graph: deferred link source %q must be a stage, its pads are exposed at run time", l.From)
		}
		if err := check(l.From); err != nil {
			return err
		}
		if err := check(l.To); err != nil {
			return err
		}
	}
	return nil
}

// String renders descriptor as a stable human-readable listing.
func (d Descriptor) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pipeline %s\n", d.Name)
	for _, s := range d.Stages {
		fmt.Fprintf(&b, "  stage %s (%s)\n", s.Name, s.Kind)
	}
	for _, l := range d.Links {
		from, to := Endpoint(l.From, DefaultSrc), Endpoint(l.To, DefaultSink)
		fmt.Fprintf(&b, "  link %s -> %s\n", from, to)
	}
	for _, l := range d.Deferred {
		accept := l.Accept
		if accept == "" {
			accept = "*"
		}
		fmt.Fprintf(&b, "  deferred %s -> %s [%s]\n", l.From, Endpoint(l.To, DefaultSink), accept)
	}
	return b.String()
}

// Endpoint returns fully qualified "stage.pad" reference.
func Endpoint(ref, defaultPad string) string {
	stage, pad := splitRef(ref, defaultPad)
	return stage + "." + pad
}

func splitRef(ref, defaultPad string) (stage, pad string) {
	if s, p, ok := strings.Cut(ref, "."); ok {
		return s, p
	}
	return ref, defaultPad
}
