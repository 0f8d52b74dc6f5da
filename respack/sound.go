package respack

import (
	"strings"

	"github.com/vdvman1/beet"
)

// SoundEvent is the metadata attached to a sound file that registers it
// into the namespace's "sounds.json" on installation.
//
// Numeric and string fields are omitted from the generated entry at their
// zero value; the pointer fields distinguish explicit false from unset.
type SoundEvent struct {
	Event               string
	Subtitle            string
	Volume              float64
	Pitch               float64
	Weight              int
	AttenuationDistance int
	Replace             *bool
	Stream              *bool
	Preload             *bool
}

// NewSound returns a sound file carrying event metadata. A nil event makes
// a plain sound file.
func NewSound(data []byte, event *SoundEvent) *beet.File {
	f := Sound.NewFile(data)
	if event != nil {
		f.SetAux(event)
	}
	return f
}

// bindSound registers the sound into the namespace's sounds.json when event
// metadata is attached.
func bindSound(p *beet.Pack, f *beet.File, path string) error {
	ev, _ := f.Aux().(*SoundEvent)
	if ev == nil || ev.Event == "" {
		return nil
	}
	name, rel, ok := strings.Cut(path, ":")
	if !ok {
		return nil
	}

	attributes := make(map[string]any)
	if ev.Volume != 0 {
		attributes["volume"] = ev.Volume
	}
	if ev.Pitch != 0 {
		attributes["pitch"] = ev.Pitch
	}
	if ev.Weight != 0 {
		attributes["weight"] = ev.Weight
	}
	if ev.Stream != nil {
		attributes["stream"] = *ev.Stream
	}
	if ev.AttenuationDistance != 0 {
		attributes["attenuation_distance"] = ev.AttenuationDistance
	}
	if ev.Preload != nil {
		attributes["preload"] = *ev.Preload
	}

	var entry any = rel
	if len(attributes) > 0 {
		attributes["name"] = rel
		entry = attributes
	}

	event := map[string]any{"sounds": []any{entry}}
	if ev.Replace != nil {
		event["replace"] = *ev.Replace
	}
	if ev.Subtitle != "" {
		event["subtitle"] = ev.Subtitle
	}

	return p.Namespace(name).Extra().MergeFile(
		"sounds.json",
		SoundConfig.NewFile(map[string]any{ev.Event: event}),
	)
}
