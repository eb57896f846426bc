// Package audiometa resolves the audio template namespace from container
// tags (ID3, Vorbis comments, FLAC, MP4 atoms, and friends).
package audiometa

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"github.com/metaplate/metaplate/pkg/mtl/provider"
)

// subfields is the full audio catalog. Subfields the tag container does not
// carry resolve empty and fall through to default handling.
var subfields = map[string]bool{
	"album": true, "albumartist": true, "artist": true, "audio_offset": true,
	"bitrate": true, "comment": true, "composer": true, "disc": true,
	"disc_total": true, "duration": true, "genre": true, "samplerate": true,
	"title": true, "track": true, "track_total": true, "year": true,
	"filesize": true,
}

// Provider resolves the audio namespace.
type Provider struct{}

// Register adds the provider to a registry.
func Register(reg *provider.Registry) {
	reg.Register(Provider{})
}

func (Provider) Namespaces() []string {
	return []string{"audio"}
}

func (Provider) Resolve(req *provider.Request) ([]string, bool, error) {
	if !subfields[req.Subfield] {
		return nil, false, nil
	}

	if req.Subfield == "filesize" {
		info, err := os.Stat(req.File.Path())
		if err != nil {
			return nil, false, err
		}
		return []string{strconv.FormatInt(info.Size(), 10)}, true, nil
	}

	m, err := loadTags(req)
	if err != nil {
		return nil, false, err
	}

	var value string
	switch req.Subfield {
	case "album":
		value = m.Album()
	case "albumartist":
		value = m.AlbumArtist()
	case "artist":
		value = m.Artist()
	case "comment":
		value = m.Comment()
	case "composer":
		value = m.Composer()
	case "disc":
		if n, _ := m.Disc(); n > 0 {
			value = strconv.Itoa(n)
		}
	case "disc_total":
		if _, total := m.Disc(); total > 0 {
			value = strconv.Itoa(total)
		}
	case "genre":
		value = m.Genre()
	case "title":
		value = m.Title()
	case "track":
		if n, _ := m.Track(); n > 0 {
			value = strconv.Itoa(n)
		}
	case "track_total":
		if _, total := m.Track(); total > 0 {
			value = strconv.Itoa(total)
		}
	case "year":
		if y := m.Year(); y > 0 {
			value = strconv.Itoa(y)
		}
	default:
		// audio_offset, bitrate, duration, samplerate: the tag containers
		// expose no reliable value, so these resolve empty.
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return nil, true, nil
	}
	return []string{value}, true, nil
}

// loadTags opens and parses the container once per file, caching the parsed
// metadata in the render context.
func loadTags(req *provider.Request) (tag.Metadata, error) {
	stateKey := "audiometa:" + req.File.Path()
	if cached, ok := req.Ctx.State(stateKey); ok {
		return cached.(tag.Metadata), nil
	}

	f, err := os.Open(req.File.Path())
	if err != nil {
		return nil, fmt.Errorf("cannot open audio file: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("cannot read audio tags: %w", err)
	}

	req.Ctx.SetState(stateKey, m)
	return m, nil
}
