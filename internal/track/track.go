package track

import (
	"net/url"
	"strings"
)

type Info struct {
	Title          string
	Artist         string
	Album          string
	DurationMillis int64
	ArtworkURL     string
	TrackID        string
}

func (t *Info) IsValid() bool {
	if t == nil {
		return false
	}
	return t.Title != "" && t.Artist != ""
}

func (t *Info) IsSameTrack(other *Info) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.TrackID != "" && other.TrackID != "" {
		return t.TrackID == other.TrackID
	}
	return t.Title == other.Title && t.Artist == other.Artist
}

// ArtworkPath returns the local file behind a file:// artwork url. Remote
// artwork is not fetched.
func (t *Info) ArtworkPath() (string, bool) {
	if t == nil || !strings.HasPrefix(t.ArtworkURL, "file://") {
		return "", false
	}
	u, err := url.Parse(t.ArtworkURL)
	if err != nil || u.Path == "" {
		return "", false
	}
	return u.Path, true
}
