package assets

import (
	"regexp"
	"strings"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Request asks for one named asset. File is either an http(s) URL or a path
// relative to the asset root.
type Request struct {
	Key  string
	File string
	Kind Kind
}

type Asset interface {
	AssetKey() string
}

// Raster is an image re-encoded as an inline data URI.
type Raster struct {
	Key     string
	DataURI string
	Width   int
	Height  int
}

func (r *Raster) AssetKey() string { return r.Key }

// Video is a local video file. SourceURL is set when it was downloaded.
type Video struct {
	Key       string
	Path      string
	SourceURL string
}

func (v *Video) AssetKey() string { return v.Key }

// Set holds the assets that loaded. Failed requests are simply absent.
type Set map[string]Asset

func (s Set) Raster(key string) (*Raster, bool) {
	r, ok := s[key].(*Raster)
	return r, ok
}

func (s Set) Video(key string) (*Video, bool) {
	v, ok := s[key].(*Video)
	return v, ok
}

var (
	remoteRe     = regexp.MustCompile(`^https?://`)
	driveFileRe  = regexp.MustCompile(`/file/d/([^/]+)/`)
	driveParamRe = regexp.MustCompile(`[?&]id=([^&]+)`)
	videoExtRe   = regexp.MustCompile(`(?i)\.(mp4|mov|avi|webm|mkv)$`)
)

func IsRemote(file string) bool {
	return remoteRe.MatchString(file)
}

// DriveID extracts the file id from a Google Drive share or download link.
func DriveID(url string) (string, bool) {
	if !strings.Contains(url, "drive.google.com") {
		return "", false
	}
	if m := driveFileRe.FindStringSubmatch(url); m != nil {
		return m[1], true
	}
	if m := driveParamRe.FindStringSubmatch(url); m != nil {
		return m[1], true
	}
	return "", false
}

// NormalizeDriveURL rewrites share links into direct download links.
// Any other URL is returned unchanged.
func NormalizeDriveURL(url string) string {
	id, ok := DriveID(url)
	if !ok {
		return url
	}
	return "https://drive.google.com/uc?export=download&id=" + id
}

// IsVideoSource reports whether a background reference points at a video:
// a known video extension or a Drive link.
func IsVideoSource(file string) bool {
	return videoExtRe.MatchString(file) || strings.Contains(file, "drive.google.com")
}

// PosterPath swaps a video extension for .png.
func PosterPath(file string) string {
	return videoExtRe.ReplaceAllString(file, ".png")
}
