// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package reference turns the fully qualified URL of an uploaded object into
// the names the pipeline needs: the bare destination name of the thumbnail
// and the container/object pair used to read the source.
//
// Both functions are pure. They never touch the network, so a name can be
// derived even when the referenced object no longer exists.
package reference

import (
	"net/url"
	"strings"

	"github.com/jaycherian/gcp-go-image-captioner/internal/core/model"
)

// Location addresses an object inside a blob store.
type Location struct {
	Container string
	Object    string
}

// ExtractName returns the last path segment of sourceURL, unescaped, without
// any container, account, directory prefix, query or fragment.
//
// Example: https://acct.blob.core.windows.net/container/path/photo.png -> photo.png
func ExtractName(sourceURL string) (string, error) {
	u, err := parse(sourceURL)
	if err != nil {
		return "", err
	}
	escaped := u.EscapedPath()
	segment := escaped[strings.LastIndex(escaped, "/")+1:]
	name, err := url.PathUnescape(segment)
	if err != nil {
		return "", model.WrapError(model.KindInvalidReference, "extract-name", "invalid escape in "+sourceURL, err)
	}
	if name == "" {
		return "", model.NewError(model.KindInvalidReference, "extract-name", "no object name in "+sourceURL)
	}
	return name, nil
}

// Locate splits sourceURL into container and object name. It understands
// gs:// and s3:// URLs, the Cloud Storage JSON API links found in GCS
// notifications, S3 virtual-hosted URLs and, for every other host, path-style
// URLs whose first segment is the container.
func Locate(sourceURL string) (Location, error) {
	u, err := parse(sourceURL)
	if err != nil {
		return Location{}, err
	}
	segments := splitEscaped(u.EscapedPath())

	var loc Location
	switch {
	case u.Scheme == "gs" || u.Scheme == "s3":
		loc = Location{Container: u.Host, Object: joinSegments(segments)}
	case isJSONAPIPath(segments):
		// .../storage/v1/b/<bucket>/o/<url-encoded object>
		i := indexOf(segments, "b")
		loc = Location{Container: segments[i+1], Object: joinSegments(segments[i+3:])}
	case isS3VirtualHost(u.Hostname()):
		loc = Location{Container: u.Hostname()[:strings.Index(u.Hostname(), ".s3")], Object: joinSegments(segments)}
	case len(segments) > 0:
		loc = Location{Container: segments[0], Object: joinSegments(segments[1:])}
	}

	if loc.Container == "" || loc.Object == "" {
		return Location{}, model.NewError(model.KindInvalidReference, "locate", "cannot determine container and object of "+sourceURL)
	}
	return loc, nil
}

func parse(sourceURL string) (*url.URL, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return nil, model.WrapError(model.KindInvalidReference, "parse-url", "malformed source url", err)
	}
	if u.Scheme == "" || u.Opaque != "" {
		return nil, model.NewError(model.KindInvalidReference, "parse-url", "source url is not absolute: "+sourceURL)
	}
	if u.Host == "" && u.Scheme != "file" {
		return nil, model.NewError(model.KindInvalidReference, "parse-url", "source url has no host: "+sourceURL)
	}
	return u, nil
}

// splitEscaped splits an escaped path into unescaped, non-empty segments.
// Unescaping per segment keeps encoded slashes inside object names.
func splitEscaped(escaped string) []string {
	raw := strings.Split(escaped, "/")
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s == "" {
			continue
		}
		if v, err := url.PathUnescape(s); err == nil {
			s = v
		}
		out = append(out, s)
	}
	return out
}

func joinSegments(segments []string) string {
	return strings.Join(segments, "/")
}

func indexOf(segments []string, v string) int {
	for i, s := range segments {
		if s == v {
			return i
		}
	}
	return -1
}

func isJSONAPIPath(segments []string) bool {
	i := indexOf(segments, "b")
	return i >= 2 && segments[i-2] == "storage" && segments[i-1] == "v1" &&
		len(segments) > i+3 && segments[i+2] == "o"
}

func isS3VirtualHost(host string) bool {
	return strings.HasSuffix(host, ".amazonaws.com") && strings.Contains(host, ".s3") &&
		!strings.HasPrefix(host, "s3.") && !strings.HasPrefix(host, "s3-")
}
