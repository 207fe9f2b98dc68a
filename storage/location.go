package storage

import (
	"fmt"
	"path"
	"strings"
)

// Supported location schemes.
const (
	SchemeS3    = "s3"
	SchemeGCS   = "gs"
	SchemeSFTP  = "sftp"
	SchemeLocal = "file"
)

// Location addresses one object (or a key prefix when Key ends in "/").
// For sftp the Bucket is the host; for file it is a directory under the local base dir.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

// ParseLocation parses URIs such as s3://bucket/path/to/key. Keys are not
// URL-escaped: "#", "?", "%" and spaces belong to the key.
func ParseLocation(uri string) (Location, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok || scheme == "" || strings.ContainsAny(scheme, "/?#% ") {
		return Location{}, fmt.Errorf("invalid storage location %q: scheme required", uri)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("invalid storage location %q: bucket required", uri)
	}
	return Location{
		Scheme: strings.ToLower(scheme),
		Bucket: bucket,
		Key:    key,
	}, nil
}

// String renders the location back into URI form.
func (l Location) String() string {
	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Bucket, l.Key)
}

// IsPrefix reports whether the location names a directory-like prefix.
func (l Location) IsPrefix() bool {
	return l.Key == "" || strings.HasSuffix(l.Key, "/")
}

// Join returns a location for name under the prefix l.
func (l Location) Join(name string) Location {
	key := l.Key
	if key != "" && !strings.HasSuffix(key, "/") {
		key += "/"
	}
	return Location{Scheme: l.Scheme, Bucket: l.Bucket, Key: key + name}
}

// Dir returns the prefix containing the object.
func (l Location) Dir() Location {
	dir := path.Dir(l.Key)
	if dir == "." || dir == "/" {
		dir = ""
	} else {
		dir += "/"
	}
	return Location{Scheme: l.Scheme, Bucket: l.Bucket, Key: dir}
}

// Base returns the last path segment of the key.
func (l Location) Base() string {
	return path.Base(strings.TrimSuffix(l.Key, "/"))
}

// WithBucket returns a copy of l moved to another bucket, keeping the key.
func (l Location) WithBucket(bucket string) Location {
	l.Bucket = bucket
	return l
}
