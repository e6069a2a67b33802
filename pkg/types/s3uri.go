package types

import (
	"fmt"
	"strings"
)

// S3URI is a parsed s3://bucket/prefix location.
type S3URI struct {
	Bucket string
	Prefix string
}

// ParseS3URI parses an s3:// URI into bucket and key prefix. Trailing
// separators on the prefix are stripped so callers can join sub-paths
// without producing double slashes.
func ParseS3URI(uri string) (S3URI, error) {
	const scheme = "s3://"
	if !strings.HasPrefix(uri, scheme) {
		return S3URI{}, fmt.Errorf("not an s3 URI: %q", uri)
	}
	rest := strings.TrimPrefix(uri, scheme)
	if rest == "" {
		return S3URI{}, fmt.Errorf("s3 URI has no bucket: %q", uri)
	}

	bucket := rest
	prefix := ""
	if i := strings.Index(rest, "/"); i >= 0 {
		bucket = rest[:i]
		prefix = strings.Trim(rest[i+1:], "/")
	}
	if bucket == "" {
		return S3URI{}, fmt.Errorf("s3 URI has no bucket: %q", uri)
	}

	return S3URI{Bucket: bucket, Prefix: prefix}, nil
}

// Join appends path segments to the prefix with single separators.
func (u S3URI) Join(segments ...string) string {
	parts := make([]string, 0, len(segments)+1)
	if u.Prefix != "" {
		parts = append(parts, u.Prefix)
	}
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// String renders the URI back into s3://bucket/prefix form.
func (u S3URI) String() string {
	if u.Prefix == "" {
		return "s3://" + u.Bucket
	}
	return "s3://" + u.Bucket + "/" + u.Prefix
}
