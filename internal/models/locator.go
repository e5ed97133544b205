package models

import (
	"fmt"
	"net/url"
)

// Locator points at an asset in object storage together with a URL the
// remote service can fetch it from.
type Locator struct {
	Bucket string `json:"awsS3Bucket"`
	Key    string `json:"awsS3Key"`
	URL    string `json:"httpEndpoint"`
}

// NewLocator builds a Locator. Bucket, key and URL must all be set, and the URL
// must be absolute.
func NewLocator(bucket, key, rawURL string) (Locator, error) {
	if bucket == "" {
		return Locator{}, fmt.Errorf("locator bucket is required")
	}
	if key == "" {
		return Locator{}, fmt.Errorf("locator key is required")
	}
	if rawURL == "" {
		return Locator{}, fmt.Errorf("locator url is required")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Locator{}, fmt.Errorf("invalid locator url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return Locator{}, fmt.Errorf("locator url %q is not absolute", rawURL)
	}

	return Locator{Bucket: bucket, Key: key, URL: rawURL}, nil
}

// Asset is a local file to be staged in object storage under Key.
type Asset struct {
	Path string
	Key  string
}
