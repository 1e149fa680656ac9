// Package auth provides a high-level API for persisting and retrieving user credentials from the system keyring.
package auth

import (
	"github.com/zalando/go-keyring"
)

const (
	service = "vireo-cli"
	user    = "subtitles-api-key"
)

// SetSubtitleKey persists the subtitle service API key to the system keyring.
func SetSubtitleKey(token string) error {
	return keyring.Set(service, user, token)
}

// SubtitleKey retrieves the subtitle service API key from the system keyring.
func SubtitleKey() (string, error) {
	return keyring.Get(service, user)
}

// DeleteSubtitleKey removes the subtitle service API key from the system keyring.
func DeleteSubtitleKey() error {
	return keyring.Delete(service, user)
}
