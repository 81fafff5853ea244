// Package types provides type-safe constants for the backcycle configuration system.
//
// This package centralizes the enumerated types used throughout the codebase,
// replacing magic strings with typed constants that provide compile-time safety
// and validation methods.
package types

import (
	"fmt"
	"strings"
)

// StorageKind identifies the kind of storage a package was stored to.
//
// The manifest file for a trigger is named after the kind (see FileName), so
// the set of kinds and their file names must stay stable across releases.
type StorageKind string

const (
	// StorageKindLocal stores packages on a local or mounted filesystem.
	StorageKindLocal StorageKind = "local"
	// StorageKindSFTP stores packages on a remote host over SFTP.
	StorageKindSFTP StorageKind = "sftp"
	// StorageKindSCP stores packages on a remote host over SCP.
	StorageKindSCP StorageKind = "scp"
	// StorageKindFTP stores packages on an FTP server.
	StorageKindFTP StorageKind = "ftp"
	// StorageKindRSync stores packages with rsync.
	StorageKindRSync StorageKind = "rsync"
	// StorageKindS3 stores packages in an S3-compatible bucket.
	StorageKindS3 StorageKind = "s3"
	// StorageKindDropbox stores packages in Dropbox.
	StorageKindDropbox StorageKind = "dropbox"
	// StorageKindCloudFiles stores packages in Rackspace Cloud Files.
	StorageKindCloudFiles StorageKind = "cloudfiles"
)

var storageKindFileNames = map[StorageKind]string{
	StorageKindLocal:      "Local",
	StorageKindSFTP:       "SFTP",
	StorageKindSCP:        "SCP",
	StorageKindFTP:        "FTP",
	StorageKindRSync:      "RSync",
	StorageKindS3:         "S3",
	StorageKindDropbox:    "Dropbox",
	StorageKindCloudFiles: "CloudFiles",
}

// AllStorageKinds returns all valid storage kinds.
func AllStorageKinds() []StorageKind {
	return []StorageKind{
		StorageKindLocal,
		StorageKindSFTP,
		StorageKindSCP,
		StorageKindFTP,
		StorageKindRSync,
		StorageKindS3,
		StorageKindDropbox,
		StorageKindCloudFiles,
	}
}

// Validate checks if the StorageKind is a valid value.
func (k StorageKind) Validate() error {
	if k == "" {
		return fmt.Errorf("storage kind is required")
	}
	if _, ok := storageKindFileNames[k]; !ok {
		names := make([]string, 0, len(storageKindFileNames))
		for _, kind := range AllStorageKinds() {
			names = append(names, string(kind))
		}
		return fmt.Errorf("invalid storage kind '%s' (must be one of %s)", k, strings.Join(names, ", "))
	}
	return nil
}

// String returns the string representation of the StorageKind.
func (k StorageKind) String() string {
	return string(k)
}

// FileName returns the name used for this kind's manifest file.
// Unknown kinds fall back to the raw value.
func (k StorageKind) FileName() string {
	if name, ok := storageKindFileNames[k]; ok {
		return name
	}
	return string(k)
}

// IsLocal returns true if the storage kind is local.
func (k StorageKind) IsLocal() bool {
	return k == StorageKindLocal
}

// ParseStorageKind parses a string into a StorageKind.
// Returns an error if the string is not a valid storage kind.
func ParseStorageKind(s string) (StorageKind, error) {
	sk := StorageKind(strings.ToLower(strings.TrimSpace(s)))
	if err := sk.Validate(); err != nil {
		return "", err
	}
	return sk, nil
}
