package core

import "mime/multipart"

// FileStorage is any service that can persist uploaded photos and build their
// public URLs. Folder is the fixed per-entity subfolder name.
type FileStorage interface {
	// Save persists an uploaded file and returns its stored filename.
	Save(fh *multipart.FileHeader, folder string) (string, error)
	// Remove deletes a stored file. Removal failures are expected to be
	// logged by the caller, never raised.
	Remove(folder, filename string) error
	// URL builds the public URL of a stored file. Returns "" for an empty
	// filename.
	URL(folder, filename string) string
}
