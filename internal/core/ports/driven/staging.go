package driven

import "context"

// FileStager copies uploaded files into the documents directory.
type FileStager interface {
	// Stage copies src into the documents directory under displayName.
	// A name that is already taken gets a numeric suffix (name_1.ext).
	// Returns the absolute final path and the name actually used.
	Stage(ctx context.Context, src, displayName string) (finalPath, name string, err error)

	// Remove deletes a staged file by name. Missing files are not an error.
	Remove(name string) error

	// Dir returns the documents directory.
	Dir() string
}
