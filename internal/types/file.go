package types

import "io"

const defaultArtifactContentType = "application/octet-stream"

// File is a backup artifact streamed to or from a storage. The reader of a
// File returned by a storage owns Content and must close it.
type File struct {
	Content io.ReadCloser
	Stat    FileStat
}

// FileStat describes an artifact. Size is -1 when the length is not known
// before the stream ends.
type FileStat struct {
	Size        int64
	Name        string
	ContentType string
}

func (f File) MediaType() string {
	if f.Stat.ContentType == "" {
		return defaultArtifactContentType
	}
	return f.Stat.ContentType
}
