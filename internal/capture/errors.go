package capture

import "errors"

var (
	// ErrEmptyDataset is returned when no numeric sample rows could be recovered.
	ErrEmptyDataset = errors.New("no valid data points found in the file")
	// ErrMalformedInput is returned for content that is not text.
	ErrMalformedInput = errors.New("file content is not text")
	// ErrUnsupportedFileType is returned for extensions other than .scp, .txt and .csv.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrFileTooLarge is returned for files above MaxFileSize.
	ErrFileTooLarge = errors.New("file too large")
)
