package feedback

import "errors"

var (
	// ErrNoInstructorData means the splitter produced no per-instructor
	// files, typically because the CSV has no "Instructor" column.
	ErrNoInstructorData = errors.New("No instructor data found. Please verify the CSV contains an 'Instructor' column")

	// ErrFileNotFound means the requested instructor file is absent from
	// the data directory. No collaborator is spawned in this case.
	ErrFileNotFound = errors.New("instructor file not found")

	// ErrInvalidFilename rejects empty or path-escaping filenames before
	// any disk access.
	ErrInvalidFilename = errors.New("invalid filename")
)

// RejectedError relays a structured `error` field emitted by the
// analyzer itself ("No valid feedback found in CSV file", etc.). It is
// a client error: the input, not the environment, was at fault.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}
