package ctdprofile

import (
	"fmt"

	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/history"
	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/modify"
	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/output"
	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/parser"
)

var (
	// ErrFormatInconsistency indicates a data row that is not uniformly spaced.
	ErrFormatInconsistency = parser.ErrFormatInconsistency
	// ErrInvalidCalibrationDate indicates a calibration date in an unknown shape.
	ErrInvalidCalibrationDate = parser.ErrInvalidCalibrationDate
	// ErrInvalidParameterIndex indicates the sensor layout does not match the profile.
	ErrInvalidParameterIndex = modify.ErrInvalidParameterIndex
	// ErrMissingAttribute indicates a required reference object was not supplied.
	ErrMissingAttribute = modify.ErrMissingAttribute
	// ErrMissingColumn indicates a column needed by a modification step is absent.
	ErrMissingColumn = modify.ErrMissingColumn
	// ErrSensorNotFound indicates a sensor without a reference table row.
	ErrSensorNotFound = history.ErrSensorNotFound
	// ErrUnknownInstrument indicates a layout directory without a layout for the instrument.
	ErrUnknownInstrument = parser.ErrUnknownInstrument
	// ErrDuplicateOutput indicates an existing output file and no overwrite permission.
	ErrDuplicateOutput = output.ErrDuplicateOutput
)

// ProfileError represents an error while processing one profile file.
type ProfileError struct {
	Path  string
	Stage string // "parse", "layout", "validate", "modify", "save", "sensors"
	Err   error
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("profile %q (%s): %v", e.Path, e.Stage, e.Err)
}

func (e *ProfileError) Unwrap() error {
	return e.Err
}

// NewProfileError creates a new ProfileError.
func NewProfileError(path, stage string, err error) *ProfileError {
	return &ProfileError{
		Path:  path,
		Stage: stage,
		Err:   err,
	}
}
