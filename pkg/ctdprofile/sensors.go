package ctdprofile

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/history"
	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/models"
	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/parser"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SensorFile holds the sensors declared in one profile.
type SensorFile struct {
	Path    string
	Info    models.ProfileInfo
	Sensors []models.SensorRecord
}

// ExtractSensorFile reads the sensor block of the profile at path. Sensors
// with an unparseable calibration date are kept without a date and logged.
func ExtractSensorFile(path string, opts Options) (*SensorFile, error) {
	p, err := parser.ParseFile(path)
	if err != nil {
		return nil, NewProfileError(path, "parse", err)
	}
	sensors, err := p.Sensors()
	if err != nil {
		return nil, NewProfileError(path, "sensors", err)
	}
	for _, s := range sensors {
		if s.RawCalibrationDate != "" {
			opts.logger().Warn("unparseable calibration date",
				zap.String("path", path),
				zap.String("sensor", s.Kind),
				zap.String("serial", s.SerialNumber),
				zap.String("date", s.RawCalibrationDate))
		}
	}
	return &SensorFile{Path: path, Info: p.Info, Sensors: sensors}, nil
}

// ExtractSensorFiles reads the sensor blocks of paths concurrently. Results
// keep the order of paths. The first failing file cancels the rest.
func ExtractSensorFiles(ctx context.Context, paths []string, opts Options) ([]SensorFile, error) {
	results := make([]SensorFile, len(paths))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.workers())
	for i, path := range paths {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			sf, err := ExtractSensorFile(path, opts)
			if err != nil {
				return err
			}
			results[i] = *sf
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ConsolidateFiles extracts the sensors of paths and merges them into one
// history record per (serial number, parameter). Sensors missing from lookup
// are skipped and returned as errors; they do not stop the run.
func ConsolidateFiles(ctx context.Context, paths []string, lookup history.LookupFunc, opts Options) ([]models.HistoryRecord, []error, error) {
	log := opts.logger()

	files, err := ExtractSensorFiles(ctx, paths, opts)
	if err != nil {
		return nil, nil, err
	}

	c := history.NewConsolidator(log)
	var skipped []error
	for _, f := range files {
		if f.Info.Time.IsZero() {
			return nil, skipped, NewProfileError(f.Path, "sensors", fmt.Errorf("%w: acquisition time", ErrMissingAttribute))
		}
		skipped = append(skipped, c.AddSensors(filepath.Base(f.Path), f.Info.Time, f.Sensors, lookup)...)
	}

	log.Info("sensor history consolidated",
		zap.Int("files", len(files)),
		zap.Int("records", c.Len()),
		zap.Int("skipped", len(skipped)))
	return c.Records(), skipped, nil
}
