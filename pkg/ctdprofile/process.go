package ctdprofile

import (
	"errors"
	"fmt"

	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/models"
	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/modify"
	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/parser"
	"go.uber.org/zap"
)

// ModifyFile parses the profile at inputPath, finalizes it against layout and
// writes the result to outputPath.
func ModifyFile(inputPath, outputPath string, layout *models.SensorLayout, opts Options) (*modify.Result, error) {
	log := opts.logger().With(zap.String("file", inputPath))

	p, err := parser.ParseFile(inputPath)
	if err != nil {
		return nil, NewProfileError(inputPath, "parse", err)
	}
	log.Debug("profile parsed",
		zap.Int("columns", len(p.Columns())),
		zap.Int("rows", p.Rows()))

	m := modify.New(layout, modify.Options{
		Logger:             log,
		Now:                opts.Now,
		UseLayoutFormat:    opts.UseLayoutFormat,
		BlankInactiveSpans: opts.BlankInactiveSpans,
	})
	res, err := m.Modify(p)
	if err != nil {
		stage := "modify"
		if errors.Is(err, ErrInvalidParameterIndex) || errors.Is(err, ErrMissingAttribute) {
			stage = "validate"
		}
		return res, NewProfileError(inputPath, stage, err)
	}

	if err := p.Save(outputPath, opts.lineBreak(), opts.Overwrite); err != nil {
		return res, NewProfileError(inputPath, "save", err)
	}
	log.Info("profile modified",
		zap.String("output", outputPath),
		zap.Int("steps_applied", len(res.Applied)),
		zap.Int("warnings", len(res.Warnings)))
	return res, nil
}

// LayoutForProfile picks the layout of the instrument the profile at
// inputPath was recorded with, identified by its pressure sensor serial.
func LayoutForProfile(inputPath string, layouts *parser.LayoutSet, opts Options) (*models.SensorLayout, error) {
	sf, err := ExtractSensorFile(inputPath, opts)
	if err != nil {
		return nil, err
	}
	serial, ok := parser.InstrumentSerial(sf.Sensors)
	if !ok {
		return nil, NewProfileError(inputPath, "layout", fmt.Errorf("%w: pressure sensor serial", ErrMissingAttribute))
	}
	layout, err := layouts.ForInstrument(serial)
	if err != nil {
		return nil, NewProfileError(inputPath, "layout", err)
	}
	opts.logger().Debug("layout selected",
		zap.String("file", inputPath),
		zap.String("instrument", serial),
		zap.String("layout", layout.Source))
	return layout, nil
}
