package modify

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/models"
	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/parser"
	"go.uber.org/zap"
)

// ErrInvalidParameterIndex indicates the sensor layout does not match the parsed columns.
var ErrInvalidParameterIndex = errors.New("sensor layout does not match profile columns")

// ErrMissingAttribute indicates a required reference object was not supplied.
var ErrMissingAttribute = errors.New("missing required attribute")

// ErrMissingColumn indicates a column a step depends on is absent.
var ErrMissingColumn = errors.New("required column not found")

// Column label fragments used to locate columns.
const (
	pressureLabel      = "Pressure, Digiquartz [db]"
	densityLabel       = "Density [sigma-t"
	density2Label      = "Density, 2 [sigma-t"
	freshDepthLabel    = "Depth [fresh water, m]"
	trueDepthLabel     = "Depth [true depth, m]"
	soundVelocityLabel = "Sound Velocity [Chen-Millero, m/s]"
	depthLayoutLabel   = "depFM: Depth"
)

// Header fragments.
const (
	shipMarker       = "** Ship"
	trueDepthMarker  = "True-depth calculation"
	timestampLayout  = "Mon, 02 Jan 2006 15:04:05 +0000"
	freshWater       = "fresh water"
	trueDepth        = "true depth"
	fluorometerWord  = "Fluorometer"
	fluorescenceWord = "Fluorescence"
)

// Stage is a state of the modification pipeline.
type Stage string

const (
	StageParsed                Stage = "parsed"
	StageValidated             Stage = "validated"
	StageHeaderAugmented       Stage = "header_augmented"
	StageUnitsAnnotated        Stage = "units_annotated"
	StageFluorescenceRelabeled Stage = "fluorescence_relabeled"
	StageDepthReplaced         Stage = "depth_replaced"
	StageFinalized             Stage = "finalized"
)

// unitRule appends a unit suffix to the header line containing match.
type unitRule struct {
	match  string
	suffix string
}

var unitRules = []unitRule{
	{match: "par: PAR/Irradiance", suffix: " [µE/(cm^2*s)]"},
}

// relabelRule prefixes a fluorometer's sensor line and column label when the
// serial number two lines below the sensor declaration starts with serialPrefix.
type relabelRule struct {
	sensorMarker string
	serialPrefix string
	columnLabel  string
	prefix       string
}

var fluorescenceRules = []relabelRule{
	{
		sensorMarker: "Fluorometer, WET Labs ECO-AFL/FL -->",
		serialPrefix: "<SerialNumber>FLNTURT",
		columnLabel:  "Fluorescence, WET Labs ECO-AFL/FL [mg/m^3]",
		prefix:       "Chl-a ",
	},
	{
		sensorMarker: "Fluorometer, WET Labs ECO-AFL/FL, 2 -->",
		serialPrefix: "<SerialNumber>FLPCRTD",
		columnLabel:  "Fluorescence, WET Labs ECO-AFL/FL, 2 [mg/m^3]",
		prefix:       "Phycocyanin ",
	},
}

// Options configures a Modifier.
type Options struct {
	// Logger receives step diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger
	// Now returns the time written to the true-depth calculation line.
	Now func() time.Time
	// UseLayoutFormat prints columns with the layout's format when it has one.
	UseLayoutFormat bool
	// BlankInactiveSpans rewrites the span line of inactive columns to missing values.
	BlankInactiveSpans bool
}

// Result reports what a Modify call did.
type Result struct {
	// Stage is the last stage reached.
	Stage Stage
	// Applied lists the steps that changed the profile.
	Applied []Stage
	// Warnings holds step errors; they do not abort later steps.
	Warnings []error
}

// Modifier applies the fixed finalization sequence to a profile.
type Modifier struct {
	layout *models.SensorLayout
	opts   Options
	logger *zap.Logger
}

// New creates a Modifier checking profiles against layout.
func New(layout *models.SensorLayout, opts Options) *Modifier {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Modifier{layout: layout, opts: opts, logger: opts.Logger}
}

type step struct {
	stage Stage
	apply func(*parser.Profile) (bool, error)
}

// Modify validates p against the layout and then applies, in order, header
// augmentation, unit annotation, fluorometer relabelling and depth
// replacement. Validation failures abort before anything is changed. Each
// later step is idempotent, so modifying a profile twice is safe.
func (m *Modifier) Modify(p *parser.Profile) (*Result, error) {
	res := &Result{Stage: StageParsed}
	if err := m.Validate(p); err != nil {
		return res, err
	}
	m.applyLayout(p)
	res.Stage = StageValidated

	steps := []step{
		{StageHeaderAugmented, m.augmentHeader},
		{StageUnitsAnnotated, m.annotateUnits},
		{StageFluorescenceRelabeled, m.relabelFluorescence},
		{StageDepthReplaced, m.replaceDepth},
	}
	if m.opts.BlankInactiveSpans {
		steps = append(steps, step{StageFinalized, m.blankInactiveSpans})
	}

	for _, s := range steps {
		changed, err := s.apply(p)
		if err != nil {
			m.logger.Warn("modify step failed",
				zap.String("step", string(s.stage)),
				zap.String("file", p.Path),
				zap.Error(err))
			res.Warnings = append(res.Warnings, fmt.Errorf("%s: %w", s.stage, err))
		} else if changed {
			res.Applied = append(res.Applied, s.stage)
		} else {
			m.logger.Debug("modify step made no change",
				zap.String("step", string(s.stage)),
				zap.String("file", p.Path))
		}
		res.Stage = s.stage
	}
	res.Stage = StageFinalized
	return res, nil
}

// Validate checks that every layout entry names the column found at its
// index. The depth column is exempt since its label is rewritten.
func (m *Modifier) Validate(p *parser.Profile) error {
	if m.layout == nil {
		return fmt.Errorf("%w: sensor layout", ErrMissingAttribute)
	}
	for _, i := range m.layout.Indices() {
		entry := m.layout.Entries[i]
		col, ok := p.Column(i)
		if !ok {
			return fmt.Errorf("%w: index %d (%s) not in profile", ErrInvalidParameterIndex, i, entry.Name)
		}
		if strings.Contains(entry.Name, depthLayoutLabel) {
			if !strings.Contains(col.Name, freshDepthLabel) && !strings.Contains(col.Name, trueDepthLabel) {
				return fmt.Errorf("%w: index %d: expected depth column, found %q", ErrInvalidParameterIndex, i, col.Name)
			}
			continue
		}
		if !strings.Contains(col.Name, entry.Name) {
			return fmt.Errorf("%w: index %d: expected %q, found %q", ErrInvalidParameterIndex, i, entry.Name, col.Name)
		}
	}
	return nil
}

func (m *Modifier) applyLayout(p *parser.Profile) {
	for i, entry := range m.layout.Entries {
		col, ok := p.Column(i)
		if !ok {
			continue
		}
		col.Active = entry.Active
		if m.opts.UseLayoutFormat && entry.Format != "" {
			if spec, err := parser.ParseFormatSpec(entry.Format); err == nil {
				col.Format.SetOverride(spec)
			}
		}
	}
}

func (m *Modifier) augmentHeader(p *parser.Profile) (bool, error) {
	sv, ok := p.ColumnMatching(soundVelocityLabel)
	if !ok {
		return false, nil
	}
	avg, ok := mean(sv.Values)
	if !ok {
		return false, nil
	}

	svLine := fmt.Sprintf("** Average sound velocity: %6.2f m/s", avg)
	changed := p.Header.InsertAfter(svLine, shipMarker)
	if !p.Header.Contains(trueDepthMarker) {
		tdLine := fmt.Sprintf("** %s %s", trueDepthMarker, m.opts.Now().UTC().Format(timestampLayout))
		changed = p.Header.InsertAfter(tdLine, svLine) || changed
	}
	return changed, nil
}

func (m *Modifier) annotateUnits(p *parser.Profile) (bool, error) {
	changed := false
	for _, rule := range unitRules {
		changed = p.Header.AppendToMatching(rule.match, rule.suffix) || changed
	}
	return changed, nil
}

func (m *Modifier) relabelFluorescence(p *parser.Profile) (bool, error) {
	changed := false
	for _, rule := range fluorescenceRules {
		sensorIdx := p.Header.FindIndex(rule.sensorMarker)
		if sensorIdx < 0 || !containsIndex(p.Header.FindIndices(rule.serialPrefix), sensorIdx+2) {
			continue
		}

		n := p.Header.ReplaceSubstringAt([]int{sensorIdx}, fluorometerWord, rule.prefix+fluorometerWord, true)
		n += p.Header.ReplaceSubstringAt(p.Header.FindIndices(rule.columnLabel), fluorescenceWord, rule.prefix+fluorescenceWord, true)
		changed = changed || n > 0

		col, ok := p.ColumnMatching(rule.columnLabel)
		if !ok || strings.Contains(col.Name, rule.prefix+fluorescenceWord) {
			continue
		}
		newName := strings.Replace(col.Name, fluorescenceWord, rule.prefix+fluorescenceWord, 1)
		changed = p.RenameColumn(col.Name, newName) || changed
	}
	return changed, nil
}

func (m *Modifier) replaceDepth(p *parser.Profile) (bool, error) {
	depthCol, ok := p.ColumnMatching(freshDepthLabel)
	if !ok {
		depthCol, ok = p.ColumnMatching(trueDepthLabel)
	}
	if !ok {
		return false, nil
	}
	pressure, ok := p.ColumnMatching(pressureLabel)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrMissingColumn, pressureLabel)
	}

	p.Header.ReplaceSubstringAt(p.Header.FindIndices(freshDepthLabel), freshWater, trueDepth, true)
	if strings.Contains(depthCol.Name, freshWater) {
		p.RenameColumn(depthCol.Name, strings.ReplaceAll(depthCol.Name, freshWater, trueDepth))
	}

	depths, err := TrueDepth(pressure.Values, m.densityValues(p))
	if err != nil {
		return false, err
	}
	if err := p.ReplaceValues(depthCol.Index, RoundDepths(depths)); err != nil {
		return false, err
	}

	if spanIdx := p.Header.FindIndex(spanMarker(depthCol.Index)); spanIdx >= 0 {
		line := missingSpanLine(depthCol.Index)
		if lo, hi, ok := valueRange(depths); ok {
			line = SpanLine(depthCol.Index, lo, hi)
		}
		if err := p.Header.ReplaceLine(spanIdx, line); err != nil {
			return true, err
		}
	}
	return true, nil
}

// densityValues returns the primary density if its sensor is active, else
// the secondary one, else missing values for every row.
func (m *Modifier) densityValues(p *parser.Profile) []float64 {
	if col, ok := p.ColumnMatching(densityLabel); ok && col.Active {
		return col.Values
	}
	if col, ok := p.ColumnMatching(density2Label); ok && col.Active {
		return col.Values
	}
	m.logger.Info("no active density sensor, depth set to missing", zap.String("file", p.Path))
	values := make([]float64, p.Rows())
	for i := range values {
		values[i] = parser.MissingValue
	}
	return values
}

func (m *Modifier) blankInactiveSpans(p *parser.Profile) (bool, error) {
	changed := false
	for _, i := range m.layout.Indices() {
		if m.layout.Entries[i].Active {
			continue
		}
		spanIdx := p.Header.FindIndex(spanMarker(i))
		if spanIdx < 0 {
			continue
		}
		line := missingSpanLine(i)
		if p.Header.Line(spanIdx) == line {
			continue
		}
		if err := p.Header.ReplaceLine(spanIdx, line); err != nil {
			return changed, err
		}
		changed = true
	}
	return changed, nil
}

func spanMarker(index int) string {
	return fmt.Sprintf("# span %d =", index)
}

func containsIndex(indices []int, i int) bool {
	for _, v := range indices {
		if v == i {
			return true
		}
	}
	return false
}
