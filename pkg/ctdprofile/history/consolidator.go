// Package history merges repeated sensor observations from many profiles
// into one validity interval per (serial number, parameter) pair.
package history

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/models"
	"go.uber.org/zap"
)

// ErrSensorNotFound indicates a sensor without a row in the reference table.
var ErrSensorNotFound = errors.New("sensor not found in reference table")

// Observation is one sensor seen in one profile.
type Observation struct {
	SerialNumber    string
	Param           string
	CalibrationDate string
	// Reference is the static metadata looked up for the sensor, if any.
	Reference *models.SensorReference
}

// Batch holds the observations of one profile.
type Batch struct {
	// Source identifies the profile, used in log fields.
	Source string
	// Time is the profile acquisition time.
	Time         time.Time
	Observations []Observation
}

// LookupFunc returns static reference metadata for a sensor kind and serial number.
type LookupFunc func(kind, serial string) (models.SensorReference, bool)

// BatchFromSensors converts a profile's sensor records into a batch. Without
// lookup the sensor kind is the parameter code. With lookup, the reference
// row's PARAM is used and sensors without a row are left out; one error
// wrapping ErrSensorNotFound is returned per skipped sensor. A sensor whose
// channel comment marks it as the secondary of a pair gets the secondary
// parameter codes (see SlotReference).
func BatchFromSensors(source string, t time.Time, sensors []models.SensorRecord, lookup LookupFunc) (Batch, []error) {
	batch := Batch{Source: source, Time: t}
	var skipped []error
	for _, s := range sensors {
		obs := Observation{
			SerialNumber:    s.SerialNumber,
			Param:           s.Kind,
			CalibrationDate: s.CalibrationDateString(),
		}
		if lookup != nil {
			ref, ok := lookup(s.Kind, s.SerialNumber)
			if !ok {
				skipped = append(skipped, fmt.Errorf("%w: %s serial %q in %s", ErrSensorNotFound, s.Kind, s.SerialNumber, source))
				continue
			}
			ref = SlotReference(ref, s.Comment)
			if ref.Param != "" {
				obs.Param = ref.Param
			}
			obs.Reference = &ref
		}
		batch.Observations = append(batch.Observations, obs)
	}
	return batch, skipped
}

// ParamSimpleColumn is the reference column holding the short parameter code.
const ParamSimpleColumn = "PARAM_SIMPLE"

// IsSecondarySlot reports whether a channel comment names the second sensor
// of a duplicated pair, e.g. "Temperature, 2" or "Conductivity, 2 [S/m]".
func IsSecondarySlot(comment string) bool {
	name, _, _ := strings.Cut(comment, "[")
	return strings.HasSuffix(strings.ReplaceAll(name, " ", ""), ",2")
}

// SlotReference returns ref with its parameter codes adjusted for the channel
// slot named by comment. A trailing '*' on a code marks it as shared by both
// slots and is always dropped. Otherwise a secondary sensor gets "2" inserted
// before the last '_' segment of PARAM (TEMP_CTD becomes TEMP2_CTD) and
// appended to PARAM_SIMPLE. ref is not modified.
func SlotReference(ref models.SensorReference, comment string) models.SensorReference {
	secondary := IsSecondarySlot(comment)
	ref.Param = slotCode(ref.Param, secondary, secondParam)
	if len(ref.Extra) > 0 {
		extra := make(map[string]string, len(ref.Extra))
		for k, v := range ref.Extra {
			if secondary {
				if k == ParamSimpleColumn {
					v = slotCode(v, true, func(s string) string { return s + "2" })
				}
			} else {
				v = strings.Trim(v, "*")
			}
			extra[k] = v
		}
		ref.Extra = extra
	}
	return ref
}

func slotCode(code string, secondary bool, second func(string) string) string {
	if code == "" {
		return code
	}
	if !secondary || strings.HasSuffix(code, "*") {
		return strings.Trim(code, "*")
	}
	return second(code)
}

func secondParam(code string) string {
	parts := strings.Split(code, "_")
	if len(parts) < 2 {
		return code + "2"
	}
	parts[len(parts)-2] += "2"
	return strings.Join(parts, "_")
}

type key struct {
	serial string
	param  string
}

type record struct {
	key       key
	validFrom time.Time
	validTo   time.Time
	calDates  map[string]struct{}
	reference *models.SensorReference
}

// Consolidator accumulates batches. It is not safe for concurrent use; feed
// it from a single goroutine.
type Consolidator struct {
	logger  *zap.Logger
	records map[key]*record
	params  []string
	groups  map[string][]*record
}

// NewConsolidator creates an empty consolidator. A nil logger disables logging.
func NewConsolidator(logger *zap.Logger) *Consolidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consolidator{
		logger:  logger,
		records: make(map[key]*record),
		groups:  make(map[string][]*record),
	}
}

// Add merges one batch. Batches may arrive in any chronological order.
func (c *Consolidator) Add(batch Batch) {
	for _, obs := range batch.Observations {
		c.observe(batch.Time, obs)
	}
	c.logger.Debug("batch consolidated",
		zap.String("source", batch.Source),
		zap.Int("observations", len(batch.Observations)))
}

// AddSensors converts sensors with lookup and merges them. Sensors missing
// from the reference table are logged and skipped; the rest of the batch is kept.
func (c *Consolidator) AddSensors(source string, t time.Time, sensors []models.SensorRecord, lookup LookupFunc) []error {
	batch, skipped := BatchFromSensors(source, t, sensors, lookup)
	for _, err := range skipped {
		c.logger.Warn("sensor skipped", zap.String("source", source), zap.Error(err))
	}
	c.Add(batch)
	return skipped
}

func (c *Consolidator) observe(t time.Time, obs Observation) {
	k := key{serial: obs.SerialNumber, param: obs.Param}
	rec, ok := c.records[k]
	if !ok {
		rec = &record{
			key:       k,
			validFrom: t,
			validTo:   t,
			calDates:  make(map[string]struct{}),
			reference: obs.Reference,
		}
		c.records[k] = rec
		if _, seen := c.groups[k.param]; !seen {
			c.params = append(c.params, k.param)
		}
		c.groups[k.param] = append(c.groups[k.param], rec)
	}

	if t.Before(rec.validFrom) {
		rec.validFrom = t
	}
	if t.After(rec.validTo) {
		rec.validTo = t
	}
	if obs.CalibrationDate != "" {
		rec.calDates[obs.CalibrationDate] = struct{}{}
	}
	if rec.reference == nil {
		rec.reference = obs.Reference
	}
}

// Len returns the number of distinct (serial number, parameter) pairs.
func (c *Consolidator) Len() int {
	return len(c.records)
}

// Records returns the consolidated records grouped by parameter in
// first-seen order, and within a parameter by first-seen order.
func (c *Consolidator) Records() []models.HistoryRecord {
	out := make([]models.HistoryRecord, 0, len(c.records))
	for _, param := range c.params {
		for _, rec := range c.groups[param] {
			dates := make([]string, 0, len(rec.calDates))
			for d := range rec.calDates {
				dates = append(dates, d)
			}
			sort.Strings(dates)
			out = append(out, models.HistoryRecord{
				SerialNumber:     rec.key.serial,
				Param:            rec.key.param,
				ValidFrom:        rec.validFrom,
				ValidTo:          rec.validTo,
				CalibrationDates: dates,
				Reference:        rec.reference,
			})
		}
	}
	return out
}
