package modify

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/models"
	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/parser"
)

const fixturePath = "../parser/testdata/profile.cnv"

var fixedNow = func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }

func loadProfile(t *testing.T) *parser.Profile {
	t.Helper()
	p, err := parser.ParseFile(fixturePath)
	require.NoError(t, err)
	return p
}

func fixtureLayout() *models.SensorLayout {
	return &models.SensorLayout{Entries: map[int]models.LayoutEntry{
		0: {Index: 0, Name: "Pressure, Digiquartz [db]", Active: true},
		1: {Index: 1, Name: "Temperature [ITS-90", Active: true},
		2: {Index: 2, Name: "Density [sigma-t", Active: true},
		3: {Index: 3, Name: "Density, 2 [sigma-t", Active: true},
		4: {Index: 4, Name: "Sound Velocity", Active: true},
		7: {Index: 7, Name: "depFM: Depth", Active: true},
	}}
}

func lineAfter(h *parser.Header, marker string) string {
	i := h.FindIndex(marker)
	if i < 0 || i+1 >= h.Len() {
		return ""
	}
	return h.Line(i + 1)
}

func TestModify(t *testing.T) {
	p := loadProfile(t)
	m := New(fixtureLayout(), Options{Now: fixedNow})

	res, err := m.Modify(p)
	require.NoError(t, err)
	if res.Stage != StageFinalized {
		t.Errorf("Expected stage %s, got %s", StageFinalized, res.Stage)
	}
	wantApplied := []Stage{StageHeaderAugmented, StageUnitsAnnotated, StageFluorescenceRelabeled, StageDepthReplaced}
	if diff := cmp.Diff(wantApplied, res.Applied); diff != "" {
		t.Errorf("Applied mismatch (-want +got):\n%s", diff)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Unexpected warnings: %v", res.Warnings)
	}

	h := p.Header
	if got := lineAfter(h, "** Ship"); got != "** Average sound velocity: 1480.46 m/s" {
		t.Errorf("Unexpected line after ship: %q", got)
	}
	if got := lineAfter(h, "** Average sound velocity"); got != "** True-depth calculation Thu, 15 Oct 2026 12:00:00 +0000" {
		t.Errorf("Unexpected timestamp line: %q", got)
	}
	if !h.Contains("par: PAR/Irradiance, Biospherical/Licor [µE/(cm^2*s)]") {
		t.Error("Expected PAR unit annotation")
	}
	if !h.Contains("# name 5 = flECO-AFL: Chl-a Fluorescence, WET Labs ECO-AFL/FL [mg/m^3]") {
		t.Error("Expected relabelled fluorescence column line")
	}
	if !h.Contains("A/D voltage 0, Chl-a Fluorometer, WET Labs ECO-AFL/FL -->") {
		t.Error("Expected relabelled fluorometer sensor line")
	}
	if !h.Contains("# name 7 = depFM: Depth [true depth, m], lat = 57.7") {
		t.Error("Expected true depth column line")
	}
	if h.Contains("fresh water") {
		t.Error("Expected no fresh water label left")
	}
	if got := h.Line(h.FindIndex("# span 7 =")); got != "# span 7 =      1.013,      3.040" {
		t.Errorf("Unexpected depth span line %q", got)
	}

	depth, ok := p.Column(7)
	require.True(t, ok)
	if diff := cmp.Diff([]float64{1.013, 2.027, 3.040}, depth.Values); diff != "" {
		t.Errorf("depth mismatch (-want +got):\n%s", diff)
	}
	if depth.Name != "depFM: Depth [true depth, m], lat = 57.7" {
		t.Errorf("Unexpected depth column name %q", depth.Name)
	}
	fl, _ := p.Column(5)
	if fl.Name != "flECO-AFL: Chl-a Fluorescence, WET Labs ECO-AFL/FL [mg/m^3]" {
		t.Errorf("Unexpected fluorescence column name %q", fl.Name)
	}
	if !strings.Contains(p.DataLines()[0], "      1.013") {
		t.Errorf("Expected depth in data line, got %q", p.DataLines()[0])
	}
}

func TestModifyTwice(t *testing.T) {
	p := loadProfile(t)
	m := New(fixtureLayout(), Options{Now: fixedNow})

	_, err := m.Modify(p)
	require.NoError(t, err)
	first := string(p.Bytes("\n"))

	res, err := m.Modify(p)
	require.NoError(t, err)
	if diff := cmp.Diff(first, string(p.Bytes("\n"))); diff != "" {
		t.Errorf("second Modify changed the profile (-first +second):\n%s", diff)
	}
	for _, s := range res.Applied {
		if s == StageHeaderAugmented || s == StageUnitsAnnotated || s == StageFluorescenceRelabeled {
			t.Errorf("Expected %s to make no change on second run", s)
		}
	}
	if n := len(p.Header.FindIndices("Chl-a")); n != 2 {
		t.Errorf("Expected 2 Chl-a lines, got %d", n)
	}
	if n := strings.Count(first, "Chl-a Chl-a"); n != 0 {
		t.Errorf("Expected prefix applied once, found %d doubles", n)
	}
}

func TestModifyKeepsExistingTimestamp(t *testing.T) {
	p := loadProfile(t)
	require.True(t, p.Header.InsertAfter("** True-depth calculation Mon, 01 Jan 2024 00:00:00 +0000", "** Station"))

	_, err := New(fixtureLayout(), Options{Now: fixedNow}).Modify(p)
	require.NoError(t, err)
	if p.Header.Contains("2026") {
		t.Error("Expected existing true-depth line to be kept")
	}
	if n := len(p.Header.FindIndices("True-depth calculation")); n != 1 {
		t.Errorf("Expected one true-depth line, got %d", n)
	}
}

func TestValidateInvalidParameterIndex(t *testing.T) {
	tests := []struct {
		name  string
		entry models.LayoutEntry
	}{
		{"wrong label", models.LayoutEntry{Index: 1, Name: "Salinity, Practical", Active: true}},
		{"index out of range", models.LayoutEntry{Index: 20, Name: "Oxygen", Active: true}},
		{"depth at wrong index", models.LayoutEntry{Index: 4, Name: "depFM: Depth", Active: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := loadProfile(t)
			before := p.Header.Lines()
			layout := fixtureLayout()
			layout.Entries[tt.entry.Index] = tt.entry

			_, err := New(layout, Options{Now: fixedNow}).Modify(p)
			if !errors.Is(err, ErrInvalidParameterIndex) {
				t.Fatalf("Expected ErrInvalidParameterIndex, got %v", err)
			}
			if diff := cmp.Diff(before, p.Header.Lines()); diff != "" {
				t.Errorf("header changed despite validation failure (-want +got):\n%s", diff)
			}
			depth, _ := p.Column(7)
			if depth.Values[0] != 0.995 {
				t.Errorf("depth changed despite validation failure: %v", depth.Values)
			}
		})
	}
}

func TestModifyMissingLayout(t *testing.T) {
	p := loadProfile(t)
	res, err := New(nil, Options{}).Modify(p)
	if !errors.Is(err, ErrMissingAttribute) {
		t.Errorf("Expected ErrMissingAttribute, got %v", err)
	}
	if res.Stage != StageParsed {
		t.Errorf("Expected stage %s, got %s", StageParsed, res.Stage)
	}
}

func TestDensitySelection(t *testing.T) {
	tests := []struct {
		name      string
		primary   bool
		secondary bool
		want      int
	}{
		{"primary active", true, true, 2},
		{"secondary only", false, true, 3},
		{"none active", false, false, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := loadProfile(t)
			layout := fixtureLayout()
			e := layout.Entries[2]
			e.Active = tt.primary
			layout.Entries[2] = e
			e = layout.Entries[3]
			e.Active = tt.secondary
			layout.Entries[3] = e

			m := New(layout, Options{Now: fixedNow})
			require.NoError(t, m.Validate(p))
			m.applyLayout(p)

			got := m.densityValues(p)
			if tt.want < 0 {
				for i, v := range got {
					if !parser.IsMissing(v) {
						t.Errorf("row %d: expected missing density, got %v", i, v)
					}
				}
				return
			}
			col, _ := p.Column(tt.want)
			if diff := cmp.Diff(col.Values, got); diff != "" {
				t.Errorf("density mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestModifyNoActiveDensity(t *testing.T) {
	p := loadProfile(t)
	layout := fixtureLayout()
	for _, i := range []int{2, 3} {
		e := layout.Entries[i]
		e.Active = false
		layout.Entries[i] = e
	}

	_, err := New(layout, Options{Now: fixedNow}).Modify(p)
	require.NoError(t, err)

	for _, line := range p.DataLines() {
		if !strings.Contains(line, " -9.990e-29") {
			t.Errorf("Expected missing depth in %q", line)
		}
	}
	if got := p.Header.Line(p.Header.FindIndex("# span 7 =")); got != "# span 7 = -9.990e-29, -9.990e-29" {
		t.Errorf("Unexpected span line %q", got)
	}
}

func TestBlankInactiveSpans(t *testing.T) {
	p := loadProfile(t)
	layout := fixtureLayout()
	e := layout.Entries[3]
	e.Active = false
	layout.Entries[3] = e

	res, err := New(layout, Options{Now: fixedNow, BlankInactiveSpans: true}).Modify(p)
	require.NoError(t, err)
	if res.Applied[len(res.Applied)-1] != StageFinalized {
		t.Errorf("Expected span blanking to be applied, got %v", res.Applied)
	}
	if got := p.Header.Line(p.Header.FindIndex("# span 3 =")); got != missingSpanLine(3) {
		t.Errorf("Unexpected span line %q", got)
	}
	if got := p.Header.Line(p.Header.FindIndex("# span 2 =")); got != "# span 2 =      5.000,      5.000" {
		t.Errorf("Active span line changed: %q", got)
	}
}

func TestUseLayoutFormat(t *testing.T) {
	p := loadProfile(t)
	layout := fixtureLayout()
	e := layout.Entries[0]
	e.Format = "11.1f"
	layout.Entries[0] = e

	_, err := New(layout, Options{Now: fixedNow, UseLayoutFormat: true}).Modify(p)
	require.NoError(t, err)
	if got := p.DataLines()[0][:11]; got != "        1.0" {
		t.Errorf("Expected layout format, got %q", got)
	}

	p = loadProfile(t)
	_, err = New(layout, Options{Now: fixedNow}).Modify(p)
	require.NoError(t, err)
	if got := p.DataLines()[0][:11]; got != "      1.000" {
		t.Errorf("Expected inferred format, got %q", got)
	}
}

func TestRelabelSecondaryFluorometer(t *testing.T) {
	data := strings.Join([]string{
		"** Ship: Svea",
		"# name 0 = prDM: Pressure, Digiquartz [db]",
		"# name 1 = flECO-AFL1: Fluorescence, WET Labs ECO-AFL/FL, 2 [mg/m^3]",
		`# <Sensors count="1" >`,
		`#   <sensor Channel="1" >`,
		"#     <!-- A/D voltage 2, Fluorometer, WET Labs ECO-AFL/FL, 2 -->",
		`#     <FluoroWetlabECO_AFL_FL_Sensor SensorID="20" >`,
		"#       <SerialNumber>FLPCRTD-1234</SerialNumber>",
		"#     </FluoroWetlabECO_AFL_FL_Sensor>",
		"#   </sensor>",
		"# </Sensors>",
		"*END*",
		"      1.000     0.1000",
	}, "\n")
	p, err := parser.Parse(strings.NewReader(data))
	require.NoError(t, err)

	layout := &models.SensorLayout{Entries: map[int]models.LayoutEntry{
		0: {Index: 0, Name: "Pressure", Active: true},
	}}
	m := New(layout, Options{Now: fixedNow})
	for i := 0; i < 2; i++ {
		_, err := m.Modify(p)
		require.NoError(t, err)
	}

	col, _ := p.Column(1)
	if col.Name != "flECO-AFL1: Phycocyanin Fluorescence, WET Labs ECO-AFL/FL, 2 [mg/m^3]" {
		t.Errorf("Unexpected column name %q", col.Name)
	}
	if !p.Header.Contains("A/D voltage 2, Phycocyanin Fluorometer, WET Labs ECO-AFL/FL, 2 -->") {
		t.Error("Expected relabelled sensor line")
	}
	if p.Header.Contains("Chl-a") {
		t.Error("Primary rule must not match the secondary fluorometer")
	}
}

func TestModifyWithoutPressureWarns(t *testing.T) {
	data := strings.Join([]string{
		"** Ship: Svea",
		"# name 0 = depFM: Depth [fresh water, m], lat = 57.7",
		"*END*",
		"      0.995",
	}, "\n")
	p, err := parser.Parse(strings.NewReader(data))
	require.NoError(t, err)

	layout := &models.SensorLayout{Entries: map[int]models.LayoutEntry{
		0: {Index: 0, Name: "depFM: Depth", Active: true},
	}}
	res, err := New(layout, Options{Now: fixedNow}).Modify(p)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	if !errors.Is(res.Warnings[0], ErrMissingColumn) {
		t.Errorf("Expected ErrMissingColumn warning, got %v", res.Warnings[0])
	}
	if res.Stage != StageFinalized {
		t.Errorf("Expected stage %s, got %s", StageFinalized, res.Stage)
	}
}
