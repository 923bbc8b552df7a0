// Package clean turns raw survey rows into the numeric feature matrix
// the classifiers consume. A Cleaner is fitted once on the training
// table; the fitted state (encoding tables, imputation defaults) is
// persisted with the model artifact so the inference path applies the
// exact same transform.
package clean

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"mindrisk/internal/survey"

	"github.com/rs/zerolog/log"
)

const (
	// TargetColumn is the derived binary label column name.
	TargetColumn = "mental_health_risk"

	// Unknown is the fill value for missing categorical cells.
	Unknown = "Unknown"

	ageMin = 15
	ageMax = 80
)

// ErrAgeRange is returned when a record's age falls outside the range
// accepted at training time.
var ErrAgeRange = errors.New("age outside accepted range [15, 80]")

// CategoricalColumns are the raw survey columns that get label-encoded
// into model features, in feature order.
var CategoricalColumns = []string{
	"Gender",
	"family_history",
	"work_interfere",
	"no_employees",
	"remote_work",
	"tech_company",
	"benefits",
	"care_options",
	"wellness_program",
	"seek_help",
	"anonymity",
	"leave",
	"mental_health_consequence",
	"phys_health_consequence",
	"coworkers",
	"supervisor",
	"mental_health_interview",
	"phys_health_interview",
	"mental_vs_physical",
	"obs_consequence",
}

// EngineeredColumns are the derived numeric features, in feature order.
var EngineeredColumns = []string{
	"is_remote_worker",
	"work_stress_level",
	"company_size_category",
	"mental_health_support_score",
}

// genderGroups normalizes the free-text gender field into four buckets.
// Anything unmapped falls through to Other.
var genderGroups = map[string]string{
	"Male":         "Male",
	"M":            "Male",
	"male":         "Male",
	"m":            "Male",
	"maile":        "Male",
	"Cis Male":     "Male",
	"Female":       "Female",
	"F":            "Female",
	"female":       "Female",
	"f":            "Female",
	"Cis Female":   "Female",
	"Trans-female": "Transgender",
}

var workStressLevels = map[string]float64{
	"Never":     0,
	"Rarely":    1,
	"Sometimes": 2,
	"Often":     3,
}

var companySizeCategories = map[string]float64{
	"1-5":            1,
	"6-25":           2,
	"26-100":         3,
	"100-500":        4,
	"500-1000":       5,
	"More than 1000": 6,
}

// supportColumns feed the aggregate workplace-support score.
var supportColumns = []string{"benefits", "care_options", "wellness_program", "seek_help", "anonymity"}

var supportValues = map[string]float64{
	"Yes":        1,
	"No":         0,
	"Don't know": 0.5,
	"Not sure":   0.5,
}

// Encoder maps one categorical column's values to integer codes.
// Classes are sorted so the same training data always yields the same
// codes. Default is the code applied to values never seen in training.
type Encoder struct {
	Classes []string `json:"classes"`
	Default int      `json:"default"`
}

// Code returns the integer code for a value, falling back to the
// training-time default for unseen values.
func (e *Encoder) Code(value string) int {
	i := sort.SearchStrings(e.Classes, value)
	if i < len(e.Classes) && e.Classes[i] == value {
		return i
	}
	return e.Default
}

// Cleaner holds the fitted preprocessing state.
type Cleaner struct {
	Encoders  map[string]*Encoder `json:"encoders"`
	AgeMedian float64             `json:"age_median"`
	Fitted    bool                `json:"fitted"`
}

// Frame is the cleaned, encoded dataset ready for training.
type Frame struct {
	FeatureNames []string
	X            [][]float64
	Y            []int
}

// FeatureNames returns the model feature list in vector order. Order is
// significant: the persisted artifact records it and inference rebuilds
// vectors identically.
func FeatureNames() []string {
	names := make([]string, 0, 1+len(CategoricalColumns)+len(EngineeredColumns))
	names = append(names, "Age")
	names = append(names, CategoricalColumns...)
	names = append(names, EngineeredColumns...)
	return names
}

// New returns an unfitted cleaner.
func New() *Cleaner {
	return &Cleaner{Encoders: make(map[string]*Encoder)}
}

// Fit learns encoding tables and imputation defaults from the raw
// table, then transforms it into a Frame. Rows whose age is missing or
// outside [15, 80] are dropped, matching the training-time outlier
// policy.
func (c *Cleaner) Fit(t *survey.Table) (*Frame, error) {
	for _, col := range survey.RequiredColumns {
		if !t.HasColumn(col) {
			return nil, &survey.DataFormatError{Column: col, Reason: "is missing"}
		}
	}

	rows, ages := c.filterByAge(t.Rows)
	if len(rows) == 0 {
		return nil, &survey.DataFormatError{Reason: "no rows with a valid age"}
	}
	c.AgeMedian = median(ages)

	// Normalize in place before learning encodings so the encoder
	// classes reflect the cleaned values.
	for _, rec := range rows {
		normalizeRecord(rec)
	}

	for _, col := range CategoricalColumns {
		c.Encoders[col] = fitEncoder(rows, col)
	}
	c.Fitted = true

	frame := &Frame{FeatureNames: FeatureNames()}
	for _, rec := range rows {
		vec, err := c.encode(rec)
		if err != nil {
			return nil, err
		}
		frame.X = append(frame.X, vec)
		frame.Y = append(frame.Y, deriveTarget(rec))
	}

	pos := 0
	for _, y := range frame.Y {
		pos += y
	}
	log.Info().
		Int("rows", len(frame.X)).
		Int("features", len(frame.FeatureNames)).
		Int("positive", pos).
		Int("negative", len(frame.Y)-pos).
		Msg("dataset cleaned")

	return frame, nil
}

// Transform encodes a single record with the fitted state. Missing
// categorical values are imputed as Unknown and a missing age takes the
// training median; an out-of-range age is rejected with ErrAgeRange.
// The transform is deterministic: the same record always yields the
// same vector.
func (c *Cleaner) Transform(rec survey.Record) ([]float64, error) {
	if !c.Fitted {
		return nil, errors.New("cleaner is not fitted")
	}

	copied := make(survey.Record, len(rec))
	for k, v := range rec {
		copied[k] = v
	}
	normalizeRecord(copied)

	if raw, ok := nonEmpty(copied["Age"]); ok {
		age, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("age %q is not numeric", raw)
		}
		if age < ageMin || age > ageMax {
			return nil, ErrAgeRange
		}
	}

	return c.encode(copied)
}

// encode builds the feature vector for one normalized record.
func (c *Cleaner) encode(rec survey.Record) ([]float64, error) {
	vec := make([]float64, 0, 1+len(CategoricalColumns)+len(EngineeredColumns))

	age := c.AgeMedian
	if raw, ok := nonEmpty(rec["Age"]); ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			age = v
		}
	}
	vec = append(vec, age)

	for _, col := range CategoricalColumns {
		enc, ok := c.Encoders[col]
		if !ok {
			return nil, fmt.Errorf("no encoder for column %q", col)
		}
		vec = append(vec, float64(enc.Code(categorical(rec[col]))))
	}

	vec = append(vec, engineeredFeatures(rec)...)
	return vec, nil
}

// engineeredFeatures derives the numeric flags and scores from the raw
// answers, in EngineeredColumns order.
func engineeredFeatures(rec survey.Record) []float64 {
	remote := 0.0
	if rec["remote_work"] == "Yes" {
		remote = 1
	}

	stress := 1.0 // default when work_interfere is unknown
	if v, ok := workStressLevels[rec["work_interfere"]]; ok {
		stress = v
	}

	size := 3.0
	if v, ok := companySizeCategories[rec["no_employees"]]; ok {
		size = v
	}

	support := 0.0
	for _, col := range supportColumns {
		support += supportValues[rec[col]]
	}
	support /= float64(len(supportColumns))

	return []float64{remote, stress, size, support}
}

// deriveTarget computes the binary risk label from the raw answers.
func deriveTarget(rec survey.Record) int {
	interfere := rec["work_interfere"]
	atRisk := rec["treatment"] == "Yes" ||
		interfere == "Often" ||
		rec["mental_health_consequence"] == "Yes" ||
		(rec["family_history"] == "Yes" && (interfere == "Sometimes" || interfere == "Often"))
	if atRisk {
		return 1
	}
	return 0
}

// normalizeRecord applies the gender bucketing and Unknown fill that
// precede encoding.
func normalizeRecord(rec survey.Record) {
	if g, ok := nonEmpty(rec["Gender"]); ok {
		if mapped, ok := genderGroups[g]; ok {
			rec["Gender"] = mapped
		} else {
			rec["Gender"] = "Other"
		}
	} else {
		rec["Gender"] = "Other"
	}

	for _, col := range CategoricalColumns {
		rec[col] = categorical(rec[col])
	}
}

// filterByAge keeps rows whose age parses and lies inside the accepted
// range, returning the kept rows and their ages.
func (c *Cleaner) filterByAge(rows []survey.Record) ([]survey.Record, []float64) {
	kept := make([]survey.Record, 0, len(rows))
	ages := make([]float64, 0, len(rows))
	dropped := 0

	for _, rec := range rows {
		raw, ok := nonEmpty(rec["Age"])
		if !ok {
			dropped++
			continue
		}
		age, err := strconv.ParseFloat(raw, 64)
		if err != nil || age < ageMin || age > ageMax {
			dropped++
			continue
		}
		kept = append(kept, rec)
		ages = append(ages, age)
	}

	if dropped > 0 {
		log.Info().Int("dropped", dropped).Msg("rows removed by age filter")
	}
	return kept, ages
}

func fitEncoder(rows []survey.Record, col string) *Encoder {
	counts := make(map[string]int)
	for _, rec := range rows {
		counts[categorical(rec[col])]++
	}

	classes := make([]string, 0, len(counts))
	for v := range counts {
		classes = append(classes, v)
	}
	sort.Strings(classes)

	// Default code for unseen inference values: the training mode,
	// ties broken by class order.
	def, best := 0, -1
	for i, class := range classes {
		if counts[class] > best {
			best = counts[class]
			def = i
		}
	}

	return &Encoder{Classes: classes, Default: def}
}

// categorical normalizes a raw cell: empty and NA markers become the
// Unknown fill value.
func categorical(v string) string {
	if s, ok := nonEmpty(v); ok {
		return s
	}
	return Unknown
}

func nonEmpty(v string) (string, bool) {
	s := strings.TrimSpace(v)
	if s == "" || s == "NA" || s == "N/A" || s == "nan" {
		return "", false
	}
	return s, true
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
