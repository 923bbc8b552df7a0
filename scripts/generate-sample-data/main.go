// Generates a synthetic survey CSV for local pipeline runs when the
// real dataset is not available. Responses are drawn from the same
// answer vocabularies the cleaner expects, with a seeded generator so
// repeated runs produce the same file.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"time"

	"mindrisk/internal/survey"
)

var answerSets = map[string][]string{
	"Gender":                    {"Male", "M", "male", "Female", "F", "female", "Trans-female", "Non-binary"},
	"Country":                   {"United States", "United Kingdom", "Canada", "Germany", "Netherlands"},
	"self_employed":             {"Yes", "No", ""},
	"family_history":            {"Yes", "No"},
	"treatment":                 {"Yes", "No"},
	"work_interfere":            {"Never", "Rarely", "Sometimes", "Often", ""},
	"no_employees":              {"1-5", "6-25", "26-100", "100-500", "500-1000", "More than 1000"},
	"remote_work":               {"Yes", "No"},
	"tech_company":              {"Yes", "No"},
	"benefits":                  {"Yes", "No", "Don't know"},
	"care_options":              {"Yes", "No", "Not sure"},
	"wellness_program":          {"Yes", "No", "Don't know"},
	"seek_help":                 {"Yes", "No", "Don't know"},
	"anonymity":                 {"Yes", "No", "Don't know"},
	"leave":                     {"Very easy", "Somewhat easy", "Somewhat difficult", "Very difficult", "Don't know"},
	"mental_health_consequence": {"Yes", "No", "Maybe"},
	"phys_health_consequence":   {"Yes", "No", "Maybe"},
	"coworkers":                 {"Yes", "No", "Some of them"},
	"supervisor":                {"Yes", "No", "Some of them"},
	"mental_health_interview":   {"Yes", "No", "Maybe"},
	"phys_health_interview":     {"Yes", "No", "Maybe"},
	"mental_vs_physical":        {"Yes", "No", "Don't know"},
	"obs_consequence":           {"Yes", "No"},
}

func main() {
	var (
		outPath = flag.String("out", "data/survey.csv", "Output CSV path")
		rows    = flag.Int("rows", 1200, "Number of responses to generate")
		seed    = flag.Int64("seed", 42, "Random seed")
	)
	flag.Parse()

	fmt.Printf("Generating %d synthetic survey responses...\n", *rows)

	rng := rand.New(rand.NewSource(*seed))
	columns := append([]string{"Timestamp"}, survey.RequiredColumns...)
	columns = append(columns, "Country", "self_employed")

	records := make([][]string, 0, *rows)
	base := time.Date(2014, 8, 27, 11, 0, 0, 0, time.UTC)
	for i := 0; i < *rows; i++ {
		rec := make([]string, 0, len(columns))
		for _, col := range columns {
			switch col {
			case "Timestamp":
				rec = append(rec, base.Add(time.Duration(i)*time.Minute).Format("2006-01-02 15:04:05"))
			case "Age":
				rec = append(rec, strconv.Itoa(sampleAge(rng)))
			default:
				choices := answerSets[col]
				rec = append(rec, choices[rng.Intn(len(choices))])
			}
		}
		records = append(records, rec)
	}

	if err := survey.WriteCSV(*outPath, columns, records); err != nil {
		log.Fatalf("Failed to write CSV: %v", err)
	}

	fmt.Printf("✓ Wrote %s\n", *outPath)
}

// sampleAge returns mostly plausible ages with a few outliers so the
// cleaning step has something to drop.
func sampleAge(rng *rand.Rand) int {
	r := rng.Float64()
	switch {
	case r < 0.02:
		return rng.Intn(10) // implausibly young
	case r < 0.04:
		return 80 + rng.Intn(200) // implausibly old
	default:
		return 18 + rng.Intn(45)
	}
}
