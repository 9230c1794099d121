package fusion

import (
	"math"
	"strconv"
	"strings"

	"github.com/aldric144/rtcc-platform/pkg/geo"
)

// weighted accumulates a weighted-average similarity score, dividing by
// the sum of active weights as the specification requires (weights are
// conditional on both values being present).
type weighted struct {
	sum     float64
	weights float64
}

func (w *weighted) add(weight, score float64) {
	w.sum += weight * score
	w.weights += weight
}

func (w *weighted) addIfPresent(a, b string, weight float64, score func(a, b string) float64) {
	if a == "" || b == "" {
		return
	}
	w.add(weight, score(a, b))
}

func (w *weighted) result() float64 {
	if w.weights == 0 {
		return 0
	}
	return geo.Clamp(w.sum/w.weights, 0, 1)
}

func exactMatch(a, b string) float64 {
	if strings.EqualFold(a, b) {
		return 1.0
	}
	return 0.0
}

func normalizedPhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizedAlnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}

// Similarity computes the weighted pairwise similarity of two same-type
// records per the specification's per-type weighting tables.
func Similarity(a, b Record) float64 {
	if a.Type != b.Type {
		return 0
	}
	switch a.Type {
	case EntityPerson:
		return personSimilarity(a, b)
	case EntityVehicle:
		return vehicleSimilarity(a, b)
	case EntityIncident:
		return incidentSimilarity(a, b)
	case EntityAddress:
		return addressSimilarity(a, b)
	default:
		return genericSimilarity(a, b)
	}
}

func personSimilarity(a, b Record) float64 {
	var w weighted

	nameA, nameB := a.Attributes["name"], b.Attributes["name"]
	if nameA != "" && nameB != "" {
		editSim := geo.LevenshteinSimilarity(strings.ToLower(nameA), strings.ToLower(nameB))
		soundexSim := 0.0
		if geo.Soundex(nameA) == geo.Soundex(nameB) {
			soundexSim = 1.0
		}
		jaccardSim := geo.TokenJaccard(strings.Fields(strings.ToLower(nameA)), strings.Fields(strings.ToLower(nameB)))
		nameScore := 0.4*editSim + 0.3*soundexSim + 0.3*jaccardSim
		w.add(0.4, nameScore)
	}

	w.addIfPresent(a.Attributes["dob"], b.Attributes["dob"], 0.3, exactMatch)
	w.addIfPresent(a.Attributes["ssn"], b.Attributes["ssn"], 0.5, exactMatch)
	w.addIfPresent(a.Attributes["dl"], b.Attributes["dl"], 0.4, exactMatch)
	w.addIfPresent(a.Attributes["address"], b.Attributes["address"], 0.2, geo.LevenshteinSimilarity)
	w.addIfPresent(normalizedPhone(a.Attributes["phone"]), normalizedPhone(b.Attributes["phone"]), 0.3, exactMatch)

	return w.result()
}

func vehicleSimilarity(a, b Record) float64 {
	var w weighted

	w.addIfPresent(normalizedAlnum(a.Attributes["plate"]), normalizedAlnum(b.Attributes["plate"]), 0.5, exactMatch)
	w.addIfPresent(a.Attributes["vin"], b.Attributes["vin"], 0.6, exactMatch)
	w.addIfPresent(a.Attributes["make"], b.Attributes["make"], 0.2, geo.LevenshteinSimilarity)
	w.addIfPresent(a.Attributes["model"], b.Attributes["model"], 0.2, geo.LevenshteinSimilarity)

	if ya, errA := strconv.Atoi(a.Attributes["year"]); errA == nil {
		if yb, errB := strconv.Atoi(b.Attributes["year"]); errB == nil {
			diff := math.Abs(float64(ya - yb))
			score := geo.Clamp(1.0-diff*0.2, 0, 1)
			w.add(0.15, score)
		}
	}

	w.addIfPresent(a.Attributes["color"], b.Attributes["color"], 0.1, exactMatch)

	return w.result()
}

func incidentSimilarity(a, b Record) float64 {
	var w weighted

	w.addIfPresent(a.Attributes["case_number"], b.Attributes["case_number"], 0.6, exactMatch)
	w.addIfPresent(a.Attributes["type"], b.Attributes["type"], 0.2, exactMatch)
	w.addIfPresent(a.Attributes["location"], b.Attributes["location"], 0.3, geo.LevenshteinSimilarity)

	if ta, errA := strconv.ParseFloat(a.Attributes["timestamp_unix"], 64); errA == nil {
		if tb, errB := strconv.ParseFloat(b.Attributes["timestamp_unix"], 64); errB == nil {
			hours := math.Abs(ta-tb) / 3600.0
			score := geo.Clamp(1.0-hours*0.1, 0, 1)
			w.add(0.25, score)
		}
	}

	return w.result()
}

func addressSimilarity(a, b Record) float64 {
	var w weighted

	w.addIfPresent(a.Attributes["street"], b.Attributes["street"], 0.4, geo.LevenshteinSimilarity)
	w.addIfPresent(a.Attributes["city"], b.Attributes["city"], 0.2, exactMatch)
	w.addIfPresent(a.Attributes["zip5"], b.Attributes["zip5"], 0.3, exactMatch)

	if a.Location != nil && b.Location != nil {
		dist := geo.HaversineMeters(geo.Point{Lat: a.Location.Lat, Lon: a.Location.Lon}, geo.Point{Lat: b.Location.Lat, Lon: b.Location.Lon})
		score := geo.Clamp(1.0-dist/1000.0, 0, 1)
		w.add(0.4, score)
	}

	return w.result()
}

func genericSimilarity(a, b Record) float64 {
	var total float64
	var count int
	for k, va := range a.Attributes {
		vb, ok := b.Attributes[k]
		if !ok || va == "" || vb == "" {
			continue
		}
		total += geo.LevenshteinSimilarity(strings.ToLower(va), strings.ToLower(vb))
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}
