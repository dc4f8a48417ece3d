package seed

import (
	"encoding/json"
	"math"
)

const earthRadiusKm = 6371.0

// FilterRadius keeps records whose lat/lng fields fall within radiusKm of
// the given point. Records without usable coordinates are dropped: the
// caller asked for a geo-filtered list, and the server-side equivalent of
// this query would not return them either.
func FilterRadius(recs []Record, lat, lng, radiusKm float64) []Record {
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		recLat, okLat := toFloat(rec["lat"])
		recLng, okLng := toFloat(rec["lng"])
		if !okLat || !okLng {
			continue
		}
		if haversineKm(lat, lng, recLat, recLng) <= radiusKm {
			out = append(out, rec)
		}
	}
	return out
}

// FilterCategories keeps records whose category field matches one of the
// given categories. An empty filter keeps everything.
func FilterCategories(recs []Record, categories []string) []Record {
	if len(categories) == 0 {
		return recs
	}
	allowed := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		allowed[c] = struct{}{}
	}
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		cat, _ := rec["category"].(string)
		if _, ok := allowed[cat]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// Limit truncates the list to at most n records. n <= 0 means no limit.
func Limit(recs []Record, n int) []Record {
	if n <= 0 || len(recs) <= n {
		return recs
	}
	return recs[:n]
}

// haversineKm computes the great-circle distance between two points.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
