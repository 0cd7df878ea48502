// Package tips maps disease labels to actionable care advice.
package tips

import "strings"

var diseaseTips = map[string]string{
	"apple_scab":       "Remove infected leaves and apply fungicide. Ensure good air circulation and avoid overhead watering.",
	"apple_black_rot":  "Prune infected branches, remove mummified fruits, and apply fungicide during early spring.",
	"apple_cedar_rust": "Remove nearby cedar trees if possible. Apply fungicide preventively in spring.",
	"apple_healthy":    "Continue regular care: proper watering, pruning, and monitoring for early disease signs.",

	"corn_cercospora_leaf_spot": "Use resistant varieties, rotate crops, and apply fungicide if severe.",
	"corn_common_rust":          "Plant resistant hybrids, ensure proper spacing for air flow, and monitor regularly.",
	"corn_northern_leaf_blight": "Rotate crops, remove crop debris, and use resistant varieties.",
	"corn_healthy":              "Maintain proper nutrition, adequate spacing, and regular monitoring.",

	"grape_black_rot":   "Remove infected fruit and leaves. Apply fungicide starting at bloom.",
	"grape_esca":        "Prune infected wood, avoid stress, and improve soil drainage.",
	"grape_leaf_blight": "Remove infected leaves, improve air circulation, and apply copper fungicide.",
	"grape_healthy":     "Proper pruning, good air circulation, and balanced nutrition are key.",

	"potato_early_blight": "Use certified disease-free seed, rotate crops, and apply fungicide.",
	"potato_late_blight":  "Remove infected plants immediately. Use resistant varieties and fungicide.",
	"potato_healthy":      "Maintain good drainage, proper spacing, and monitor for disease signs.",

	"tomato_bacterial_spot":     "Use disease-free seeds, avoid overhead watering, and apply copper spray.",
	"tomato_early_blight":       "Mulch plants, stake for air flow, and remove lower infected leaves.",
	"tomato_late_blight":        "Remove infected plants, improve air circulation, and use fungicide.",
	"tomato_leaf_mold":          "Reduce humidity, improve ventilation, and remove infected leaves.",
	"tomato_septoria_leaf_spot": "Mulch soil, avoid wetting foliage, and remove infected leaves.",
	"tomato_spider_mites":       "Spray with water, use insecticidal soap, and introduce predatory mites.",
	"tomato_target_spot":        "Remove infected leaves, improve air flow, and apply fungicide.",
	"tomato_mosaic_virus":       "Remove infected plants immediately. Disinfect tools and wash hands.",
	"tomato_yellow_leaf_curl":   "Control whiteflies, remove infected plants, and use resistant varieties.",
	"tomato_healthy":            "Regular watering, proper spacing, mulching, and consistent monitoring.",

	"healthy":  "Your plant looks healthy! Continue with regular care and monitoring.",
	"diseased": "Disease detected. Remove affected parts, improve conditions, and consider treatment.",
	"unknown":  "Unable to identify specific condition. Consult a plant disease expert for advice.",
}

// Get returns care advice for a label. Lookup order: exact match on the
// normalized label, a "healthy" containment check, substring match in
// either direction, then the generic unknown entry. Never returns an empty
// string.
func Get(label string) string {
	normalized := normalize(label)
	if normalized == "" {
		return diseaseTips["unknown"]
	}

	if tip, ok := diseaseTips[normalized]; ok {
		return tip
	}

	if strings.Contains(normalized, "healthy") {
		return diseaseTips["healthy"]
	}

	for key, tip := range diseaseTips {
		if strings.Contains(normalized, key) || strings.Contains(key, normalized) {
			return tip
		}
	}

	return diseaseTips["unknown"]
}

func normalize(label string) string {
	normalized := strings.ToLower(label)
	normalized = strings.ReplaceAll(normalized, " ", "_")
	return strings.ReplaceAll(normalized, "-", "_")
}
