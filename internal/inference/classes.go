package inference

// Classes is the fixed, ordered catalog of plant disease labels the model
// was trained on. The index-to-label mapping is stable and the stub
// prediction path depends on the catalog order.
var Classes = []string{
	"apple_scab",
	"apple_black_rot",
	"apple_cedar_rust",
	"apple_healthy",
	"corn_cercospora_leaf_spot",
	"corn_common_rust",
	"corn_northern_leaf_blight",
	"corn_healthy",
	"grape_black_rot",
	"grape_esca",
	"grape_leaf_blight",
	"grape_healthy",
	"potato_early_blight",
	"potato_late_blight",
	"potato_healthy",
	"tomato_bacterial_spot",
	"tomato_early_blight",
	"tomato_late_blight",
	"tomato_leaf_mold",
	"tomato_septoria_leaf_spot",
	"tomato_spider_mites",
	"tomato_target_spot",
	"tomato_mosaic_virus",
	"tomato_yellow_leaf_curl",
	"tomato_healthy",
}

// ClassIndex returns the catalog index for a label, or 0 when the label is
// unknown.
func ClassIndex(label string) int {
	for i, class := range Classes {
		if class == label {
			return i
		}
	}
	return 0
}
