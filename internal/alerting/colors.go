package alerting

import (
	"hash/fnv"

	"github.com/farm-platform/farm-dashboard/internal/domain"
)

var categoryColors = map[domain.Category]string{
	domain.CategorySeeds:       "#4caf50",
	domain.CategoryFertilizers: "#8d6e63",
	domain.CategoryPesticides:  "#e53935",
	domain.CategoryEquipment:   "#1e88e5",
	domain.CategoryFeed:        "#fbc02d",
	domain.CategoryFuel:        "#6d4c41",
	domain.CategoryTools:       "#546e7a",
}

// fallbackPalette colours categories the dashboard has no fixed colour for
var fallbackPalette = []string{
	"#8e24aa",
	"#00897b",
	"#f4511e",
	"#3949ab",
	"#c0ca33",
	"#00acc1",
	"#d81b60",
	"#7cb342",
}

// ColorFor returns a stable display colour for a category
func ColorFor(c domain.Category) string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(c))
	return fallbackPalette[h.Sum32()%uint32(len(fallbackPalette))]
}
