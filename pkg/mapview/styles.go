package mapview

import (
	"strings"

	"github.com/kass/go-store-map/pkg/models"
)

// Colors are hex colors, without the leading '#', for the styled map
// features. Empty fields are left to the map's default style.
type Colors struct {
	Landscape string `mapstructure:"landscape"`
	Road      string `mapstructure:"road"`
	Water     string `mapstructure:"water"`
	Text      string `mapstructure:"text"`
	POI       string `mapstructure:"poi"`
}

// DefaultColors is the palette used when none is configured
var DefaultColors = Colors{
	Landscape: "ffffff",
	Road:      "bbc0c4",
	Water:     "e9ebed",
	Text:      "666666",
	POI:       "f5f5f5",
}

// BuildStyles turns the palette into map style rules
func BuildStyles(c Colors) []models.StyleRule {
	var rules []models.StyleRule

	if hex := color(c.Landscape); hex != "" {
		rules = append(rules, models.StyleRule{
			FeatureType: "landscape",
			Stylers:     []map[string]any{{"color": hex}},
		})
	}
	if hex := color(c.Road); hex != "" {
		rules = append(rules, models.StyleRule{
			FeatureType: "road",
			Stylers:     []map[string]any{{"color": hex}},
		})
	}
	if hex := color(c.Water); hex != "" {
		rules = append(rules, models.StyleRule{
			FeatureType: "water",
			Stylers:     []map[string]any{{"color": hex}},
		})
	}
	if hex := color(c.Text); hex != "" {
		rules = append(rules, models.StyleRule{
			ElementType: "labels.text",
			Stylers: []map[string]any{
				{"saturation": 1},
				{"weight": 0.4},
				{"color": hex},
			},
		})
	}
	if hex := color(c.POI); hex != "" {
		rules = append(rules, models.StyleRule{
			FeatureType: "poi",
			ElementType: "geometry",
			Stylers:     []map[string]any{{"color": hex}},
		})
	}

	return rules
}

func color(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "#")
	if v == "" {
		return ""
	}
	return "#" + strings.ToLower(v)
}
