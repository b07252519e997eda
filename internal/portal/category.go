package portal

import "strings"

// Category labels used as playlist groups.
const (
	CategoryUHD      = "超清频道"
	CategoryHD       = "高清频道"
	CategoryStandard = "普通频道"
)

var (
	uhdMarkers = []string{"超高清", "4K", "UHD"}
	hdMarkers  = []string{"高清", "超清", "卫视", "HD"}
)

// Categorize assigns a display tier from the channel name. The ultra-HD
// markers are checked first so "4K超清" lands in the top tier.
func Categorize(name string) string {
	switch {
	case containsAny(name, uhdMarkers):
		return CategoryUHD
	case containsAny(name, hdMarkers):
		return CategoryHD
	default:
		return CategoryStandard
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
