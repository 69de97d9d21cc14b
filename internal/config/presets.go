package config

// StylePreset pairs a display name with the prompt sent to the generation
// service.
type StylePreset struct {
	ID     string
	Name   string
	Prompt string
}

// stylePresets is the static catalog of collage styles. Order matters for
// the /styles listing.
var stylePresets = []StylePreset{
	{
		ID:     "fridge",
		Name:   "On the Fridge",
		Prompt: "Tightly clustered photos pinned with colorful fruit-shaped magnets on a teal refrigerator door, photos overlapping each other significantly, filling most of the frame with minimal background visible, cozy family photo collage",
	},
	{
		ID:     "scrapbook",
		Name:   "Old Scrapbook",
		Prompt: "Arrange these photos on a vintage scrapbook page with aged cream paper texture, simple washi tape to hold photos in place, minimal subtle decorations only, photos are the focus not the background, no flowers no stickers no nametags no keys, clean understated nostalgic feel",
	},
	{
		ID:     "clean",
		Name:   "Clean",
		Prompt: "Arrange these photos in a clean, modern gallery layout on a pure white background with subtle drop shadows, balanced spacing",
	},
}

// aspectRatios lists the supported output aspect ratios.
var aspectRatios = []string{"16:9", "1:1", "9:16"}

// Preprocessing settings: longest edge and JPEG quality for inputs sent to
// the generation service.
const (
	OptimizeMaxSize = 768
	OptimizeQuality = 85
)

// Styles returns the style catalog.
func Styles() []StylePreset {
	out := make([]StylePreset, len(stylePresets))
	copy(out, stylePresets)
	return out
}

// StylePrompt looks up the prompt for a style id.
func StylePrompt(id string) (string, bool) {
	for _, p := range stylePresets {
		if p.ID == id {
			return p.Prompt, true
		}
	}
	return "", false
}

// AspectRatios returns the supported aspect ratio codes.
func AspectRatios() []string {
	out := make([]string, len(aspectRatios))
	copy(out, aspectRatios)
	return out
}

// ValidAspectRatio reports whether the given code is supported.
func ValidAspectRatio(ratio string) bool {
	for _, r := range aspectRatios {
		if r == ratio {
			return true
		}
	}
	return false
}
