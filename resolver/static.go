package resolver

import "songbird/models"

// ArtistHit is one curated (artist, known hit) pair.
type ArtistHit struct {
	Artist string
	Title  string
}

func (h ArtistHit) Query() string {
	return h.Artist + " " + h.Title + " official audio"
}

var DefaultArtistHits = []ArtistHit{
	{"The Weeknd", "Blinding Lights"},
	{"Ed Sheeran", "Shape of You"},
	{"Dua Lipa", "Levitating"},
	{"Harry Styles", "As It Was"},
	{"Mark Ronson", "Uptown Funk"},
	{"Billie Eilish", "Birds of a Feather"},
	{"Taylor Swift", "Anti-Hero"},
	{"Olivia Rodrigo", "drivers license"},
	{"Sabrina Carpenter", "Espresso"},
	{"Kendrick Lamar", "Not Like Us"},
	{"SZA", "Kill Bill"},
	{"Miley Cyrus", "Flowers"},
}

const CuratedLabel = "Curated Hits"

func thumbnail(id string) string {
	return "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg"
}

func staticTrack(id, title, artist, duration string) models.Track {
	return models.Track{
		ID:                 id,
		ExternalMediaID:    id,
		Title:              title,
		ArtistName:         artist,
		AlbumOrSourceLabel: CuratedLabel,
		CoverImageURL:      thumbnail(id),
		DisplayDuration:    duration,
	}
}

// StaticFallbackTracks is served when the catalog cannot produce curated or
// playlist results. It returns a fresh slice on every call.
func StaticFallbackTracks() []models.Track {
	return []models.Track{
		staticTrack("4NRXx6U8ABQ", "Blinding Lights", "The Weeknd", "3:22"),
		staticTrack("JGwWNGJdvx8", "Shape of You", "Ed Sheeran", "4:23"),
		staticTrack("TUVcZfQe-Kw", "Levitating", "Dua Lipa", "3:23"),
		staticTrack("H5v3kku4y6Q", "As It Was", "Harry Styles", "2:47"),
		staticTrack("OPf0YbXqDm0", "Uptown Funk", "Mark Ronson ft. Bruno Mars", "4:31"),
	}
}
