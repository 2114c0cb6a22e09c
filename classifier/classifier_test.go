package classifier

import (
	"testing"
	"time"

	"songbird/models"
)

func ptr(b bool) *bool { return &b }

func song() models.CatalogItem {
	return models.CatalogItem{
		ID:                   "id",
		Title:                "The Weeknd - Blinding Lights (Official Audio)",
		Description:          "Official audio for Blinding Lights.",
		Duration:             "PT4M20S",
		PrivacyStatus:        "public",
		UploadStatus:         "processed",
		LiveBroadcastContent: "none",
		Embeddable:           ptr(true),
	}
}

func TestIsPlayableTrackRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.CatalogItem)
		want   string
	}{
		{"accepted", func(*models.CatalogItem) {}, ReasonNone},
		{"unknown embeddability accepted", func(i *models.CatalogItem) { i.Embeddable = nil }, ReasonNone},
		{"unlisted", func(i *models.CatalogItem) { i.PrivacyStatus = "unlisted" }, ReasonNotPublic},
		{"private", func(i *models.CatalogItem) { i.PrivacyStatus = "private" }, ReasonNotPublic},
		{"privacy not reported", func(i *models.CatalogItem) { i.PrivacyStatus = "" }, ReasonNotPublic},
		{"age restricted", func(i *models.CatalogItem) { i.AgeRestricted = true }, ReasonAgeRestricted},
		{"still processing", func(i *models.CatalogItem) { i.UploadStatus = "uploaded" }, ReasonNotProcessed},
		{"live", func(i *models.CatalogItem) { i.LiveBroadcastContent = "live" }, ReasonLive},
		{"upcoming", func(i *models.CatalogItem) { i.LiveBroadcastContent = "upcoming" }, ReasonLive},
		{"not embeddable", func(i *models.CatalogItem) { i.Embeddable = ptr(false) }, ReasonNotEmbeddable},
		{"region blocked", func(i *models.CatalogItem) { i.RegionBlocked = []string{"US"} }, ReasonRegionBlocked},
		{"missing duration", func(i *models.CatalogItem) { i.Duration = "" }, ReasonTooShort},
		{"title nonstop", func(i *models.CatalogItem) { i.Title = "2 Hour NONSTOP Pop" }, "denylist:nonstop"},
		{"title full album", func(i *models.CatalogItem) { i.Title = "Artist - Full Album" }, "denylist:full album"},
		{"title top 50", func(i *models.CatalogItem) { i.Title = "Top 50 Songs 2024" }, "denylist:top 50"},
		{"title dj set", func(i *models.CatalogItem) { i.Title = "Boiler Room DJ Set" }, "denylist:dj set"},
		{"title megamix", func(i *models.CatalogItem) { i.Title = "Summer Megamix" }, "denylist:megamix"},
		{"title b2b", func(i *models.CatalogItem) { i.Title = "A b2b B" }, "denylist:b2b"},
		{"title playlist", func(i *models.CatalogItem) { i.Title = "Chill Vibes Playlist 2024" }, "denylist:playlist"},
		{"description medley", func(i *models.CatalogItem) { i.Description = "A medley of hits" }, "denylist:medley"},
	}
	c := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := song()
			tt.mutate(&item)
			if got := c.Reason(item); got != tt.want {
				t.Errorf("Reason() = %q, want %q", got, tt.want)
			}
			if got := c.IsPlayableTrack(item); got != (tt.want == ReasonNone) {
				t.Errorf("IsPlayableTrack() = %v", got)
			}
		})
	}
}

// Both bounds are exclusive: 90s and 480s are rejected.
func TestRuntimeBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		duration string
		want     string
	}{
		{"min - 1s", "PT1M29S", ReasonTooShort},
		{"min", "PT1M30S", ReasonTooShort},
		{"min + 1s", "PT1M31S", ReasonNone},
		{"max - 1s", "PT7M59S", ReasonNone},
		{"max", "PT8M", ReasonTooLong},
		{"max + 1s", "PT8M1S", ReasonTooLong},
		{"two hours", "PT2H0M0S", ReasonTooLong},
	}
	c := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := song()
			item.Duration = tt.duration
			if got := c.Reason(item); got != tt.want {
				t.Errorf("Reason(%s) = %q, want %q", tt.duration, got, tt.want)
			}
		})
	}
}

func TestDenylistOnlyChecksDescriptionPrefix(t *testing.T) {
	c := Default()
	item := song()
	pad := make([]rune, DefaultDescriptionPrefix)
	for i := range pad {
		pad[i] = 'é'
	}
	item.Description = string(pad) + " full album"
	if !c.IsPlayableTrack(item) {
		t.Error("denylist term past the description prefix should be ignored")
	}

	item.Description = string(pad[:DefaultDescriptionPrefix-12]) + " full album"
	if c.IsPlayableTrack(item) {
		t.Error("denylist term inside the description prefix should reject")
	}
}

func TestCustomDenylistAndBounds(t *testing.T) {
	c := Classifier{
		Denylist:          []string{"Remix"},
		MinRuntime:        time.Minute,
		MaxRuntime:        2 * time.Minute,
		DescriptionPrefix: 10,
	}
	item := song()
	item.Duration = "PT1M30S"
	if !c.IsPlayableTrack(item) {
		t.Errorf("expected accept, got %q", c.Reason(item))
	}
	item.Title = "Song (REMIX)"
	if got := c.Reason(item); got != "denylist:remix" {
		t.Errorf("Reason() = %q, want denylist:remix", got)
	}
}

func TestRejectsKeywordAndDuration(t *testing.T) {
	item := song()
	item.Title = "2 Hour Nonstop Pop Mix"
	item.Duration = "PT2H0M0S"
	c := Default()
	if c.IsPlayableTrack(item) {
		t.Fatal("compilation should be rejected")
	}
	c.Denylist = nil
	if got := c.Reason(item); got != ReasonTooLong {
		t.Errorf("without denylist Reason() = %q, want too_long", got)
	}
}

func TestFilterKeepsOrder(t *testing.T) {
	a, b, bad := song(), song(), song()
	a.ID, b.ID, bad.ID = "a", "b", "bad"
	bad.Duration = "PT30S"

	got := Default().Filter([]models.CatalogItem{b, bad, a})
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("Filter() = %+v", got)
	}
}
