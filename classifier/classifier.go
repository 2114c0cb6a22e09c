// Package classifier decides whether a catalog item looks like one playable
// song rather than a compilation, livestream or short clip.
package classifier

import (
	"strings"
	"time"

	"songbird/models"
)

// DefaultDenylist holds lowercase markers of compilations and long mixes.
var DefaultDenylist = []string{
	"non-stop", "nonstop", "non stop",
	"mega mix", "megamix", "mega-mix",
	"full album", "full concert", "live concert",
	"top 10", "top 20", "top 50", "top 100",
	"dj set", "greatest hits",
	"medley", "b2b", "mashup", "compilation",
	"1 hour", "2 hour", "hour loop", "hours of",
	"playlist", "live stream", "livestream",
}

const (
	DefaultMinRuntime        = 90 * time.Second
	DefaultMaxRuntime        = 8 * time.Minute
	DefaultDescriptionPrefix = 200
)

// Rejection reasons returned by Reason.
const (
	ReasonNone          = ""
	ReasonNotPublic     = "not_public"
	ReasonAgeRestricted = "age_restricted"
	ReasonNotProcessed  = "not_processed"
	ReasonLive          = "live"
	ReasonNotEmbeddable = "not_embeddable"
	ReasonRegionBlocked = "region_blocked"
	ReasonTooShort      = "too_short"
	ReasonTooLong       = "too_long"
	denylistPrefix      = "denylist:"
)

// Classifier is a pure filter. Runtimes strictly between MinRuntime and
// MaxRuntime pass; both bounds themselves are rejected.
type Classifier struct {
	Denylist          []string
	MinRuntime        time.Duration
	MaxRuntime        time.Duration
	DescriptionPrefix int
}

func Default() Classifier {
	return Classifier{
		Denylist:          DefaultDenylist,
		MinRuntime:        DefaultMinRuntime,
		MaxRuntime:        DefaultMaxRuntime,
		DescriptionPrefix: DefaultDescriptionPrefix,
	}
}

func (c Classifier) IsPlayableTrack(item models.CatalogItem) bool {
	return c.Reason(item) == ReasonNone
}

// Reason returns the first rule item fails, or ReasonNone.
func (c Classifier) Reason(item models.CatalogItem) string {
	switch {
	// an unreported privacy status is rejected too
	case item.PrivacyStatus != "public":
		return ReasonNotPublic
	case item.AgeRestricted:
		return ReasonAgeRestricted
	case item.UploadStatus != "processed":
		return ReasonNotProcessed
	case item.LiveBroadcastContent != "" && item.LiveBroadcastContent != "none":
		return ReasonLive
	case item.Embeddable != nil && !*item.Embeddable:
		return ReasonNotEmbeddable
	case len(item.RegionBlocked) > 0:
		return ReasonRegionBlocked
	}

	if term := c.denylistHit(item); term != "" {
		return denylistPrefix + term
	}

	runtime := item.Runtime()
	if runtime <= c.MinRuntime {
		return ReasonTooShort
	}
	if runtime >= c.MaxRuntime {
		return ReasonTooLong
	}
	return ReasonNone
}

func (c Classifier) denylistHit(item models.CatalogItem) string {
	title := strings.ToLower(item.Title)
	desc := []rune(item.Description)
	if len(desc) > c.DescriptionPrefix {
		desc = desc[:c.DescriptionPrefix]
	}
	description := strings.ToLower(string(desc))

	for _, term := range c.Denylist {
		term = strings.ToLower(term)
		if term == "" {
			continue
		}
		if strings.Contains(title, term) || strings.Contains(description, term) {
			return term
		}
	}
	return ""
}

// Filter keeps the items that pass, in order.
func (c Classifier) Filter(items []models.CatalogItem) []models.CatalogItem {
	out := make([]models.CatalogItem, 0, len(items))
	for _, item := range items {
		if c.IsPlayableTrack(item) {
			out = append(out, item)
		}
	}
	return out
}
