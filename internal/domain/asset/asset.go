// Package asset holds the campaign knowledge item aggregate.
package asset

import "fmt"

// Field length limits enforced on write.
const (
	MaxTitleLength  = 512
	MaxDetailLength = 65536
)

// Kind classifies a campaign asset.
type Kind string

// Asset kinds.
const (
	KindCharacter Kind = "character"
	KindLocation  Kind = "location"
	KindItem      Kind = "item"
	KindFaction   Kind = "faction"
	KindQuest     Kind = "quest"
	KindNote      Kind = "note"
)

// IsValid checks if the kind is one of the supported values.
func (k Kind) IsValid() bool {
	switch k {
	case KindCharacter, KindLocation, KindItem, KindFaction, KindQuest, KindNote:
		return true
	}
	return false
}

// Asset is a single campaign knowledge item.
type Asset struct {
	id         string
	campaignID string
	kind       Kind
	title      string
	detail     string
	tags       []string
}

// New validates and creates an asset.
func New(id, campaignID string, kind Kind, title, detail string, tags []string) (Asset, error) {
	if id == "" {
		return Asset{}, fmt.Errorf("asset id is required")
	}
	if campaignID == "" {
		return Asset{}, fmt.Errorf("campaign id is required")
	}
	if !kind.IsValid() {
		return Asset{}, fmt.Errorf("invalid asset kind: %q", kind)
	}
	if title == "" {
		return Asset{}, fmt.Errorf("title is required")
	}
	if len(title) > MaxTitleLength {
		return Asset{}, fmt.Errorf("title too long (max %d chars)", MaxTitleLength)
	}
	if len(detail) > MaxDetailLength {
		return Asset{}, fmt.Errorf("detail too long (max %d chars)", MaxDetailLength)
	}
	return Asset{
		id:         id,
		campaignID: campaignID,
		kind:       kind,
		title:      title,
		detail:     detail,
		tags:       tags,
	}, nil
}

// Reconstruct rebuilds an asset from storage without validation.
func Reconstruct(id, campaignID string, kind Kind, title, detail string, tags []string) Asset {
	return Asset{
		id:         id,
		campaignID: campaignID,
		kind:       kind,
		title:      title,
		detail:     detail,
		tags:       tags,
	}
}

// ID returns the asset identifier.
func (a *Asset) ID() string { return a.id }

// CampaignID returns the owning campaign.
func (a *Asset) CampaignID() string { return a.campaignID }

// Kind returns the asset classification.
func (a *Asset) Kind() Kind { return a.kind }

// Title returns the asset title.
func (a *Asset) Title() string { return a.title }

// Detail returns the asset body text.
func (a *Asset) Detail() string { return a.detail }

// Tags returns the free-form labels.
func (a *Asset) Tags() []string { return a.tags }

// EmbeddingText returns the text that is vectorized for semantic search.
// Title leads so that short queries land near well-named assets.
func (a *Asset) EmbeddingText() string {
	if a.detail == "" {
		return a.title
	}
	return a.title + "\n" + a.detail
}
