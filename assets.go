package lorebase

import (
	"context"
	"fmt"

	domasset "github.com/greyhollow/lorebase/internal/domain/asset"
)

// Asset is one campaign knowledge item.
type Asset struct {
	ID         string
	CampaignID string
	// Kind is one of: character, location, item, faction, quest, note.
	Kind   string
	Title  string
	Detail string
	Tags   []string
}

// UpsertAsset embeds and stores one asset, replacing any existing version.
func (c *Client) UpsertAsset(ctx context.Context, a Asset) error {
	da, err := domasset.New(a.ID, a.CampaignID, domasset.Kind(a.Kind), a.Title, a.Detail, a.Tags)
	if err != nil {
		return fmt.Errorf("upsert asset: %w", err)
	}
	if err := c.assetSvc.Upsert(ctx, &da); err != nil {
		return fmt.Errorf("upsert asset: %w", err)
	}
	return nil
}

// ImportAssets embeds and stores a batch of assets for one campaign.
// Returns how many were imported before the first failure.
func (c *Client) ImportAssets(ctx context.Context, assets []Asset) (int, error) {
	das := make([]domasset.Asset, len(assets))
	for i, a := range assets {
		da, err := domasset.New(a.ID, a.CampaignID, domasset.Kind(a.Kind), a.Title, a.Detail, a.Tags)
		if err != nil {
			return 0, fmt.Errorf("import asset %q: %w", a.ID, err)
		}
		das[i] = da
	}

	n, err := c.assetSvc.BulkImport(ctx, das)
	if err != nil {
		return n, fmt.Errorf("import assets: %w", err)
	}
	return n, nil
}

// GetAsset loads one asset by campaign and id.
func (c *Client) GetAsset(ctx context.Context, campaignID, assetID string) (Asset, error) {
	da, err := c.assetSvc.Get(ctx, campaignID, assetID)
	if err != nil {
		return Asset{}, fmt.Errorf("get asset: %w", err)
	}
	return Asset{
		ID:         da.ID(),
		CampaignID: da.CampaignID(),
		Kind:       string(da.Kind()),
		Title:      da.Title(),
		Detail:     da.Detail(),
		Tags:       da.Tags(),
	}, nil
}

// DeleteAsset removes one asset.
func (c *Client) DeleteAsset(ctx context.Context, campaignID, assetID string) error {
	if err := c.assetSvc.Delete(ctx, campaignID, assetID); err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	return nil
}
