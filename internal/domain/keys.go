package domain

// Storage key layout. Assets live as hashes under one shared FT index,
// scoped at query time by campaign and kind tags.
const (
	KeyPrefix      = "lorebase:"
	AssetKeyPrefix = KeyPrefix + "asset:"
	AssetIndexName = KeyPrefix + "asset-idx"
)

// AssetKey builds the storage key for a campaign asset.
func AssetKey(campaignID, assetID string) string {
	return AssetKeyPrefix + campaignID + ":" + assetID
}
