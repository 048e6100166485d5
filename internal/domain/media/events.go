package media

import "github.com/catalog/backend/internal/domain/shared"

const (
	AggregateTypeAsset = "MediaAsset"

	EventTypeAssetStored  = "MediaAssetStored"
	EventTypeAssetDeleted = "MediaAssetDeleted"
)

// AssetStoredEvent is raised when a new catalog record is created
type AssetStoredEvent struct {
	shared.BaseDomainEvent
	Filename string   `json:"filename"`
	Tier     Tier     `json:"tier"`
	Keys     []string `json:"keys"`
	InPool   bool     `json:"in_pool"`
}

// NewAssetStoredEvent creates an AssetStoredEvent
func NewAssetStoredEvent(a *Asset) *AssetStoredEvent {
	return &AssetStoredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAssetStored, AggregateTypeAsset, a.ID),
		Filename:        a.Filename,
		Tier:            a.Tier,
		Keys:            a.Keys.All(),
		InPool:          a.InPool,
	}
}

// AssetDeletedEvent is raised when a catalog record and its objects are removed
type AssetDeletedEvent struct {
	shared.BaseDomainEvent
	Tier Tier     `json:"tier"`
	Keys []string `json:"keys"`
}

// NewAssetDeletedEvent creates an AssetDeletedEvent
func NewAssetDeletedEvent(a *Asset) *AssetDeletedEvent {
	return &AssetDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAssetDeleted, AggregateTypeAsset, a.ID),
		Tier:            a.Tier,
		Keys:            a.Keys.All(),
	}
}
