package domain

// CollectionStatus is the publication state of a series.
type CollectionStatus string

const (
	// CollectionStatusOngoing means new volumes are still being released.
	CollectionStatusOngoing CollectionStatus = "ongoing"
	// CollectionStatusCompleted means the series has finished.
	CollectionStatusCompleted CollectionStatus = "completed"
	// CollectionStatusHiatus means releases are paused.
	CollectionStatusHiatus CollectionStatus = "hiatus"
	// CollectionStatusCancelled means the series was stopped before its end.
	CollectionStatusCancelled CollectionStatus = "cancelled"
)

// Valid reports whether s is a known status. The empty status is valid and means unknown.
func (s CollectionStatus) Valid() bool {
	switch s {
	case "", CollectionStatusOngoing, CollectionStatusCompleted, CollectionStatusHiatus, CollectionStatusCancelled:
		return true
	default:
		return false
	}
}

// OwnershipStatus records whether a volume is on the shelf, wanted, or on its way.
type OwnershipStatus string

const (
	OwnershipOwned      OwnershipStatus = "owned"
	OwnershipWishlist   OwnershipStatus = "wishlist"
	OwnershipPreordered OwnershipStatus = "preordered"
	OwnershipForSale    OwnershipStatus = "for_sale"
)

// Valid reports whether s is a known ownership status.
func (s OwnershipStatus) Valid() bool {
	switch s {
	case OwnershipOwned, OwnershipWishlist, OwnershipPreordered, OwnershipForSale:
		return true
	default:
		return false
	}
}

// ProgressStatus records how far the user got with a volume.
type ProgressStatus string

const (
	ProgressUnread  ProgressStatus = "unread"
	ProgressReading ProgressStatus = "reading"
	ProgressRead    ProgressStatus = "read"
	ProgressDropped ProgressStatus = "dropped"
)

// Valid reports whether s is a known progress status.
func (s ProgressStatus) Valid() bool {
	switch s {
	case ProgressUnread, ProgressReading, ProgressRead, ProgressDropped:
		return true
	default:
		return false
	}
}
