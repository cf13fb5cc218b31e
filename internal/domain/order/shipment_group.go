package order

// NoTracking is the sentinel grouping key for items not yet attached to a
// carrier shipment
const NoTracking = ""

// ShipmentGroup is the set of order items sharing one carrier tracking
// number. The pending group (NoTracking key) holds items still eligible for a
// new split. Groups are derived from the item list, never persisted.
type ShipmentGroup struct {
	TrackingNumber string
	Items          []OrderItem
}

// IsPending returns true for the untracked group
func (g ShipmentGroup) IsPending() bool {
	return g.TrackingNumber == NoTracking
}

// GroupShipments splits an item list into per-tracking-number groups.
// Groups appear in first-appearance order and items keep their original order
// within each group.
func GroupShipments(items []OrderItem) []ShipmentGroup {
	index := make(map[string]int)
	groups := make([]ShipmentGroup, 0)

	for _, item := range items {
		key := item.TrackingNumber()
		idx, ok := index[key]
		if !ok {
			idx = len(groups)
			index[key] = idx
			groups = append(groups, ShipmentGroup{TrackingNumber: key})
		}
		groups[idx].Items = append(groups[idx].Items, item)
	}
	return groups
}

// ShipmentGroups returns the order's items grouped by tracking number
func (o *Order) ShipmentGroups() []ShipmentGroup {
	return GroupShipments(o.Items)
}
