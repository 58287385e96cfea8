package core

import "encoding/json"

// TierStats reports one cache tier's occupancy.
type TierStats struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

// Stats is a point-in-time snapshot of the gateway, served on the
// operational surface for quick inspection.
type Stats struct {
	Routes int         `json:"routes"`
	Frozen bool        `json:"frozen"`
	Tiers  []TierStats `json:"tiers,omitempty"`
}

// GetStats snapshots the gateway.
func (g *Gateway) GetStats() Stats {
	s := Stats{
		Routes: g.table.Len(),
		Frozen: g.table.Frozen(),
	}
	if g.cache != nil {
		for _, tc := range g.cache.Tiers() {
			s.Tiers = append(s.Tiers, TierStats{
				Name:    tc.Tier.Name(),
				Entries: tc.Tier.Len(),
			})
		}
	}
	return s
}

// GetStatsJSON renders the snapshot as indented JSON.
func (g *Gateway) GetStatsJSON() string {
	data, _ := json.MarshalIndent(g.GetStats(), "", "  ")
	return string(data)
}
