package models

// DecisionsRequest pages through the in-memory decision history. From and To
// accept RFC3339 or unix-second timestamps and bound the decision time.
type DecisionsRequest struct {
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
}

// TradesRequest pages through the closed-trade ledger. From and To bound the
// trade close time.
type TradesRequest struct {
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
}
