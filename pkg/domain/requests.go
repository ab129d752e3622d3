package domain

// Request payloads sent to the business-logic service.

// CreateSlotSearchRequest creates a slot-search task. MaxCoef travels as a
// string and MaxLogistics uses 9999 as the "no limit" sentinel.
type CreateSlotSearchRequest struct {
	Warehouse        string `json:"warehouse"`
	SupplyType       string `json:"supply_type"`
	MaxCoef          string `json:"max_booking_coefficient"`
	MaxLogistics     int    `json:"max_logistics_percent"`
	SearchPeriodDays int    `json:"search_period_days"`
	LeadTimeDays     int    `json:"lead_time_days"`
	Weekdays         string `json:"weekdays"`
	ChatID           string `json:"telegram_chat_id"`
	UserID           string `json:"user_id"`
}

// CreateAutobookRequest attaches automated booking to an existing slot search.
type CreateAutobookRequest struct {
	UserID             string `json:"telegram_id"`
	SlotTaskID         int    `json:"slot_search_task_id"`
	SellerName         string `json:"seller_name"`
	DraftID            int    `json:"draft_id"`
	TransitWarehouse   string `json:"transit_warehouse,omitempty"`
	LogisticsAcceptMode string `json:"logistics_accept_mode"`
}

// CreateAutobookNewRequest creates automated booking from the seller cabinet
// overview, bound to one of the user's active slot requests.
type CreateAutobookNewRequest struct {
	UserID        string `json:"user_id"`
	SellerName    string `json:"seller_name"`
	DraftID       int    `json:"draft_id"`
	SlotRequestID int    `json:"slot_request_id"`
}

// CreateMoveRequest creates a stock redistribution task.
type CreateMoveRequest struct {
	UserID        string `json:"user_id"`
	Account       string `json:"account"`
	Article       string `json:"article"`
	FromWarehouse string `json:"from_warehouse"`
	ToWarehouse   string `json:"to_warehouse"`
	Qty           int    `json:"qty"`
}

// AuthStartResult is the outcome of submitting a phone number. Status
// "already_authorized" short-circuits the code step.
type AuthStartResult struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`
}

// AuthStatus describes whether the user holds a live WB session.
type AuthStatus struct {
	Authorized bool   `json:"authorized"`
	Phone      string `json:"phone,omitempty"`
	ExpiresAt  string `json:"expires_at,omitempty"`
}
