package domain

// Backend entities, mirroring the wire format of the business-logic service.
// The mapstructure tags let payloads stored in the session scratchpad be
// decoded back into these types after a JSON round-trip.

// SlotTask is a slot-search task.
type SlotTask struct {
	ID           int    `json:"id" mapstructure:"id"`
	Warehouse    string `json:"warehouse" mapstructure:"warehouse"`
	SupplyType   string `json:"supply_type" mapstructure:"supply_type"`
	MaxCoef      int    `json:"max_coef" mapstructure:"max_coef"`
	MaxLogistics *int   `json:"max_logistics_coef_percent,omitempty" mapstructure:"max_logistics_coef_percent"`
	DateFrom     string `json:"date_from,omitempty" mapstructure:"date_from"`
	DateTo       string `json:"date_to,omitempty" mapstructure:"date_to"`
	LeadTimeDays int    `json:"lead_time_days" mapstructure:"lead_time_days"`
	Weekdays     string `json:"weekdays" mapstructure:"weekdays"`
	Status       string `json:"status" mapstructure:"status"`
}

// AutobookTask is an automated booking task.
type AutobookTask struct {
	ID         int    `json:"id" mapstructure:"id"`
	SlotTaskID int    `json:"slot_search_task_id" mapstructure:"slot_search_task_id"`
	Warehouse  string `json:"warehouse" mapstructure:"warehouse"`
	SupplyType string `json:"supply_type" mapstructure:"supply_type"`
	MaxCoef    int    `json:"max_coef" mapstructure:"max_coef"`
	Status     string `json:"status" mapstructure:"status"`
}

// MoveTask is a stock redistribution task.
type MoveTask struct {
	ID            int    `json:"id" mapstructure:"id"`
	Article       string `json:"article" mapstructure:"article"`
	FromWarehouse string `json:"from_warehouse" mapstructure:"from_warehouse"`
	ToWarehouse   string `json:"to_warehouse" mapstructure:"to_warehouse"`
	Qty           int    `json:"qty" mapstructure:"qty"`
	Status        string `json:"status" mapstructure:"status"`
}

// Account is a seller account in the WB cabinet.
type Account struct {
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
}

// Draft is a supply draft in the WB cabinet.
type Draft struct {
	ID          int    `json:"id" mapstructure:"id"`
	Name        string `json:"name,omitempty" mapstructure:"name"`
	CreatedAt   string `json:"created_at,omitempty" mapstructure:"created_at"`
	GoodQty     int    `json:"good_quantity,omitempty" mapstructure:"good_quantity"`
	BarcodeQty  int    `json:"barcode_quantity,omitempty" mapstructure:"barcode_quantity"`
	Author      string `json:"author,omitempty" mapstructure:"author"`
}

// TransitWarehouse is an optional intermediate warehouse for autobooking.
type TransitWarehouse struct {
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
}

// Warehouse is a destination warehouse selectable in slot-search.
type Warehouse struct {
	ID   int    `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
}

// WarehousePage is one backend page of warehouses. Page is 0-based on the wire.
type WarehousePage struct {
	Items []Warehouse `json:"items"`
	Page  int         `json:"page"`
	Pages int         `json:"pages"`
}

// Stock is the amount of one article available at one warehouse.
type Stock struct {
	Warehouse string `json:"warehouse" mapstructure:"warehouse"`
	Qty       int    `json:"qty" mapstructure:"qty"`
}

// Article is a product with its per-warehouse stock breakdown.
type Article struct {
	ID       string  `json:"id" mapstructure:"id"`
	Name     string  `json:"name" mapstructure:"name"`
	Barcode  string  `json:"barcode,omitempty" mapstructure:"barcode"`
	TotalQty int     `json:"total_qty" mapstructure:"total_qty"`
	Stocks   []Stock `json:"stocks" mapstructure:"stocks"`
}

// MoveOptions is the dataset the stock-move wizard loads once at start.
type MoveOptions struct {
	Accounts   []Account   `json:"accounts" mapstructure:"accounts"`
	Articles   []Article   `json:"articles" mapstructure:"articles"`
	Warehouses []Warehouse `json:"warehouses" mapstructure:"warehouses"`
}

// StockFor returns the recorded stock of the article at the warehouse.
func (o MoveOptions) StockFor(articleID, warehouse string) (int, bool) {
	for _, art := range o.Articles {
		if art.ID != articleID {
			continue
		}
		for _, st := range art.Stocks {
			if st.Warehouse == warehouse {
				return st.Qty, true
			}
		}
		return 0, false
	}
	return 0, false
}

// ArticleByID returns the article with the given id.
func (o MoveOptions) ArticleByID(id string) (Article, bool) {
	for _, art := range o.Articles {
		if art.ID == id {
			return art, true
		}
	}
	return Article{}, false
}

// AccountName resolves an account id to its display name, falling back to the id.
func (o MoveOptions) AccountName(id string) string {
	for _, acc := range o.Accounts {
		if acc.ID == id {
			if acc.Name != "" {
				return acc.Name
			}
			break
		}
	}
	return id
}

// AutobookOptions is the context loaded when autobooking from an existing search.
type AutobookOptions struct {
	SlotTask          SlotTask           `json:"slot_task" mapstructure:"slot_task"`
	Accounts          []Account          `json:"accounts" mapstructure:"accounts"`
	Drafts            []Draft            `json:"drafts" mapstructure:"drafts"`
	TransitWarehouses []TransitWarehouse `json:"transit_warehouses" mapstructure:"transit_warehouses"`
}

// Pagination is the 1-based page descriptor some backend endpoints return.
type Pagination struct {
	Page  int `json:"page" mapstructure:"page"`
	Pages int `json:"pages" mapstructure:"pages"`
}

// Overview is one page of the seller cabinet overview (drafts + accounts).
type Overview struct {
	Drafts     []Draft    `json:"drafts"`
	Accounts   []Account  `json:"accounts"`
	Pagination Pagination `json:"pagination"`
}

// Period is a from/to date range on the wire.
type Period struct {
	From string `json:"from" mapstructure:"from"`
	To   string `json:"to" mapstructure:"to"`
}

// SlotRequest is an active slot search selectable in the autobook-new wizard.
type SlotRequest struct {
	ID           int    `json:"id" mapstructure:"id"`
	Warehouse    string `json:"warehouse" mapstructure:"warehouse"`
	SupplyType   string `json:"supply_type" mapstructure:"supply_type"`
	MaxCoef      string `json:"max_booking_coefficient" mapstructure:"max_booking_coefficient"`
	MaxLogistics int    `json:"max_logistics_percent" mapstructure:"max_logistics_percent"`
	LeadTimeDays int    `json:"lead_time_days" mapstructure:"lead_time_days"`
	Period       Period `json:"period" mapstructure:"period"`
}

// HistoryItem is one row of the task history listing. Fields are sparse: the
// slot_search and auto_booking variants populate different subsets.
type HistoryItem struct {
	ID         int    `json:"id"`
	Warehouse  string `json:"warehouse,omitempty"`
	SupplyType string `json:"supply_type,omitempty"`
	Status     string `json:"status,omitempty"`
	Found      int    `json:"found,omitempty"`
	Period     Period `json:"period,omitempty"`
	SellerName string `json:"seller_name,omitempty"`
	DraftID    int    `json:"draft_id,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// HistoryPage is one backend page of task history. Page is 1-based on the wire.
type HistoryPage struct {
	Items    []HistoryItem `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// LoadResult is the outcome of the synchronous booking-execution call.
type LoadResult struct {
	Warehouse  string `json:"warehouse"`
	SupplyType string `json:"supply_type"`
	FileSaved  string `json:"file_saved"`
	ChosenDate string `json:"chosen_date"`
}
