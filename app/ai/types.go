package ai

// rawEvent is the JSON shape the extraction prompt asks the model to emit
// for each event found on a calendar page.
type rawEvent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Venue       string `json:"venue"`
	City        string `json:"city"`
	State       string `json:"state"`
	URL         string `json:"url"`
	Category    string `json:"category"`
	PriceText   string `json:"price_text"`
}

// Deal is the JSON shape the deal-extraction prompt asks for. Dates stay as
// strings here; the importer owns validation and parsing.
type Deal struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	BusinessName   string `json:"business_name"`
	DealType       string `json:"deal_type"`
	DiscountAmount string `json:"discount_amount"`
	PromoCode      string `json:"promo_code"`
	Category       string `json:"category"`
	Terms          string `json:"terms"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	URL            string `json:"url"`
}
