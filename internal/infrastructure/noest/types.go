package noest

import "github.com/shopspring/decimal"

// orderPayload is the request body for order creation and update.
// Field names follow the Noest API, which speaks French.
type orderPayload struct {
	APIToken   string          `json:"api_token"`
	UserGUID   string          `json:"user_guid"`
	Reference  string          `json:"reference"`
	Client     string          `json:"client"`
	Phone      string          `json:"phone"`
	Adresse    string          `json:"adresse"`
	WilayaID   int             `json:"wilaya_id"`
	Commune    string          `json:"commune"`
	Montant    decimal.Decimal `json:"montant"`
	Produit    string          `json:"produit"`
	Poids      decimal.Decimal `json:"poids"`
	TypeID     int             `json:"type_id"`
	IsStopDesk int             `json:"stop_desk"`
	Tracking   string          `json:"tracking,omitempty"`
}

// trackingPayload is the request body for validate, delete and label calls
type trackingPayload struct {
	APIToken string `json:"api_token"`
	UserGUID string `json:"user_guid"`
	Tracking string `json:"tracking"`
}

// authPayload is the request body for calls that only need credentials
type authPayload struct {
	APIToken string `json:"api_token"`
	UserGUID string `json:"user_guid"`
}

// apiResponse is the common response envelope
type apiResponse struct {
	Success  bool   `json:"success"`
	Tracking string `json:"tracking"`
	Message  string `json:"message"`
}

// feeEntry is one row of the delivery fee table
type feeEntry struct {
	WilayaID      int             `json:"wilaya_id"`
	TarifDomicile decimal.Decimal `json:"tarif"`
	TarifStopDesk decimal.Decimal `json:"tarif_stopdesk"`
}

// feesResponse is the delivery fee table response
type feesResponse struct {
	Success bool       `json:"success"`
	Tarifs  []feeEntry `json:"tarifs"`
}
