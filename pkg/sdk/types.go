package marketsearch

// PredictiveResponse is the predictive search envelope.
type PredictiveResponse struct {
	Term   string           `json:"term"`
	Result PredictiveResult `json:"result"`
}

// PredictiveResult holds the merged category buckets.
type PredictiveResult struct {
	Total int             `json:"total"`
	Items PredictiveItems `json:"items"`
}

// PredictiveItems groups results by category. Articles, Collections, Pages
// and Queries are always empty today.
type PredictiveItems struct {
	Creators    []Creator `json:"creators"`
	Products    []Product `json:"products"`
	Articles    []any     `json:"articles"`
	Collections []any     `json:"collections"`
	Pages       []any     `json:"pages"`
	Queries     []any     `json:"queries"`
}

// Creator is a creator profile match.
type Creator struct {
	ID                 string `json:"id"`
	Handle             string `json:"handle"`
	DisplayName        string `json:"displayName"`
	Bio                string `json:"bio,omitempty"`
	ProfileImageURL    string `json:"profileImageUrl,omitempty"`
	VerificationStatus string `json:"verificationStatus,omitempty"`
}

// Product is a listing match.
type Product struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Handle  string      `json:"handle"`
	Creator *CreatorRef `json:"creator,omitempty"`
	Variant Variant     `json:"variant"`
}

// CreatorRef is the creator attached to a product.
type CreatorRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Handle      string `json:"handle"`
}

// Variant carries the product's thumbnail and price.
type Variant struct {
	Image *Image `json:"image,omitempty"`
	Price Price  `json:"price"`
}

// Image is a public image reference.
type Image struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// Price is a decimal amount with an ISO 4217 currency code.
type Price struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

// HealthStatus represents the aggregated service health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded"
	Checks map[string]string `json:"checks"` // component → "ok"/"error"
}

// Healthy reports whether every component check passed.
func (h HealthStatus) Healthy() bool { return h.Status == "ok" }
