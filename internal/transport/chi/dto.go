package chi

import (
	"github.com/kailas-cloud/marketsearch/internal/domain/search/result"
	predictiveuc "github.com/kailas-cloud/marketsearch/internal/usecase/predictive"
)

// PredictiveResponse is the predictive search envelope.
type PredictiveResponse struct {
	Term   string           `json:"term"`
	Result PredictiveResult `json:"result"`
}

// PredictiveResult holds the buckets and their total.
type PredictiveResult struct {
	Total int             `json:"total"`
	Items PredictiveItems `json:"items"`
}

// PredictiveItems lists every bucket; unused buckets render as [].
type PredictiveItems struct {
	Creators    []Creator `json:"creators"`
	Products    []Product `json:"products"`
	Articles    []any     `json:"articles"`
	Collections []any     `json:"collections"`
	Pages       []any     `json:"pages"`
	Queries     []any     `json:"queries"`
}

// Creator is a creator hit.
type Creator struct {
	ID                 string `json:"id"`
	Handle             string `json:"handle"`
	DisplayName        string `json:"displayName"`
	Bio                string `json:"bio,omitempty"`
	ProfileImageURL    string `json:"profileImageUrl,omitempty"`
	VerificationStatus string `json:"verificationStatus,omitempty"`
}

// Product is a listing hit.
type Product struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Handle  string      `json:"handle"`
	Creator *CreatorRef `json:"creator,omitempty"`
	Variant Variant     `json:"variant"`
}

// CreatorRef is the creator summary embedded in a product.
type CreatorRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Handle      string `json:"handle"`
}

// Variant carries the product image and price.
type Variant struct {
	Image *Image `json:"image,omitempty"`
	Price Price  `json:"price"`
}

// Image is a product thumbnail.
type Image struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// Price is a decimal amount with its currency.
type Price struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the body of non-search errors.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func responseToDTO(resp predictiveuc.Response) PredictiveResponse {
	creators := resp.Result.Creators()
	products := resp.Result.Products()

	items := PredictiveItems{
		Creators:    make([]Creator, 0, len(creators)),
		Products:    make([]Product, 0, len(products)),
		Articles:    []any{},
		Collections: []any{},
		Pages:       []any{},
		Queries:     []any{},
	}
	for _, c := range creators {
		items.Creators = append(items.Creators, creatorToDTO(c))
	}
	for _, p := range products {
		items.Products = append(items.Products, productToDTO(p))
	}

	return PredictiveResponse{
		Term: resp.Term,
		Result: PredictiveResult{
			Total: resp.Result.Total(),
			Items: items,
		},
	}
}

func creatorToDTO(c result.Creator) Creator {
	return Creator{
		ID:                 c.ID,
		Handle:             c.Handle,
		DisplayName:        c.DisplayName,
		Bio:                c.Bio,
		ProfileImageURL:    c.ProfileImageURL,
		VerificationStatus: c.VerificationStatus,
	}
}

func productToDTO(p result.Product) Product {
	out := Product{
		ID:     p.ID,
		Title:  p.Title,
		Handle: p.Handle,
		Variant: Variant{
			Price: Price{Amount: p.Price.Amount, CurrencyCode: p.Price.CurrencyCode},
		},
	}
	if p.Creator != nil {
		out.Creator = &CreatorRef{ID: p.Creator.ID, DisplayName: p.Creator.DisplayName, Handle: p.Creator.Handle}
	}
	if p.Image != nil {
		out.Variant.Image = &Image{
			URL:     p.Image.URL,
			AltText: p.Image.AltText,
			Width:   p.Image.Width,
			Height:  p.Image.Height,
		}
	}
	return out
}
