// Package result defines predictive search items and the aggregated response.
package result

// Category is a response bucket.
type Category string

// Response buckets, in rendering order. Articles, collections, pages and
// queries have no source on this surface and are always empty.
const (
	Creators    Category = "creators"
	Products    Category = "products"
	Articles    Category = "articles"
	Collections Category = "collections"
	Pages       Category = "pages"
	Queries     Category = "queries"
)

// Categories lists every bucket in rendering order.
var Categories = []Category{Creators, Products, Articles, Collections, Pages, Queries}

// Item is a single predictive search hit. Only Product and Creator implement it.
type Item interface {
	Category() Category
	ItemID() string
	sealed()
}

// Money is an amount in decimal notation with its ISO 4217 currency code.
type Money struct {
	Amount       string
	CurrencyCode string
}

// Image is a resolved public image.
type Image struct {
	URL     string
	AltText string
	Width   int
	Height  int
}

// CreatorRef is the creator summary embedded in a product.
type CreatorRef struct {
	ID          string
	DisplayName string
	Handle      string
}

// Product is a marketplace listing hit.
type Product struct {
	ID      string
	Title   string
	Handle  string
	Creator *CreatorRef
	Image   *Image
	Price   Money
}

// Category implements Item.
func (Product) Category() Category { return Products }

// ItemID implements Item.
func (p Product) ItemID() string { return p.ID }

func (Product) sealed() {}

// Creator is a creator profile hit.
type Creator struct {
	ID                 string
	Handle             string
	DisplayName        string
	Bio                string
	ProfileImageURL    string
	VerificationStatus string
}

// Category implements Item.
func (Creator) Category() Category { return Creators }

// ItemID implements Item.
func (c Creator) ItemID() string { return c.ID }

func (Creator) sealed() {}

// Predictive is the aggregated response. The total is always derived from the
// buckets, never stored.
type Predictive struct {
	creators []Creator
	products []Product
}

// Empty returns a response with every bucket empty.
func Empty() Predictive { return Predictive{} }

// Merge concatenates items into their buckets. Later calls append.
func (p *Predictive) Merge(creators []Creator, products []Product) {
	p.creators = append(p.creators, creators...)
	p.products = append(p.products, products...)
}

// Creators returns the creator bucket.
func (p Predictive) Creators() []Creator { return p.creators }

// Products returns the product bucket.
func (p Predictive) Products() []Product { return p.products }

// Items returns the bucket for c. Buckets without a source return nil.
func (p Predictive) Items(c Category) []Item {
	switch c {
	case Creators:
		items := make([]Item, len(p.creators))
		for i := range p.creators {
			items[i] = p.creators[i]
		}
		return items
	case Products:
		items := make([]Item, len(p.products))
		for i := range p.products {
			items[i] = p.products[i]
		}
		return items
	default:
		return nil
	}
}

// Total returns the sum of bucket sizes.
func (p Predictive) Total() int {
	total := 0
	for _, c := range Categories {
		total += len(p.Items(c))
	}
	return total
}

// IsEmpty reports whether every bucket is empty.
func (p Predictive) IsEmpty() bool { return p.Total() == 0 }
