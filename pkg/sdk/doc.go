// Package marketsearch provides a Go client for the marketsearch predictive
// search API.
//
// Every predictive call returns the full envelope: the service answers 200
// with empty buckets when the caller is rate limited, the term is invalid or
// a source timed out, so an empty result is not an error.
//
//	client, _ := marketsearch.New("https://search.example.com",
//	    marketsearch.WithTimeout(2*time.Second),
//	)
//	res, _ := client.Predictive(ctx, "vintage jacket", 5)
//	for _, p := range res.Result.Items.Products {
//	    fmt.Println(p.Title, p.Variant.Price.Amount)
//	}
package marketsearch
