// Package twitter is the search transport for the provider's v2 API.
//
// A Client issues one bounded search request per call and maps the response to a
// models.Page. It does not retry or sleep; throttling is handled by the caller.
//
//	client, err := twitter.NewClient(twitter.Config{BearerToken: token}, log)
//	if err != nil {
//	    return err
//	}
//	page, err := client.Search(ctx, models.SearchRequest{
//	    Rule:       `("covid")`,
//	    Window:     window,
//	    MaxResults: 100,
//	})
//	if errors.IsType(err, errors.ErrorTypeRateLimit) {
//	    // cool down and retry once
//	}
package twitter
