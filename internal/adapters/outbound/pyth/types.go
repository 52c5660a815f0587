package pyth

// latestPriceResponse represents the response from /v2/updates/price/latest.
// Example response (binary payload omitted):
//
//	{
//	  "parsed": [
//	    {
//	      "id": "ff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace",
//	      "price": {
//	        "price": "250012345678",
//	        "conf": "98765432",
//	        "expo": -8,
//	        "publish_time": 1704067200
//	      }
//	    }
//	  ]
//	}
type latestPriceResponse struct {
	Parsed []parsedPriceFeed `json:"parsed"`
}

type parsedPriceFeed struct {
	ID    string    `json:"id"`
	Price priceData `json:"price"`
}

type priceData struct {
	Price       string `json:"price"`
	Conf        string `json:"conf"`
	Expo        int32  `json:"expo"`
	PublishTime int64  `json:"publish_time"`
}

// hermesError represents an error response from the Hermes API.
type hermesError struct {
	Message string `json:"message"`
}
