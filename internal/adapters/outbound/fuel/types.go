package fuel

import "encoding/json"

// graphqlRequest is the standard GraphQL-over-HTTP request envelope.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlResponse is the standard GraphQL-over-HTTP response envelope.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// coinsToSpendData represents the response of the coinsToSpend query. The node
// returns one coin list per asset queried.
type coinsToSpendData struct {
	CoinsToSpend [][]coinData `json:"coinsToSpend"`
}

type coinData struct {
	UtxoID  string `json:"utxoId"`
	Owner   string `json:"owner"`
	Amount  string `json:"amount"`
	AssetID string `json:"assetId"`
}

// balanceData represents the response of the balance query.
type balanceData struct {
	Balance struct {
		Amount string `json:"amount"`
	} `json:"balance"`
}

// chainData represents the subset of the chain query the client needs.
type chainData struct {
	Chain struct {
		ConsensusParameters struct {
			BaseAssetID string `json:"baseAssetId"`
		} `json:"consensusParameters"`
	} `json:"chain"`
}

// gasPriceData represents the response of the estimateGasPrice query.
type gasPriceData struct {
	EstimateGasPrice struct {
		GasPrice string `json:"gasPrice"`
	} `json:"estimateGasPrice"`
}

// submitData represents the response of the submit mutation.
type submitData struct {
	Submit struct {
		ID string `json:"id"`
	} `json:"submit"`
}
