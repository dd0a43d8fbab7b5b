package bitquery

// GraphQL documents. The upstream envelope is
// {data: {ethereum: {<field>: [...]}}}; a missing nested field means the
// query silently failed and is treated as a malformed response.

const txFeesQuery = `query ($hash: String!) {
  ethereum(network: ethereum) {
    transactions(txHash: {is: $hash}, options: {limit: 1}) {
      value: amount
      usd_value: amount(in: USD)
      fee: gasValue
      usd_fee: gasValue(in: USD)
    }
  }
}`

const addressTxQuery = `query ($address: String!, $minHeight: Int!) {
  ethereum(network: ethereum) {
    transactions(
      options: {asc: "block.height"}
      height: {gt: $minHeight}
      any: [{txSender: {is: $address}}, {txTo: {is: $address}}]
    ) {
      hash
      success
      block {
        height
        timestamp {
          unixtime
        }
      }
      sender {
        address
      }
      to {
        address
      }
      value: amount
      usd_value: amount(in: USD)
      fee: gasValue
      usd_fee: gasValue(in: USD)
    }
  }
}`

const txTransfersQuery = `query ($hash: String!) {
  ethereum(network: ethereum) {
    transfers(txHash: {is: $hash}) {
      sender {
        address
      }
      receiver {
        address
      }
      currency {
        address
        symbol
        name
        tokenType
      }
      amount
    }
  }
}`

// TxFees is the fee/value summary of a single transaction.
type TxFees struct {
	Value    float64 `json:"value"`
	USDValue float64 `json:"usd_value"`
	Fee      float64 `json:"fee"`
	USDFee   float64 `json:"usd_fee"`
}

// AddressTx is one transaction touching a queried address.
type AddressTx struct {
	Hash    string `json:"hash"`
	Success bool   `json:"success"`
	Block   struct {
		Height    uint64 `json:"height"`
		Timestamp struct {
			Unixtime int64 `json:"unixtime"`
		} `json:"timestamp"`
	} `json:"block"`
	Sender struct {
		Address string `json:"address"`
	} `json:"sender"`
	To struct {
		Address string `json:"address"`
	} `json:"to"`
	Value    float64 `json:"value"`
	USDValue float64 `json:"usd_value"`
	Fee      float64 `json:"fee"`
	USDFee   float64 `json:"usd_fee"`
}

// Transfer is one currency movement inside a transaction.
type Transfer struct {
	Sender struct {
		Address string `json:"address"`
	} `json:"sender"`
	Receiver struct {
		Address string `json:"address"`
	} `json:"receiver"`
	Currency struct {
		Address   string `json:"address"`
		Symbol    string `json:"symbol"`
		Name      string `json:"name"`
		TokenType string `json:"tokenType"`
	} `json:"currency"`
	Amount float64 `json:"amount"`
}
