package etherscan

import "errors"

// ErrEnvelope marks a response that arrived as valid HTTP but whose
// status/result envelope does not carry what was asked for.
var ErrEnvelope = errors.New("etherscan: unexpected response envelope")

// ErrRateLimited marks a key-quota rejection. Etherscan reports it as a
// 200 with status "0" and "Max rate limit reached" in the result, never
// as an HTTP 429.
var ErrRateLimited = errors.New("etherscan: rate limit reached")

// envelope is the common {status, message, result} wrapper. Result stays
// raw because its shape depends on the module/action pair.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  any    `json:"result"`
}

// NFTTransferEvent is one row of the tokennfttx action. Etherscan returns
// every numeric field as a decimal string.
type NFTTransferEvent struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	ContractAddress string `json:"contractAddress"`
	TokenID         string `json:"tokenID"`
	TokenName       string `json:"tokenName"`
	TokenSymbol     string `json:"tokenSymbol"`
}
