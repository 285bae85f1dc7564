package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// maxDecimals bounds the token decimals accepted from the API
const maxDecimals = 255

type walletBySignedRequest struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

type walletBySignedResponse struct {
	Address string `json:"address"`
}

type tokenBalanceRequest struct {
	Address string `json:"address"`
}

type tokenBalanceResponse struct {
	Balance  amount `json:"balance"`
	Decimals amount `json:"decimals"`
}

type tokenChangesRequest struct {
	Since int64 `json:"since"`
}

type tokenChangesResponse struct {
	Changes []struct {
		ID      amount `json:"id"`
		Address string `json:"address"`
		Balance amount `json:"balance"`
	} `json:"changes"`
	Decimals amount `json:"decimals"`
}

type contractInfoResponse struct {
	ContractAddress string `json:"contract_address"`
	BlockNumber     amount `json:"block_number"`
	Decimals        amount `json:"decimals"`
}

// amount is an integer that the API may encode either as a JSON number or
// as a string. The digits are kept verbatim so balances never pass through
// a fixed-width type.
type amount string

func (a *amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amount(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = amount(n.String())
	return nil
}

func (a amount) String() string {
	return string(a)
}

func (a amount) Int64() (int64, error) {
	return strconv.ParseInt(string(a), 10, 64)
}

func (a amount) decimals() (uint, error) {
	v, err := strconv.ParseUint(string(a), 10, 32)
	if err != nil || v > maxDecimals {
		return 0, fmt.Errorf("invalid decimals %q", string(a))
	}
	return uint(v), nil
}

// decodeNumbers decodes JSON keeping numbers as json.Number
func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
