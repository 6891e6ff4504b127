package service

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"wallet_client/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const currenciesKey = "currencies"

// reservedFlatKeys are aggregate entries the backend mixes into the legacy flat map.
var reservedFlatKeys = map[string]struct{}{
	"total":       {},
	"portfolio":   {},
	currenciesKey: {},
}

// ParseBalancePayload decodes a raw walletBalances value into the tagged union, keeping
// object key order. null, a non-object, or an object without entries yields PayloadEmpty.
// A present "currencies" object with at least one entry selects the nested shape.
func ParseBalancePayload(raw []byte) (entity.BalancePayload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return entity.BalancePayload{Kind: entity.PayloadEmpty}, nil
	}

	if !json.Valid(trimmed) {
		return entity.BalancePayload{}, fmt.Errorf("malformed balance payload")
	}

	iter := json.BorrowIterator(trimmed)
	defer json.ReturnIterator(iter)

	if iter.WhatIsNext() != jsoniter.ObjectValue {
		iter.Skip()
		if err := iterErr(iter); err != nil {
			return entity.BalancePayload{}, err
		}
		return entity.BalancePayload{Kind: entity.PayloadEmpty}, nil
	}

	var nested []entity.NestedCurrency
	var flat []entity.FlatEntry
	sawCurrencies := false

	iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		if key == currenciesKey && it.WhatIsNext() == jsoniter.ObjectValue {
			sawCurrencies = true
			nested = readNestedCurrencies(it)
			return true
		}
		if _, reserved := reservedFlatKeys[strings.ToLower(key)]; reserved || it.WhatIsNext() != jsoniter.ObjectValue {
			it.Skip()
			return true
		}
		flat = append(flat, entity.FlatEntry{Key: key, Fields: readBalanceFields(it)})
		return true
	})
	if err := iterErr(iter); err != nil {
		return entity.BalancePayload{}, err
	}

	switch {
	case sawCurrencies && len(nested) > 0:
		return entity.BalancePayload{Kind: entity.PayloadNested, Nested: nested}, nil
	case len(flat) > 0:
		return entity.BalancePayload{Kind: entity.PayloadFlat, Flat: flat}, nil
	default:
		return entity.BalancePayload{Kind: entity.PayloadEmpty}, nil
	}
}

// iterErr ignores io.EOF, which the iterator reports after a trailing top-level scalar.
func iterErr(iter *jsoniter.Iterator) error {
	if iter.Error != nil && iter.Error != io.EOF {
		return fmt.Errorf("malformed balance payload: %w", iter.Error)
	}
	return nil
}

func readNestedCurrencies(it *jsoniter.Iterator) []entity.NestedCurrency {
	var out []entity.NestedCurrency
	it.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		if it.WhatIsNext() != jsoniter.ObjectValue {
			it.Skip()
			return true
		}
		cur := entity.NestedCurrency{Key: key}
		it.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
			if field != "networks" || it.WhatIsNext() != jsoniter.ObjectValue {
				it.Skip()
				return true
			}
			it.ReadObjectCB(func(it *jsoniter.Iterator, netKey string) bool {
				if it.WhatIsNext() != jsoniter.ObjectValue {
					it.Skip()
					return true
				}
				cur.Networks = append(cur.Networks, entity.NetworkEntry{Key: netKey, Fields: readBalanceFields(it)})
				return true
			})
			return true
		})
		out = append(out, cur)
		return true
	})
	return out
}

func readBalanceFields(it *jsoniter.Iterator) entity.BalanceFields {
	var f entity.BalanceFields
	it.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		switch strings.ToLower(field) {
		case "balance":
			f.Balance, _ = readDecimal(it)
		case "priceusd":
			f.PriceUSD, f.HasPrice = readDecimal(it)
		case "percentagechange24h":
			f.PctChange24h, f.HasChange = readDecimal(it)
		case "valueusd":
			f.ValueUSD, _ = readDecimal(it)
		default:
			it.Skip()
		}
		return true
	})
	return f
}

// readDecimal accepts a JSON string or number. null, non-numeric strings and
// other value types read as zero with ok=false.
func readDecimal(it *jsoniter.Iterator) (decimal.Decimal, bool) {
	var s string
	switch it.WhatIsNext() {
	case jsoniter.StringValue:
		s = strings.TrimSpace(it.ReadString())
	case jsoniter.NumberValue:
		s = string(it.ReadNumber())
	case jsoniter.NilValue:
		it.ReadNil()
		return decimal.Zero, false
	default:
		it.Skip()
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
