package main

import (
	"encoding/hex"
	"fmt"
)

func decodeHexKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("scrun: decoding -key: %w", err)
	}
	return key, nil
}
