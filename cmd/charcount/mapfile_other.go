//go:build !linux

package main

import (
	"fmt"
	"os"
)

func mapFile(name string) ([]byte, func(), error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, nil, err
	}
	if len(data) < 2 {
		return nil, nil, fmt.Errorf("%s: file is too small", name)
	}
	return data, func() {}, nil
}
