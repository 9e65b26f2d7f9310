// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Plan describes a sniping session. It is read from a YAML file like:
//
//	sniper-id: sniper
//	auction-url: ws://localhost:8080/auctions
//	items:
//	  - item-54321
//	  - item-65432
type Plan struct {
	SniperID   string   `yaml:"sniper-id"`
	AuctionURL string   `yaml:"auction-url"`
	Items      []string `yaml:"items"`
}

func PlanFromFile(fpath string) (*Plan, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}
	return parsePlan(data)
}

func parsePlan(data []byte) (*Plan, error) {
	p := new(Plan)
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(p); err != nil {
		return nil, fmt.Errorf("could not parse plan: %w", err)
	}
	for i, item := range p.Items {
		p.Items[i] = strings.TrimSpace(item)
	}
	return p, nil
}

// mergeItems returns the items from all lists in the order they are seen,
// without duplicates or empty values.
func mergeItems(lists ...[]string) []string {
	var items []string
	for _, list := range lists {
		for _, item := range list {
			item = strings.TrimSpace(item)
			if len(item) == 0 || slices.Contains(items, item) {
				continue
			}
			items = append(items, item)
		}
	}
	return items
}
