// Copyright (c) 2025 BVK Chaitanya

// Package api defines the requests and responses of the auction sniper
// daemon's http endpoints.
package api

import "time"

const (
	AddPath         = "/snipers/add"
	ListPath        = "/snipers/list"
	ReapPath        = "/snipers/reap"
	ResultsListPath = "/results/list"
)

type SniperStatus struct {
	UID    string
	ItemID string

	State     string
	LastPrice int64
	LastBid   int64

	NumBids  int
	JoinedAt time.Time
}

type AddRequest struct {
	ItemIDs []string
}

type AddResponse struct {
	Snipers []*SniperStatus
}

type ListRequest struct {
	// ItemID selects a single sniper when not empty.
	ItemID string
}

type ListResponse struct {
	SniperID string
	Snipers  []*SniperStatus
}

type ReapRequest struct {
	ItemIDs []string

	// Finished reaps all snipers in a terminal state when true.
	Finished bool
}

type ReapResponse struct {
	ItemIDs []string
}

type Result struct {
	UID      string
	ItemID   string
	SniperID string

	State     string
	LastPrice int64
	LastBid   int64
	NumBids   int

	JoinedAt   time.Time
	FinishedAt time.Time
}

type ResultsListRequest struct {
	// ItemID selects the results of a single item when not empty.
	ItemID string
}

type ResultsListResponse struct {
	Results []*Result
}
