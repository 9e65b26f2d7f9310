// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/bvk/auctionsniper/api"
	"github.com/bvk/auctionsniper/collector"
	"github.com/bvk/auctionsniper/gobs"
	"github.com/bvk/auctionsniper/httputil"
	"github.com/bvk/auctionsniper/sniper"
)

func sniperStatus(s *sniper.Sniper) *api.SniperStatus {
	snap := s.Snapshot()
	return &api.SniperStatus{
		UID:       s.UID(),
		ItemID:    s.ItemID(),
		State:     string(snap.State),
		LastPrice: snap.LastPrice,
		LastBid:   snap.LastBid,
		NumBids:   s.NumBids(),
		JoinedAt:  s.JoinedAt(),
	}
}

func apiResult(r *gobs.AuctionResult) *api.Result {
	return &api.Result{
		UID:        r.UID,
		ItemID:     r.ItemID,
		SniperID:   r.SniperID,
		State:      r.State,
		LastPrice:  r.LastPrice,
		LastBid:    r.LastBid,
		NumBids:    r.NumBids,
		JoinedAt:   r.JoinedAt,
		FinishedAt: r.FinishedAt,
	}
}

func resultSnapshot(r *gobs.AuctionResult) sniper.Snapshot {
	return sniper.Snapshot{
		ItemID:    r.ItemID,
		LastPrice: r.LastPrice,
		LastBid:   r.LastBid,
		State:     sniper.State(r.State),
	}
}

// Add starts snipers for the items. Items are added in the given order and
// the first failure stops the rest.
func (s *Server) Add(ctx context.Context, itemIDs ...string) ([]*sniper.Sniper, error) {
	var snipers []*sniper.Sniper
	for _, id := range itemIDs {
		sn, err := s.collector.Add(ctx, id)
		if err != nil {
			return snipers, fmt.Errorf("could not add sniper for item %q: %w", id, err)
		}
		snipers = append(snipers, sn)
	}
	return snipers, nil
}

func (s *Server) doAdd(ctx context.Context, req *api.AddRequest) (*api.AddResponse, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}
	snipers, err := s.Add(ctx, req.ItemIDs...)
	if err != nil {
		if len(snipers) != 0 {
			slog.Warn("only some of the snipers are added", "added", len(snipers), "requested", len(req.ItemIDs))
		}
		return nil, err
	}
	resp := new(api.AddResponse)
	for _, sn := range snipers {
		resp.Snipers = append(resp.Snipers, sniperStatus(sn))
	}
	return resp, nil
}

func (s *Server) doList(ctx context.Context, req *api.ListRequest) (*api.ListResponse, error) {
	resp := &api.ListResponse{
		SniperID: s.collector.Self(),
	}
	if len(req.ItemID) != 0 {
		sn, err := s.collector.Get(req.ItemID)
		if err != nil {
			return nil, err
		}
		resp.Snipers = append(resp.Snipers, sniperStatus(sn))
		return resp, nil
	}
	for _, sn := range s.collector.Snipers() {
		resp.Snipers = append(resp.Snipers, sniperStatus(sn))
	}
	return resp, nil
}

func (s *Server) doReap(ctx context.Context, req *api.ReapRequest) (*api.ReapResponse, error) {
	if err := req.Check(); err != nil {
		return nil, err
	}

	ids := slices.Clone(req.ItemIDs)
	if req.Finished {
		for _, snap := range s.collector.Snapshots() {
			if snap.State.IsTerminal() {
				ids = append(ids, snap.ItemID)
			}
		}
	}

	seen := make(map[string]bool)
	resp := new(api.ReapResponse)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		if err := s.collector.Reap(id); err != nil {
			if errors.Is(err, collector.ErrNotFinished) {
				return nil, httputil.NewError(http.StatusConflict, err)
			}
			return nil, err
		}
		resp.ItemIDs = append(resp.ItemIDs, id)
	}
	return resp, nil
}

func (s *Server) doResultsList(ctx context.Context, req *api.ResultsListRequest) (*api.ResultsListResponse, error) {
	results, err := s.ledger.List(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	resp := new(api.ResultsListResponse)
	for _, r := range results {
		resp.Results = append(resp.Results, apiResult(r))
	}
	return resp, nil
}
