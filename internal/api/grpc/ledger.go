package grpc

import (
	"context"

	"fleetbook-backend/internal/api/dto"
	"fleetbook-backend/internal/service"
)

type LedgerHandler struct {
	ledgerSvc service.LedgerService
}

func NewLedgerHandler(ledgerSvc service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

func (h *LedgerHandler) GetLedgerSummary(ctx context.Context, req *dto.GetLedgerSummaryRequest) (*dto.LedgerSummaryResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	summary, err := h.ledgerSvc.GetSummary(ctx, actor, req.ToDomain())
	if err != nil {
		return nil, toStatus(err)
	}
	return &dto.LedgerSummaryResponse{Summary: summary}, nil
}
